package chainlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultURL is the public chain registry.
const DefaultURL = "https://chainid.network/chains.json"

// maxBody caps the registry download; the full list is a few MB.
const maxBody = 64 << 20

// HTTPFetcher downloads the registry over HTTP.
type HTTPFetcher struct {
	URL        string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	if strings.TrimSpace(url) == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{URL: url, HTTPClient: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Chain, error) {
	c := f.HTTPClient
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "get chain list")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read chain list")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chain list http %d", resp.StatusCode)
	}

	chains, skipped, err := Parse(b)
	if err != nil {
		return nil, err
	}
	if skipped > 0 && f.Logger != nil {
		f.Logger.Debug("skipped malformed chain records", zap.Int("skipped", skipped))
	}
	return chains, nil
}
