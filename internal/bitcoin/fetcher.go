// Package bitcoin reads confirmed Bitcoin balances from an Esplora-compatible
// explorer (mempool.space by default).
package bitcoin

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/metrics"
	"github.com/example/chainbadge/internal/units"
)

const (
	DefaultBaseURL = "https://mempool.space"
	DefaultTimeout = 10 * time.Second

	Decimals = 8
	Symbol   = "BTC"
)

// ErrUnderflow means the explorer reported more spent than funded.
var ErrUnderflow = errors.New("bitcoin: spent exceeds funded")

type addressStats struct {
	ChainStats struct {
		FundedTxoSum uint64 `json:"funded_txo_sum"`
		SpentTxoSum  uint64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

type Fetcher struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     zap.NewNop(),
	}
}

func (f *Fetcher) base(n Network) string {
	b := strings.TrimRight(f.BaseURL, "/")
	if b == "" {
		b = DefaultBaseURL
	}
	switch n {
	case Testnet:
		return b + "/testnet"
	case Signet:
		return b + "/signet"
	}
	return b
}

// ScannerLink returns the explorer page for address. No I/O.
func (f *Fetcher) ScannerLink(n Network, address string) string {
	return f.base(n) + "/address/" + url.PathEscape(address)
}

// NativeBalance returns funded minus spent over confirmed outputs.
func (f *Fetcher) NativeBalance(ctx context.Context, n Network, address string) (units.Amount, error) {
	v, err := f.fetch(ctx, n, address)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.BitcoinRequests.WithLabelValues(n.String(), outcome).Inc()
	return v, err
}

func (f *Fetcher) fetch(ctx context.Context, n Network, address string) (units.Amount, error) {
	u := f.base(n) + "/api/address/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return units.Amount{}, err
	}
	req.Header.Set("Accept", "application/json")

	client := f.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return units.Amount{}, errors.Wrap(err, "bitcoin: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return units.Amount{}, errors.Errorf("bitcoin: %s returned %d: %s", u, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var stats addressStats
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&stats); err != nil {
		return units.Amount{}, errors.Wrap(err, "bitcoin: decode")
	}
	funded, spent := stats.ChainStats.FundedTxoSum, stats.ChainStats.SpentTxoSum
	if spent > funded {
		return units.Amount{}, errors.Wrapf(ErrUnderflow, "funded=%d spent=%d", funded, spent)
	}

	f.logger().Debug("bitcoin balance fetched",
		zap.String("network", n.String()),
		zap.Duration("latency", time.Since(start)))
	return units.NewAmount(new(big.Int).SetUint64(funded-spent), Decimals), nil
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
