package handlers

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/example/chainbadge/internal/chainlist"
	"github.com/example/chainbadge/internal/endpoint"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/source"
	"github.com/example/chainbadge/internal/types"
	"github.com/example/chainbadge/internal/units"
)

const vitalik = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

type fakeBalances struct {
	mu    sync.Mutex
	calls int
	resp  *source.Response
	err   error
}

func (f *fakeBalances) GetOrFetch(_ context.Context, _ query.Query) (*source.Response, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	return f.resp, "rpc", nil
}

func (f *fakeBalances) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeScanner struct {
	link string
	err  error
}

func (f fakeScanner) ScannerLink(context.Context, query.Query) (string, error) { return f.link, f.err }

func ethResponse(wei string) *source.Response {
	v, _ := new(big.Int).SetString(wei, 10)
	return &source.Response{
		Amount: units.NewAmount(v, 18),
		Metadata: source.EvmMetadata{
			Chain:  &chainlist.Chain{Name: "Ethereum Mainnet", Icon: "ethereum", ChainID: big.NewInt(1)},
			Source: source.EvmSource{Kind: source.Native, Symbol: "ETH"},
		},
	}
}

func newTestServer(t *testing.T, b Balances, s Scanner) *httptest.Server {
	t.Helper()
	h := New(Deps{Balances: b, Scanner: s})
	r := chi.NewRouter()
	r.Get("/health", Health)
	r.Get("/api/query/*", h.Query)
	r.Post("/api/batch", h.Batch)
	r.Get("/badge/*", h.Badge)
	r.Get("/endpoint/*", h.Endpoint)
	r.Get("/scanner/*", h.Scanner)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{}, fakeScanner{})
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestQuery_OK(t *testing.T) {
	fb := &fakeBalances{resp: ethResponse("1500000000000000000")}
	ts := newTestServer(t, fb, fakeScanner{})

	resp, err := http.Get(ts.URL + "/api/query/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var body types.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Result.Formatted != "1.5" || body.Result.Value != "1500000000000000000" || body.Metadata.Symbol != "ETH" || body.Source != "rpc" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestQuery_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"bad source", "/api/query/solana/1/balance/x", nil, http.StatusBadRequest},
		{"bad address", "/api/query/evm/1/balance/0x12", nil, http.StatusBadRequest},
		{"unknown chain", "/api/query/evm/999999/balance/" + vitalik, errors.Wrap(chainlist.ErrChainNotFound, "chain 999999"), http.StatusNotFound},
		{"all failed", "/api/query/evm/1/balance/" + vitalik, &endpoint.AllFailedError{ChainID: big.NewInt(1), Attempts: 3}, http.StatusBadGateway},
		{"registry down", "/api/query/evm/1/balance/" + vitalik, chainlist.ErrFetchFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		fb := &fakeBalances{err: tc.err}
		ts := newTestServer(t, fb, fakeScanner{})
		resp, err := http.Get(ts.URL + tc.path)
		if err != nil {
			t.Fatalf("%s: get: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.name, resp.StatusCode, tc.want)
		}
		if tc.err == nil && fb.calls != 0 {
			t.Fatalf("%s: parse errors must not reach the data source", tc.name)
		}
	}
}

func TestBadge_Redirect(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{resp: ethResponse("0")}, fakeScanner{})

	resp, err := noRedirect().Get(ts.URL + "/badge/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if loc != "https://img.shields.io/badge/Ethereum%20Mainnet-0%20ETH-yellow?logo=ethereum" {
		t.Fatalf("location=%s", loc)
	}

	resp, err = noRedirect().Get(ts.URL + "/badge/evm/1/balance/" + vitalik + "?color=green&label=Treasury")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://img.shields.io/badge/Treasury-0%20ETH-green") {
		t.Fatalf("location=%s", loc)
	}
}

func TestBadge_FailureBadge(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{err: errors.New("boom")}, fakeScanner{})

	resp, err := noRedirect().Get(ts.URL + "/badge/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "https://img.shields.io/badge/Badge-Failed-red" {
		t.Fatalf("location=%s", loc)
	}

	resp, err = noRedirect().Get(ts.URL + "/badge/evm/1/balance/" + vitalik + "?warning_threshold=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "https://img.shields.io/badge/Badge-Failed-red" {
		t.Fatalf("location=%s", loc)
	}
}

func TestEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{resp: ethResponse("2000000000000000000")}, fakeScanner{})
	resp, err := http.Get(ts.URL + "/endpoint/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "2 ETH" || body["isError"] != false || body["schemaVersion"] != float64(1) {
		t.Fatalf("body=%v", body)
	}

	ts = newTestServer(t, &fakeBalances{err: errors.New("boom")}, fakeScanner{})
	resp2, err := http.Get(ts.URL + "/endpoint/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp2.StatusCode)
	}
	body = nil
	if err := json.NewDecoder(resp2.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["isError"] != true || body["message"] != "Failed" {
		t.Fatalf("body=%v", body)
	}
}

func TestScanner(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{}, fakeScanner{link: "https://etherscan.io/address/" + vitalik})
	resp, err := noRedirect().Get(ts.URL + "/scanner/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://etherscan.io/address/"+vitalik {
		t.Fatalf("location=%s", loc)
	}

	ts = newTestServer(t, &fakeBalances{}, fakeScanner{err: source.ErrNoExplorer})
	resp, err = noRedirect().Get(ts.URL + "/scanner/evm/1/balance/" + vitalik)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestBatch(t *testing.T) {
	fb := &fakeBalances{resp: ethResponse("1000000000000000000")}
	ts := newTestServer(t, fb, fakeScanner{})

	body := `{"queries":["evm/1/balance/` + vitalik + `","evm/1/balance/` + vitalik + `","evm/x/balance/` + vitalik + `","doge/1/balance/a"]}`
	res, err := http.Post(ts.URL+"/api/batch", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("want 200 got %d", res.StatusCode)
	}
	var out types.BatchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Result.Formatted != "1" {
		t.Fatalf("unexpected results: %+v", out.Results)
	}
	if len(out.Errors) != 2 {
		t.Fatalf("want 2 errors got %+v", out.Errors)
	}
	for _, e := range out.Errors {
		if e.Status != http.StatusBadRequest {
			t.Fatalf("want 400 for %s got %d", e.Query, e.Status)
		}
	}
	if n := fb.count(); n != 1 {
		t.Fatalf("duplicates should be collapsed, calls=%d", n)
	}
}

func TestBatch_Rejects(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{}, fakeScanner{})
	many := make([]string, maxBatch+1)
	for i := range many {
		many[i] = `"evm/1/balance/` + vitalik + `"`
	}
	for _, body := range []string{`{`, `{"queries":[]}`, `{"queries":[` + strings.Join(many, ",") + `]}`} {
		res, err := http.Post(ts.URL+"/api/batch", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("want 400 got %d for %.40s", res.StatusCode, body)
		}
	}
}

func TestBatch_UpstreamErrors(t *testing.T) {
	ts := newTestServer(t, &fakeBalances{err: source.ErrChainNotFound}, fakeScanner{})
	res, err := http.Post(ts.URL+"/api/batch", "application/json", strings.NewReader(`{"queries":["evm/9/balance/`+vitalik+`"]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	var out types.BatchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 0 || len(out.Errors) != 1 || out.Errors[0].Status != http.StatusNotFound {
		t.Fatalf("unexpected: %+v", out)
	}
}
