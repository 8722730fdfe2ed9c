package cache

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/chainbadge/internal/bitcoin"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/source"
	"github.com/example/chainbadge/internal/units"
)

type fetchFunc func(context.Context, query.Query) (*source.Response, error)

func (f fetchFunc) Fetch(ctx context.Context, q query.Query) (*source.Response, error) { return f(ctx, q) }

func btcQuery(addr string) query.Query {
	return query.BitcoinNativeBalance{Network: bitcoin.Mainnet, Address: addr}
}

func okResponse(v int64) *source.Response {
	return &source.Response{Amount: units.NewAmount(big.NewInt(v), 8), Metadata: source.BitcoinMetadata{}}
}

func TestCache_GetOrFetch_CacheHitAndError(t *testing.T) {
	calls := 0
	c := New(fetchFunc(func(_ context.Context, q query.Query) (*source.Response, error) {
		calls++
		if q.Key() == btcQuery("bad").Key() {
			return nil, errors.New("fetch-fail")
		}
		return okResponse(42), nil
	}), 200*time.Millisecond, 10)
	ctx := context.Background()

	// first call -> rpc
	v, src, err := c.GetOrFetch(ctx, btcQuery("k1"))
	if err != nil || v.Amount.Value.Int64() != 42 || src != "rpc" {
		t.Fatalf("first: v=%v src=%s err=%v", v, src, err)
	}
	// second call -> cache (no new fetch)
	v2, src2, err := c.GetOrFetch(ctx, btcQuery("k1"))
	if err != nil || v2.Amount.Value.Int64() != 42 || src2 != "cache" {
		t.Fatalf("second: v=%v src=%s err=%v", v2, src2, err)
	}
	if calls != 1 {
		t.Fatalf("fetch calls=%d", calls)
	}

	// errors are not cached
	_, src3, err := c.GetOrFetch(ctx, btcQuery("bad"))
	if err == nil || src3 != "" {
		t.Fatalf("expected error, src='%s' err=%v", src3, err)
	}
	_, _, _ = c.GetOrFetch(ctx, btcQuery("bad"))
	if calls != 3 {
		t.Fatalf("error was cached, calls=%d", calls)
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestCache_EquivalentQueriesShareEntry(t *testing.T) {
	calls := 0
	c := New(fetchFunc(func(context.Context, query.Query) (*source.Response, error) {
		calls++
		return okResponse(1), nil
	}), time.Minute, 10)

	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	_, _, _ = c.GetOrFetch(context.Background(), query.EvmNativeBalance{ChainID: big.NewInt(1), Address: addr})
	_, src, _ := c.GetOrFetch(context.Background(), query.EvmNativeBalance{ChainID: big.NewInt(1), Address: addr})
	if src != "cache" || calls != 1 {
		t.Fatalf("src=%s calls=%d", src, calls)
	}
}

func TestCache_Expiry(t *testing.T) {
	calls := 0
	c := New(fetchFunc(func(context.Context, query.Query) (*source.Response, error) {
		calls++
		return okResponse(1), nil
	}), 30*time.Millisecond, 10)

	_, _, _ = c.GetOrFetch(context.Background(), btcQuery("k"))
	time.Sleep(80 * time.Millisecond)
	_, src, _ := c.GetOrFetch(context.Background(), btcQuery("k"))
	if src != "rpc" || calls != 2 {
		t.Fatalf("src=%s calls=%d", src, calls)
	}
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	calls := 0
	c := New(fetchFunc(func(context.Context, query.Query) (*source.Response, error) {
		calls++
		return okResponse(1), nil
	}), 0, 0)

	for i := 0; i < 3; i++ {
		_, src, err := c.GetOrFetch(context.Background(), btcQuery("k"))
		if err != nil || src != "rpc" {
			t.Fatalf("src=%s err=%v", src, err)
		}
	}
	if calls != 3 || c.Len() != 0 {
		t.Fatalf("calls=%d len=%d", calls, c.Len())
	}
}

func TestCache_SingleflightCoalesces(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(fetchFunc(func(context.Context, query.Query) (*source.Response, error) {
		calls.Add(1)
		<-release
		return okResponse(7), nil
	}), time.Minute, 10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrFetch(context.Background(), btcQuery("same"))
			if err != nil || v.Amount.Value.Int64() != 7 {
				t.Errorf("v=%v err=%v", v, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
}

func TestCache_SharedFetchSurvivesCallerCancel(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetchErr := make(chan error, 1)
	c := New(fetchFunc(func(ctx context.Context, _ query.Query) (*source.Response, error) {
		calls.Add(1)
		close(started)
		<-release
		fetchErr <- ctx.Err()
		return okResponse(9), nil
	}), time.Minute, 10)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrFetch(ctxA, btcQuery("shared"))
		errA <- err
	}()
	<-started

	type result struct {
		v   *source.Response
		err error
	}
	resB := make(chan result, 1)
	go func() {
		v, _, err := c.GetOrFetch(context.Background(), btcQuery("shared"))
		resB <- result{v, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: want context.Canceled, got %v", err)
	}
	close(release)

	r := <-resB
	if r.err != nil || r.v.Amount.Value.Int64() != 9 {
		t.Fatalf("waiter should get the shared result, v=%v err=%v", r.v, r.err)
	}
	if err := <-fetchErr; err != nil {
		t.Fatalf("shared fetch saw cancellation: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
}

func TestCache_SharedFetchIsBounded(t *testing.T) {
	c := New(fetchFunc(func(ctx context.Context, _ query.Query) (*source.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), time.Minute, 10)
	c.FetchTimeout = 20 * time.Millisecond

	_, _, err := c.GetOrFetch(context.Background(), btcQuery("slow"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("errors must not be cached")
	}
}
