// Package endpoint runs an operation against a chain's RPC endpoints in
// order until one succeeds, remembering the last endpoint that worked.
package endpoint

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/chainlist"
	"github.com/example/chainbadge/internal/metrics"
	"github.com/example/chainbadge/internal/rate"
)

const DefaultAttemptTimeout = 8 * time.Second

// ErrAllEndpointsFailed is matched by every *AllFailedError.
var ErrAllEndpointsFailed = errors.New("all endpoints failed")

// AllFailedError reports that no usable endpoint of a chain produced a result.
type AllFailedError struct {
	ChainID  *big.Int
	Attempts int
	Last     error
}

func (e *AllFailedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("chain %s: %s (%d attempts)", chainlist.Key(e.ChainID), ErrAllEndpointsFailed, e.Attempts)
	}
	return fmt.Sprintf("chain %s: %s (%d attempts, last: %v)", chainlist.Key(e.ChainID), ErrAllEndpointsFailed, e.Attempts, e.Last)
}

func (e *AllFailedError) Is(target error) bool { return target == ErrAllEndpointsFailed }

// Resolver looks up chain records. *chainlist.Directory implements it.
type Resolver interface {
	Chain(ctx context.Context, id *big.Int) (*chainlist.Chain, error)
}

// Operation is one attempt against a single endpoint URL.
type Operation[T any] func(ctx context.Context, chain *chainlist.Chain, url string) (T, error)

type Options struct {
	AttemptTimeout time.Duration
	// Throttle, when set, caps outbound calls per endpoint URL.
	Throttle *rate.LimiterMap
	Logger   *zap.Logger
}

// Selector holds the last good endpoint per chain. Safe for concurrent use.
type Selector struct {
	dir      Resolver
	timeout  time.Duration
	throttle *rate.LimiterMap
	log      *zap.Logger

	mu     sync.RWMutex
	sticky map[string]string
}

func NewSelector(dir Resolver, opts Options) *Selector {
	s := &Selector{
		dir:      dir,
		timeout:  opts.AttemptTimeout,
		throttle: opts.Throttle,
		log:      opts.Logger,
		sticky:   make(map[string]string),
	}
	if s.timeout <= 0 {
		s.timeout = DefaultAttemptTimeout
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Resolve returns the chain record without touching any endpoint.
func (s *Selector) Resolve(ctx context.Context, chainID *big.Int) (*chainlist.Chain, error) {
	return s.dir.Chain(ctx, chainID)
}

// Sticky returns the last endpoint that succeeded for chainID.
func (s *Selector) Sticky(chainID *big.Int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.sticky[chainlist.Key(chainID)]
	return u, ok
}

func (s *Selector) remember(chainID *big.Int, url string) {
	key := chainlist.Key(chainID)
	s.mu.RLock()
	cur, ok := s.sticky[key]
	s.mu.RUnlock()
	if ok && cur == url {
		return
	}
	s.mu.Lock()
	s.sticky[key] = url
	s.mu.Unlock()
}

// Candidates returns the endpoints Try would attempt for chain, in order: the
// sticky endpoint first, then the directory list as published, minus entries
// that are not usable. Duplicates are kept.
func (s *Selector) Candidates(chain *chainlist.Chain) []string {
	list := make([]string, 0, len(chain.RPC)+1)
	if u, ok := s.Sticky(chain.ChainID); ok {
		list = append(list, u)
	}
	list = append(list, chain.RPC...)

	out := list[:0]
	for _, u := range list {
		if Usable(u) {
			out = append(out, u)
		}
	}
	return out
}

// Usable reports whether url can be dialled as is: plain http(s) with no
// unresolved ${...} placeholder.
func Usable(url string) bool {
	if strings.Contains(url, "${") {
		return false
	}
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Try resolves chainID and runs op against its endpoints sequentially. The
// first success becomes the chain's sticky endpoint. Failures of individual
// endpoints are logged and skipped; only exhaustion is returned, as an
// *AllFailedError. Cancellation of ctx aborts immediately with ctx.Err().
func Try[T any](ctx context.Context, s *Selector, chainID *big.Int, op Operation[T]) (T, error) {
	var zero T

	chain, err := s.dir.Chain(ctx, chainID)
	if err != nil {
		return zero, err
	}
	key := chain.Key()
	candidates := s.Candidates(chain)

	var last error
	for i, url := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if !s.throttle.Allow(url) {
			last = errors.Errorf("endpoint %s throttled", url)
			metrics.EndpointAttempts.WithLabelValues(key, "throttled").Inc()
			s.log.Debug("endpoint throttled", zap.String("chain", key), zap.String("url", url))
			continue
		}

		v, err := attempt(ctx, s.timeout, chain, url, op)
		if err == nil {
			metrics.EndpointAttempts.WithLabelValues(key, "ok").Inc()
			s.remember(chain.ChainID, url)
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		last = err
		metrics.EndpointAttempts.WithLabelValues(key, "error").Inc()
		s.log.Warn("endpoint attempt failed",
			zap.String("chain", key),
			zap.String("url", url),
			zap.Int("attempt", i+1),
			zap.Int("candidates", len(candidates)),
			zap.Error(err))
	}

	return zero, &AllFailedError{ChainID: chain.ChainID, Attempts: len(candidates), Last: last}
}

func attempt[T any](ctx context.Context, timeout time.Duration, chain *chainlist.Chain, url string, op Operation[T]) (T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	defer func() {
		metrics.EndpointAttemptSeconds.WithLabelValues(chain.Key()).Observe(time.Since(start).Seconds())
	}()
	return op(actx, chain, url)
}
