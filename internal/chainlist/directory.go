// Package chainlist keeps an in-memory, periodically refreshed directory of
// EVM chain metadata loaded from a public chain registry.
package chainlist

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/example/chainbadge/internal/metrics"
)

const (
	DefaultRefreshInterval = 24 * time.Hour
	DefaultRetryAfter      = time.Minute
)

var (
	// ErrChainNotFound means the directory has no record for the chain id.
	ErrChainNotFound = errors.New("chain not found")
	// ErrFetchFailed means the registry could not be fetched or parsed and no
	// earlier snapshot is available.
	ErrFetchFailed = errors.New("chain directory fetch failed")
)

// Fetcher loads the full chain registry.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Chain, error)
}

type snapshot struct {
	byID        map[string]*Chain
	refreshedAt time.Time
}

// Options tune a Directory. Zero values fall back to defaults.
type Options struct {
	RefreshInterval time.Duration
	RetryAfter      time.Duration
	Logger          *zap.Logger
	Now             func() time.Time
}

// Directory is a concurrency-safe cache of chain records. Readers always see a
// complete snapshot; a refresh builds a new snapshot off-lock and swaps it in
// atomically. Concurrent refreshes are coalesced into a single fetch.
type Directory struct {
	fetcher  Fetcher
	interval time.Duration
	retry    time.Duration
	log      *zap.Logger
	now      func() time.Time

	snap        atomic.Pointer[snapshot]
	lastFailure atomic.Int64 // unix nanos of the last failed refresh
	group       singleflight.Group
}

func NewDirectory(f Fetcher, opts Options) *Directory {
	d := &Directory{
		fetcher:  f,
		interval: opts.RefreshInterval,
		retry:    opts.RetryAfter,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if d.interval <= 0 {
		d.interval = DefaultRefreshInterval
	}
	if d.retry <= 0 {
		d.retry = DefaultRetryAfter
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Chain returns the record for id, refreshing the directory first when it is
// empty or older than the refresh interval.
//
// A failed refresh is only returned (as ErrFetchFailed) when there is no
// snapshot yet. With a stale snapshot loaded the failure is logged at warn,
// the stale records are served, and further refreshes wait RetryAfter.
func (d *Directory) Chain(ctx context.Context, id *big.Int) (*Chain, error) {
	s, err := d.current(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := s.byID[Key(id)]
	if !ok {
		return nil, errors.Wrapf(ErrChainNotFound, "chain %s", Key(id))
	}
	return c, nil
}

// Chains returns every known record ordered by chain id.
func (d *Directory) Chains(ctx context.Context) ([]*Chain, error) {
	s, err := d.current(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Chain, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	sortByID(out)
	return out, nil
}

// RefreshedAt reports when the current snapshot was loaded; zero if never.
func (d *Directory) RefreshedAt() time.Time {
	if s := d.snap.Load(); s != nil {
		return s.refreshedAt
	}
	return time.Time{}
}

func (d *Directory) stale(s *snapshot) bool {
	return s == nil || d.now().Sub(s.refreshedAt) > d.interval
}

func (d *Directory) current(ctx context.Context) (*snapshot, error) {
	s := d.snap.Load()
	if !d.stale(s) {
		return s, nil
	}
	if s != nil && d.inBackoff() {
		return s, nil
	}

	v, err, _ := d.group.Do("refresh", func() (interface{}, error) {
		// another caller may have swapped in a fresh snapshot while we waited
		if cur := d.snap.Load(); !d.stale(cur) {
			return cur, nil
		}
		// the fetch is shared, so one caller giving up must not fail the rest
		return d.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		if s != nil {
			d.log.Warn("chain directory refresh failed, serving stale snapshot",
				zap.Time("refreshed_at", s.refreshedAt), zap.Error(err))
			return s, nil
		}
		return nil, err
	}
	return v.(*snapshot), nil
}

func (d *Directory) inBackoff() bool {
	last := d.lastFailure.Load()
	return last != 0 && d.now().Sub(time.Unix(0, last)) < d.retry
}

func (d *Directory) refresh(ctx context.Context) (*snapshot, error) {
	start := d.now()
	chains, err := d.fetcher.Fetch(ctx)
	if err != nil {
		d.lastFailure.Store(d.now().UnixNano())
		metrics.DirectoryRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	byID := make(map[string]*Chain, len(chains))
	for i := range chains {
		c := &chains[i]
		byID[c.Key()] = c
	}
	s := &snapshot{byID: byID, refreshedAt: d.now()}
	d.snap.Store(s)
	d.lastFailure.Store(0)
	metrics.DirectoryRefreshes.WithLabelValues("ok").Inc()
	d.log.Info("chain directory refreshed",
		zap.Int("chains", len(byID)), zap.Duration("took", d.now().Sub(start)))
	return s, nil
}
