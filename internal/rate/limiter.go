// Package rate throttles outbound calls per upstream endpoint.
package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter *rate.Limiter
	last    time.Time
}

// LimiterMap keeps one token bucket per key (an RPC endpoint URL) and evicts
// buckets that have been idle longer than ttl.
type LimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rpm      int
	burst    int
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLimiterMap creates a LimiterMap allowing rpm calls per minute per key and
// starts its cleanup goroutine. rpm <= 0 returns nil, which allows everything.
func NewLimiterMap(rpm, burst int, ttl time.Duration) *LimiterMap {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	lm := &LimiterMap{
		limiters: make(map[string]*entry),
		rpm:      rpm,
		burst:    burst,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
	go lm.reaper()
	return lm
}

func (l *LimiterMap) reaper() {
	t := time.NewTicker(l.ttl)
	defer t.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-t.C:
			l.mu.Lock()
			for key, e := range l.limiters {
				if now.Sub(e.last) > l.ttl {
					delete(l.limiters, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop stops the cleanup goroutine. Safe on a nil map and safe to call twice.
func (l *LimiterMap) Stop() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *LimiterMap) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.limiters[key]; ok {
		e.last = time.Now()
		return e.limiter
	}
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.rpm)), l.burst)
	l.limiters[key] = &entry{limiter: lim, last: time.Now()}
	return lim
}

// Allow reports whether a call to key fits in its budget and consumes a token
// if so. A nil LimiterMap always allows.
func (l *LimiterMap) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.get(key).Allow()
}

// Len returns the number of tracked keys.
func (l *LimiterMap) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
