// Package app assembles the balance stack from configuration.
package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/bitcoin"
	"github.com/example/chainbadge/internal/cache"
	"github.com/example/chainbadge/internal/chainlist"
	"github.com/example/chainbadge/internal/config"
	"github.com/example/chainbadge/internal/endpoint"
	"github.com/example/chainbadge/internal/evm"
	"github.com/example/chainbadge/internal/handlers"
	"github.com/example/chainbadge/internal/rate"
	"github.com/example/chainbadge/internal/source"
)

// App holds the long-lived components shared by every request.
type App struct {
	Directory *chainlist.Directory
	Selector  *endpoint.Selector
	Source    *source.Source
	Cache     *cache.Cache
	Throttle  *rate.LimiterMap

	cfg config.Config
}

// Options override components, mainly for tests.
type Options struct {
	Fetcher chainlist.Fetcher
	Dialer  evm.Dialer
}

func New(cfg config.Config, log *zap.Logger, opts Options) *App {
	if log == nil {
		log = zap.NewNop()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		hf := chainlist.NewHTTPFetcher(cfg.ChainlistURL, cfg.HTTPTimeout)
		hf.Logger = log.Named("chainlist")
		fetcher = hf
	}
	dir := chainlist.NewDirectory(fetcher, chainlist.Options{
		RefreshInterval: cfg.DirectoryRefreshInterval,
		RetryAfter:      cfg.DirectoryRetryAfter,
		Logger:          log.Named("chainlist"),
	})

	throttle := rate.NewLimiterMap(cfg.EndpointRPM, cfg.EndpointRPM, 10*time.Minute)
	sel := endpoint.NewSelector(dir, endpoint.Options{
		AttemptTimeout: cfg.RPCAttemptTimeout,
		Throttle:       throttle,
		Logger:         log.Named("endpoint"),
	})

	btc := bitcoin.NewFetcher(cfg.BitcoinExplorerURL, cfg.HTTPTimeout)
	btc.Logger = log.Named("bitcoin")

	src := source.New(evm.NewFetcher(sel, opts.Dialer), btc, dir)
	balances := cache.New(src, cfg.BalanceCacheTTL, cfg.BalanceCacheSize)
	if cfg.RequestTimeout > 0 {
		balances.FetchTimeout = cfg.RequestTimeout
	}

	return &App{
		Directory: dir,
		Selector:  sel,
		Source:    src,
		Cache:     balances,
		Throttle:  throttle,
		cfg:       cfg,
	}
}

// Handler returns the HTTP handlers bound to this App.
func (a *App) Handler() *handlers.Handler {
	return handlers.New(handlers.Deps{
		Balances:       a.Cache,
		Scanner:        a.Source,
		Timeout:        a.cfg.RequestTimeout,
		MaxConcurrency: a.cfg.MaxConcurrency,
	})
}

// Close stops background goroutines.
func (a *App) Close() { a.Throttle.Stop() }
