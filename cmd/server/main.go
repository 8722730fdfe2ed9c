package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/app"
	"github.com/example/chainbadge/internal/config"
	apihttp "github.com/example/chainbadge/internal/http"
	"github.com/example/chainbadge/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "optional config file (toml, yaml or json)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.SetUp(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	a := app.New(cfg, log, app.Options{})
	defer a.Close()

	srv := &http.Server{
		Addr:         listenAddr(cfg.Port),
		Handler:      apihttp.NewRouter(a.Handler()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("chainlist", cfg.ChainlistURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))
	shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
}
