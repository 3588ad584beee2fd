package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/innovatis-mc/emendas-cli/internal/reconcile"
	"github.com/innovatis-mc/emendas-cli/internal/resilience"
	"github.com/innovatis-mc/emendas-cli/internal/store"
	"github.com/innovatis-mc/emendas-cli/pkg/siop"
)

func newSIOPClient() siop.Client {
	retry := resilience.DefaultRetryConfig()
	if cfg.API.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.API.MaxAttempts
	}
	if cfg.API.BackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.API.BackoffMs) * time.Millisecond
	}

	return siop.NewClient(
		siop.WithBaseURL(cfg.API.BaseURL),
		siop.WithRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst),
		siop.WithRetry(retry),
	)
}

func newSource() *siop.Source {
	return siop.NewSource(newSIOPClient(), cfg.API.PageSize)
}

func newReconciler(src reconcile.Source) *reconcile.Reconciler {
	return reconcile.New(src, reconcile.WithDelays(
		time.Duration(cfg.Reconcile.SearchDebounceMs)*time.Millisecond,
		time.Duration(cfg.Reconcile.FilterDebounceMs)*time.Millisecond,
	))
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "emendas.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
