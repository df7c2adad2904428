package main

import (
	"fmt"

	"github.com/haukened/cbf/internal/cbf/common/clock"
	"github.com/haukened/cbf/internal/cbf/common/log"
	"github.com/haukened/cbf/internal/cbf/config"
	"github.com/haukened/cbf/internal/cbf/repos/membership"
	"github.com/haukened/cbf/internal/cbf/repos/membership/bolt"
	"github.com/haukened/cbf/internal/cbf/repos/membership/counting"
	"github.com/haukened/cbf/internal/cbf/repos/membership/lru"
)

// application holds the wired membership stack.
type application struct {
	config *config.AppConfig
	store  membership.Store
	repo   membership.Repository
}

// buildApplication opens the store, builds the filter and cache, and loads
// the filter from the store.
func buildApplication(cfg *config.AppConfig) (*application, error) {
	clk := &clock.RealClock{}
	logger := log.Component("membership")

	store, err := bolt.New(cfg.DB, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.DB, err)
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create decision cache: %w", err)
	}

	factory, err := counting.NewFactory(counting.Options{
		CounterBits: cfg.CounterBits,
		Hasher:      cfg.Hasher,
		FPRate:      cfg.FPRate,
		Slots:       cfg.Slots,
		Hashes:      cfg.Hashes,
		Stripes:     cfg.Stripes,
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create filter factory: %w", err)
	}

	repo := membership.NewRepository(membership.Options{
		Store:    store,
		Cache:    cache,
		Factory:  factory,
		Capacity: cfg.Capacity,
		FPRate:   cfg.FPRate,
		Clock:    clk,
		Logger:   logger,
	})
	if err := repo.Rebuild(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load filter: %w", err)
	}

	return &application{config: cfg, store: store, repo: repo}, nil
}

func (app *application) Close() error {
	return app.store.Close()
}
