package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/config"
	dbRedis "github.com/kailas-cloud/entrydex/internal/db/redis"
	entryrepo "github.com/kailas-cloud/entrydex/internal/repository/entry"
	"github.com/kailas-cloud/entrydex/internal/repository/memory"
	"github.com/kailas-cloud/entrydex/internal/repository/seed"
	viewrepo "github.com/kailas-cloud/entrydex/internal/repository/view"
	accessuc "github.com/kailas-cloud/entrydex/internal/usecase/access"
	entriesuc "github.com/kailas-cloud/entrydex/internal/usecase/entries"
	healthuc "github.com/kailas-cloud/entrydex/internal/usecase/health"
)

// app is the composition root shared by serve and export.
type app struct {
	views   *viewrepo.Repo
	store   entriesuc.Store
	pinger  healthuc.DBPinger
	nonces  *accessuc.Nonces
	entries *entriesuc.Service
	close   func()
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	views, err := viewrepo.LoadFile(cfg.Views.Path)
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}
	logger.Info("Views loaded", zap.String("path", cfg.Views.Path), zap.Int("views", len(views.List())))

	a := &app{views: views, close: func() {}}
	switch cfg.Database.Driver {
	case "memory":
		mem := memory.New()
		if cfg.Database.SeedPath != "" {
			entries, err := seed.ReadFile(cfg.Database.SeedPath)
			if err != nil {
				return nil, fmt.Errorf("load seed: %w", err)
			}
			if err := mem.Upsert(ctx, entries); err != nil {
				return nil, fmt.Errorf("load seed: %w", err)
			}
			logger.Info("Seed entries loaded",
				zap.String("path", cfg.Database.SeedPath),
				zap.Int("entries", len(entries)),
			)
		}
		a.store, a.pinger = mem, mem
	case "redis":
		repo, store, err := openRedis(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		for _, form := range views.Forms() {
			if err := repo.EnsureIndex(ctx, form); err != nil {
				store.Close()
				return nil, fmt.Errorf("ensure index for form %s: %w", form.ID(), err)
			}
		}
		a.store, a.pinger, a.close = repo, store, store.Close
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	a.nonces, err = accessuc.NewNonces(cfg.Export.NonceSecret, time.Duration(cfg.Export.NonceTTLSec)*time.Second)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.Export.NonceSecret == "" {
		logger.Warn("export.nonce_secret is empty, export nonces will not survive a restart")
	}

	a.entries = entriesuc.New(views, a.store, accessuc.NewPolicy(), a.nonces, entriesuc.Config{
		BaseURL:         cfg.HTTP.BaseURL,
		DefaultPageSize: cfg.Export.DefaultPageSize,
		MaxPageSize:     cfg.Export.MaxPageSize,
		BOM:             cfg.Export.WithBOM(),
	})
	return a, nil
}

// openRedis connects to Redis and waits until it answers.
func openRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) (*entryrepo.Repo, *dbRedis.Store, error) {
	store, err := dbRedis.Open(ctx, dbRedis.Config{
		Addrs:            cfg.Database.Addrs,
		Password:         cfg.Database.Password,
		ReadinessTimeout: time.Duration(cfg.Database.ReadinessTimeout) * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	return entryrepo.New(store, cfg.Database.KeyPrefix), store, nil
}
