package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/hub"
	"github.com/ayalamanuliber/contractor-hub/internal/store"
)

// env wires the store and hub for a command invocation.
type env struct {
	Store store.Store
	Hub   *hub.Hub
}

func (e *env) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "hub.db"
		}
		s, err := store.NewSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv builds the hub over the configured sources and restores the
// latest persisted snapshot when one exists.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	loader := hub.NewLoader(cfg.Sources.ContractorCSV, cfg.Sources.CampaignDatabase)
	h := hub.New(loader, st, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
	if err := h.Restore(ctx); err != nil {
		zap.L().Warn("snapshot restore failed, starting cold", zap.Error(err))
	}

	return &env{Store: st, Hub: h}, nil
}
