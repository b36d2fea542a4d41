package main

import (
	"context"
	"fmt"

	"github.com/fedepagnotta/lotteryd/internal/logging"
	"github.com/fedepagnotta/lotteryd/internal/store"
)

// initStore constructs the configured bet persistence backend.
func initStore(ctx context.Context, cfg *appConfig) (store.Store, error) {
	switch cfg.storeBackend {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.storeDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		logging.L().Infof("action: store_init | result: success | backend: postgres")
		return s, nil
	default:
		s, err := store.NewFileStore(cfg.storePath)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		logging.L().Infof("action: store_init | result: success | backend: file | path: %s", cfg.storePath)
		return s, nil
	}
}
