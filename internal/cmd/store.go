package cmd

import (
	"context"
	"errors"

	"github.com/promptlens/promptlens/internal/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
