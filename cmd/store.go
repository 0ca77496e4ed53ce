package main

import (
	"context"

	"github.com/sells-group/movie-etl/internal/store"
)

// initStore opens the configured store with the run log migrated.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}
