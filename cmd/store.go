package cmd

import (
	"context"

	"examexport/config"
	"examexport/storage"
)

// openResultStore connects to the configured database and verifies it is reachable.
func openResultStore(ctx context.Context, db config.DatabaseConfig) (*storage.ResultStore, error) {
	dialect, err := storage.ParseDialect(db.Driver)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, dialect, db.DSN())
}
