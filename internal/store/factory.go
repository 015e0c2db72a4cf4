// Package store provides ObjectStore backends for entry persistence.
package store

import (
	"context"
	"fmt"

	"wt-go/internal/config"
	"wt-go/internal/database"
	"wt-go/internal/wt"
)

// NewStoreFromConfig creates an ObjectStore based on the store config type.
// A store that cannot be used for lack of settings returns an error wrapping
// wt.ErrConfiguration.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig) (wt.ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore("memory"), nil
	case "s3":
		s, err := NewS3Store(ctx, "s3", cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("%w: filesystem store requires fs_root to be set", wt.ErrConfiguration)
		}
		s, err := NewFileSystemStore("filesystem", cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("%w: sqlite store requires sqlite_path to be set", wt.ErrConfiguration)
		}
		s, err := database.OpenSQLiteStore(cfg.SQLitePath, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store type: %s", wt.ErrConfiguration, cfg.Type)
	}
}
