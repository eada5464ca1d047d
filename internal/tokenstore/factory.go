package tokenstore

import (
	"fmt"
	"log/slog"
)

const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// New creates a store of storeType. The connection string is a file path
// (or ":memory:") for sqlite and a redis:// URL for redis; memory ignores it.
func New(storeType, connectionString string) (store Store, err error) {
	switch storeType {
	case "", TypeMemory:
		store = NewMemoryStore()
	case TypeSQLite:
		store, err = NewSQLiteStore(connectionString)
	case TypeRedis:
		store, err = NewRedisStore(connectionString)
	default:
		return nil, fmt.Errorf("unsupported token store: %s", storeType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s token store: %w", storeType, err)
	}

	slog.Info("token store ready", "type", storeType)
	return store, nil
}
