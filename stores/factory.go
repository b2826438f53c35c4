package stores

import (
	"fmt"
)

// NewStore creates a store from configuration. Pebble is the default backend;
// SQLite and PostgreSQL are available for deployments that already run a SQL
// database.
func NewStore(config *StoreConfig) (Store, error) {
	switch config.Type {
	case "pebble":
		return NewPebbleStore(config)
	case "sqlite":
		return NewSQLiteStore(config)
	case "postgres":
		return NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewPebbleStoreDefault opens a pebble store in the local data directory.
func NewPebbleStoreDefault() (Store, error) {
	return NewPebbleStore(NewStoreConfig("pebble", "data/anser.db"))
}
