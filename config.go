package anser

import (
	"time"

	"github.com/anserhq/anser/stores"
	"github.com/anserhq/anser/tools"
)

// Config holds engine and session configuration.
type Config struct {
	Store         stores.Store
	Registry      *tools.Registry
	SystemPrompt  string
	MaxToolRounds int

	// KeepHistoryOnError disables the full-reset recovery: on a failed turn
	// only the failed turn's messages are discarded instead of the whole
	// conversation.
	KeepHistoryOnError bool

	// SearchHistoryRetention is how long search-history entries are kept
	// before the retention sweeper purges them.
	SearchHistoryRetention time.Duration
}

const defaultSystemPrompt = `You are a helpful answer engine. Use the available tools to search the web, retrieve pages, and find videos when the question needs current or external information. Always cite the sources you used. Answer in markdown.`

// NewConfig creates a configuration with default values. The default store is
// a local pebble database.
func NewConfig() *Config {
	defaultStore, err := stores.NewPebbleStoreDefault()
	if err != nil {
		panic("Failed to create default pebble store: " + err.Error())
	}
	return &Config{
		Store:                  defaultStore,
		Registry:               tools.DefaultRegistry(),
		SystemPrompt:           defaultSystemPrompt,
		MaxToolRounds:          4,
		SearchHistoryRetention: 90 * 24 * time.Hour,
	}
}

// WithStore sets the persistence backend.
func (c *Config) WithStore(store stores.Store) *Config {
	c.Store = store
	return c
}

// WithPebbleStore sets a pebble store at the given directory.
func (c *Config) WithPebbleStore(path string) *Config {
	store, err := stores.NewPebbleStore(stores.NewStoreConfig("pebble", path))
	if err != nil {
		panic("Failed to create pebble store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithSQLiteStore sets a SQLite store with the specified database path.
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	store, err := stores.NewSQLiteStoreSimple(dbPath)
	if err != nil {
		panic("Failed to create SQLite store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithPostgresStore sets a PostgreSQL store with the specified connection
// parameters.
func (c *Config) WithPostgresStore(host, user, password, dbname string, port int) *Config {
	store, err := stores.NewPostgresStoreDefault(host, user, password, dbname, port)
	if err != nil {
		panic("Failed to create PostgreSQL store: " + err.Error())
	}
	c.Store = store
	return c
}

// WithRegistry sets the tool registry.
func (c *Config) WithRegistry(registry *tools.Registry) *Config {
	c.Registry = registry
	return c
}

// WithSystemPrompt sets the system prompt.
func (c *Config) WithSystemPrompt(prompt string) *Config {
	c.SystemPrompt = prompt
	return c
}

// WithKeepHistoryOnError enables partial rollback on turn failure.
func (c *Config) WithKeepHistoryOnError(keep bool) *Config {
	c.KeepHistoryOnError = keep
	return c
}
