package stores

import (
	"errors"
	"time"

	"github.com/anserhq/anser/models"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("record not found")

// Store abstracts persistence for chats, search history, model configuration,
// and users. Chat writes keep the record and the owner's recency index in
// lockstep: a save or delete touches both or neither.
type Store interface {
	// Chat operations. Ownership is enforced: a chat is only visible to the
	// userID it was saved under, except through GetSharedChat.
	GetChat(id, userID string) (*models.Chat, error)
	ListChats(userID string) ([]*models.Chat, error)
	SaveChat(chat *models.Chat, userID string) error
	DeleteChat(id, userID string) error
	ClearChats(userID string) error
	// ShareChat sets the chat's share path. Re-sharing returns the same path.
	ShareChat(id, userID string) (*models.Chat, error)
	// GetSharedChat succeeds only for chats that have been shared.
	GetSharedChat(id string) (*models.Chat, error)

	// Search history operations.
	SaveSearchHistory(userID string, entry models.SearchHistoryEntry) error
	ListSearchHistory(userID string, limit int) ([]models.SearchHistoryEntry, error)
	ClearSearchHistory(userID string) error
	// PurgeSearchHistoryBefore deletes entries older than cutoff across all
	// users and reports how many were removed.
	PurgeSearchHistoryBefore(cutoff time.Time) (int, error)

	// Model configuration is a single shared document.
	GetModels() ([]models.ModelConfig, error)
	SaveModels(configs []models.ModelConfig) error

	// User operations.
	GetUser(id string) (*models.User, error)
	SaveUser(user *models.User) error

	// Connection management.
	Connect() error
	Close() error
	Ping() error
}

// StoreConfig holds configuration for persistence backends.
type StoreConfig struct {
	Type       string            `json:"type"`       // "pebble", "sqlite", "postgres"
	Connection string            `json:"connection"` // directory path or DSN
	Options    map[string]string `json:"options"`
}

// NewStoreConfig creates a new store configuration.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
