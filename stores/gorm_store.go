package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/anserhq/anser/models"
)

// ChatRecord is the relational projection of a chat. The full chat document
// lives in Payload; the indexed columns exist for listing and ownership
// checks.
type ChatRecord struct {
	gorm.Model
	ChatID    string `gorm:"uniqueIndex;not null"`
	UserID    string `gorm:"index;not null"`
	Title     string `gorm:"type:text"`
	SharePath string
	SavedAt   int64  `gorm:"index;not null"`
	Payload   string `gorm:"type:json"`
}

// SearchHistoryRecord stores one search-history entry.
type SearchHistoryRecord struct {
	gorm.Model
	UserID    string `gorm:"index;not null"`
	Timestamp int64  `gorm:"index;not null"`
	Payload   string `gorm:"type:json"`
}

// ModelsConfigRecord is the single-row model configuration document.
type ModelsConfigRecord struct {
	gorm.Model
	Payload string `gorm:"type:json"`
}

// UserRecord stores one user profile.
type UserRecord struct {
	gorm.Model
	UserID  string `gorm:"uniqueIndex;not null"`
	Payload string `gorm:"type:json"`
}

// GormStore implements Store on any gorm dialector. SQLiteStore and
// PostgresStore supply the dialector through open.
type GormStore struct {
	db   *gorm.DB
	open func() (*gorm.DB, error)
}

// Connect opens the database and migrates the schema.
func (s *GormStore) Connect() error {
	db, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	if err := s.db.AutoMigrate(&ChatRecord{}, &SearchHistoryRecord{}, &ModelsConfigRecord{}, &UserRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *GormStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive.
func (s *GormStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (s *GormStore) findChat(id string) (*ChatRecord, error) {
	var rec ChatRecord
	err := s.db.Where("chat_id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func decodeChat(rec *ChatRecord) (*models.Chat, error) {
	var chat models.Chat
	if err := json.Unmarshal([]byte(rec.Payload), &chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat %s: %w", rec.ChatID, err)
	}
	return &chat, nil
}

// GetChat fetches a chat owned by userID.
func (s *GormStore) GetChat(id, userID string) (*models.Chat, error) {
	rec, err := s.findChat(id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}
	return decodeChat(rec)
}

// ListChats returns the user's chats, most recently saved first.
func (s *GormStore) ListChats(userID string) ([]*models.Chat, error) {
	var recs []ChatRecord
	if err := s.db.Where("user_id = ?", userID).Order("saved_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch chats: %w", err)
	}
	chats := make([]*models.Chat, 0, len(recs))
	for i := range recs {
		chat, err := decodeChat(&recs[i])
		if err != nil {
			log.Printf("Warning: skipping undecodable chat %s: %v", recs[i].ChatID, err)
			continue
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

// SaveChat upserts the chat document and its listing columns in one
// transaction.
func (s *GormStore) SaveChat(chat *models.Chat, userID string) error {
	if chat == nil || chat.ID == "" {
		return fmt.Errorf("chat id is required")
	}
	payload, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("failed to marshal chat %s: %w", chat.ID, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing ChatRecord
		err := tx.Where("chat_id = ?", chat.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec := ChatRecord{
				ChatID:    chat.ID,
				UserID:    userID,
				Title:     chat.Title,
				SharePath: chat.SharePath,
				SavedAt:   time.Now().UnixNano(),
				Payload:   string(payload),
			}
			return tx.Create(&rec).Error
		case err != nil:
			return err
		default:
			return tx.Model(&existing).Updates(map[string]interface{}{
				"title":      chat.Title,
				"share_path": chat.SharePath,
				"saved_at":   time.Now().UnixNano(),
				"payload":    string(payload),
			}).Error
		}
	})
}

// DeleteChat removes a chat owned by userID. Deletes are unscoped: a
// soft-deleted row would still hold the chat_id unique index and block a
// later save under the same id.
func (s *GormStore) DeleteChat(id, userID string) error {
	res := s.db.Unscoped().Where("chat_id = ? AND user_id = ?", id, userID).Delete(&ChatRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearChats removes all of the user's chats.
func (s *GormStore) ClearChats(userID string) error {
	return s.db.Unscoped().Where("user_id = ?", userID).Delete(&ChatRecord{}).Error
}

// ShareChat sets the chat's share path. Re-sharing returns the same path.
func (s *GormStore) ShareChat(id, userID string) (*models.Chat, error) {
	var shared *models.Chat
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec ChatRecord
		err := tx.Where("chat_id = ?", id).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if rec.UserID != userID {
			return ErrNotFound
		}
		chat, err := decodeChat(&rec)
		if err != nil {
			return err
		}
		if chat.SharePath != "" {
			shared = chat
			return nil
		}
		chat.SharePath = "/share/" + id
		payload, err := json.Marshal(chat)
		if err != nil {
			return fmt.Errorf("failed to marshal chat %s: %w", id, err)
		}
		if err := tx.Model(&rec).Updates(map[string]interface{}{
			"share_path": chat.SharePath,
			"payload":    string(payload),
		}).Error; err != nil {
			return err
		}
		shared = chat
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shared, nil
}

// GetSharedChat fetches a chat by id only if it has been shared.
func (s *GormStore) GetSharedChat(id string) (*models.Chat, error) {
	rec, err := s.findChat(id)
	if err != nil {
		return nil, err
	}
	if rec.SharePath == "" {
		return nil, ErrNotFound
	}
	return decodeChat(rec)
}

// SaveSearchHistory appends one search-history entry.
func (s *GormStore) SaveSearchHistory(userID string, entry models.SearchHistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal search history entry: %w", err)
	}
	rec := SearchHistoryRecord{
		UserID:    userID,
		Timestamp: entry.Timestamp.UnixNano(),
		Payload:   string(payload),
	}
	return s.db.Create(&rec).Error
}

// ListSearchHistory returns the user's search history, most recent first.
func (s *GormStore) ListSearchHistory(userID string, limit int) ([]models.SearchHistoryEntry, error) {
	query := s.db.Where("user_id = ?", userID).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var recs []SearchHistoryRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch search history: %w", err)
	}
	entries := make([]models.SearchHistoryEntry, 0, len(recs))
	for i := range recs {
		var entry models.SearchHistoryEntry
		if err := json.Unmarshal([]byte(recs[i].Payload), &entry); err != nil {
			log.Printf("Warning: skipping undecodable search history record %d: %v", recs[i].ID, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ClearSearchHistory removes all of the user's search history.
func (s *GormStore) ClearSearchHistory(userID string) error {
	return s.db.Unscoped().Where("user_id = ?", userID).Delete(&SearchHistoryRecord{}).Error
}

// PurgeSearchHistoryBefore deletes entries older than cutoff across all users.
func (s *GormStore) PurgeSearchHistoryBefore(cutoff time.Time) (int, error) {
	res := s.db.Unscoped().Where("timestamp < ?", cutoff.UnixNano()).Delete(&SearchHistoryRecord{})
	return int(res.RowsAffected), res.Error
}

// GetModels returns the shared model configuration document.
func (s *GormStore) GetModels() ([]models.ModelConfig, error) {
	var rec ModelsConfigRecord
	err := s.db.Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var configs []models.ModelConfig
	if err := json.Unmarshal([]byte(rec.Payload), &configs); err != nil {
		return nil, fmt.Errorf("failed to decode model configs: %w", err)
	}
	return configs, nil
}

// SaveModels replaces the shared model configuration document.
func (s *GormStore) SaveModels(configs []models.ModelConfig) error {
	payload, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to marshal model configs: %w", err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("1 = 1").Delete(&ModelsConfigRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&ModelsConfigRecord{Payload: string(payload)}).Error
	})
}

// GetUser fetches a user profile.
func (s *GormStore) GetUser(id string) (*models.User, error) {
	var rec UserRecord
	err := s.db.Where("user_id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal([]byte(rec.Payload), &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &user, nil
}

// SaveUser upserts a user profile.
func (s *GormStore) SaveUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var rec UserRecord
		err := tx.Where("user_id = ?", user.ID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&UserRecord{UserID: user.ID, Payload: string(payload)}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&rec).Update("payload", string(payload)).Error
	})
}
