package stores

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/anserhq/anser/models"
)

// Key layout:
//
//	chat:<chatID>                            -> chatRecord JSON
//	user:chat:<userID>:<chatID>              -> save timestamp (unix nanos, decimal)
//	search:history:<userID>:<020d ts>-<06d n> -> SearchHistoryEntry JSON
//	models:config                            -> []ModelConfig JSON
//	user:profile:<userID>                    -> User JSON
//
// The user:chat index entry is written and deleted in the same batch as the
// chat record, so the record and the recency index cannot drift.

// PebbleStore implements Store on a local pebble database.
type PebbleStore struct {
	db   *pebble.DB
	path string
	seq  atomic.Uint64
}

// chatRecord is the stored shape of a chat plus its owner.
type chatRecord struct {
	UserID string      `json:"userId"`
	Chat   models.Chat `json:"chat"`
}

// NewPebbleStore opens (or creates) a pebble database at config.Connection.
func NewPebbleStore(config *StoreConfig) (*PebbleStore, error) {
	if config.Type != "pebble" {
		return nil, fmt.Errorf("invalid store type for pebble store: %s", config.Type)
	}
	store := &PebbleStore{path: config.Connection}
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}
	return store, nil
}

// Connect opens the database.
func (s *PebbleStore) Connect() error {
	db, err := pebble.Open(s.path, &pebble.Options{})
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// Close closes the database.
func (s *PebbleStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database handle is usable.
func (s *PebbleStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("pebble database is not open")
	}
	_, closer, err := s.db.Get(chatKey("__ping__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return err
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}

func chatKey(id string) []byte {
	return []byte("chat:" + id)
}

func chatIndexKey(userID, chatID string) []byte {
	return []byte("user:chat:" + userID + ":" + chatID)
}

func chatIndexPrefix(userID string) []byte {
	return []byte("user:chat:" + userID + ":")
}

func searchHistoryKey(userID string, ts time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("search:history:%s:%020d-%06d", userID, ts.UnixNano(), seq))
}

func searchHistoryPrefix(userID string) []byte {
	return []byte("search:history:" + userID + ":")
}

func userKey(id string) []byte {
	return []byte("user:profile:" + id)
}

var modelsConfigKey = []byte("models:config")

func (s *PebbleStore) getJSON(key []byte, out interface{}) error {
	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	defer closer.Close()
	return json.Unmarshal(data, out)
}

func (s *PebbleStore) getChatRecord(id string) (*chatRecord, error) {
	var rec chatRecord
	if err := s.getJSON(chatKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetChat fetches a chat owned by userID.
func (s *PebbleStore) GetChat(id, userID string) (*models.Chat, error) {
	rec, err := s.getChatRecord(id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}
	return &rec.Chat, nil
}

// ListChats returns the user's chats ordered by save time, most recent first.
func (s *PebbleStore) ListChats(userID string) ([]*models.Chat, error) {
	type indexEntry struct {
		chatID string
		ts     int64
	}

	prefix := chatIndexPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []indexEntry
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		ts, parseErr := strconv.ParseInt(string(iter.Value()), 10, 64)
		if parseErr != nil {
			log.Printf("Warning: malformed chat index value for key %s: %v", key, parseErr)
			continue
		}
		entries = append(entries, indexEntry{
			chatID: string(key[len(prefix):]),
			ts:     ts,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	// Most recent first.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ts > entries[j].ts })

	chats := make([]*models.Chat, 0, len(entries))
	for _, e := range entries {
		rec, getErr := s.getChatRecord(e.chatID)
		if getErr != nil {
			if errors.Is(getErr, ErrNotFound) {
				log.Printf("Warning: chat index points at missing chat %s", e.chatID)
				continue
			}
			return nil, getErr
		}
		chats = append(chats, &rec.Chat)
	}
	return chats, nil
}

// SaveChat upserts the chat record and its recency-index entry atomically.
func (s *PebbleStore) SaveChat(chat *models.Chat, userID string) error {
	if chat == nil || chat.ID == "" {
		return fmt.Errorf("chat id is required")
	}
	data, err := json.Marshal(chatRecord{UserID: userID, Chat: *chat})
	if err != nil {
		return fmt.Errorf("failed to marshal chat %s: %w", chat.ID, err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(chatKey(chat.ID), data, nil); err != nil {
		return err
	}
	ts := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := batch.Set(chatIndexKey(userID, chat.ID), []byte(ts), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// DeleteChat removes the chat record and its index entry atomically.
func (s *PebbleStore) DeleteChat(id, userID string) error {
	if _, err := s.GetChat(id, userID); err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(chatKey(id), nil); err != nil {
		return err
	}
	if err := batch.Delete(chatIndexKey(userID, id), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// ClearChats deletes all of the user's chats and index entries in one batch.
func (s *PebbleStore) ClearChats(userID string) error {
	prefix := chatIndexPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	batch := s.db.NewBatch()
	defer batch.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		chatID := string(key[len(prefix):])
		if err := batch.Delete(chatKey(chatID), nil); err != nil {
			return err
		}
		if err := batch.Delete(append([]byte(nil), key...), nil); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// ShareChat marks the chat shared and returns it. Re-sharing is a no-op that
// returns the existing path.
func (s *PebbleStore) ShareChat(id, userID string) (*models.Chat, error) {
	rec, err := s.getChatRecord(id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, ErrNotFound
	}
	if rec.Chat.SharePath != "" {
		return &rec.Chat, nil
	}
	rec.Chat.SharePath = "/share/" + id

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat %s: %w", id, err)
	}
	if err := s.db.Set(chatKey(id), data, pebble.Sync); err != nil {
		return nil, err
	}
	return &rec.Chat, nil
}

// GetSharedChat fetches a chat by id regardless of owner, but only if it has
// been shared.
func (s *PebbleStore) GetSharedChat(id string) (*models.Chat, error) {
	rec, err := s.getChatRecord(id)
	if err != nil {
		return nil, err
	}
	if !rec.Chat.Shared() {
		return nil, ErrNotFound
	}
	return &rec.Chat, nil
}

// SaveSearchHistory appends one search-history entry for the user.
func (s *PebbleStore) SaveSearchHistory(userID string, entry models.SearchHistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal search history entry: %w", err)
	}
	key := searchHistoryKey(userID, entry.Timestamp, s.seq.Add(1))
	return s.db.Set(key, data, pebble.Sync)
}

// ListSearchHistory returns the user's search history, most recent first.
// limit <= 0 returns everything.
func (s *PebbleStore) ListSearchHistory(userID string, limit int) ([]models.SearchHistoryEntry, error) {
	prefix := searchHistoryPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []models.SearchHistoryEntry
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var entry models.SearchHistoryEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			log.Printf("Warning: malformed search history entry at %s: %v", iter.Key(), err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	// Keys sort oldest first; reverse for recency order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ClearSearchHistory removes all of the user's search history.
func (s *PebbleStore) ClearSearchHistory(userID string) error {
	prefix := searchHistoryPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()

	batch := s.db.NewBatch()
	defer batch.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// PurgeSearchHistoryBefore deletes search-history entries older than cutoff
// across all users.
func (s *PebbleStore) PurgeSearchHistoryBefore(cutoff time.Time) (int, error) {
	prefix := []byte("search:history:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	batch := s.db.NewBatch()
	defer batch.Close()
	removed := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var entry models.SearchHistoryEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			// Unreadable entries are purged too.
			if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				return removed, err
			}
			removed++
			continue
		}
		if entry.Timestamp.Before(cutoff) {
			if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
				return removed, err
			}
			removed++
		}
	}
	if err := iter.Error(); err != nil {
		return removed, err
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, batch.Commit(pebble.Sync)
}

// GetModels returns the shared model configuration document.
func (s *PebbleStore) GetModels() ([]models.ModelConfig, error) {
	var configs []models.ModelConfig
	if err := s.getJSON(modelsConfigKey, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// SaveModels overwrites the shared model configuration document.
func (s *PebbleStore) SaveModels(configs []models.ModelConfig) error {
	data, err := json.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to marshal model configs: %w", err)
	}
	return s.db.Set(modelsConfigKey, data, pebble.Sync)
}

// GetUser fetches a user profile.
func (s *PebbleStore) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.getJSON(userKey(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveUser upserts a user profile.
func (s *PebbleStore) SaveUser(user *models.User) error {
	if user == nil || user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	return s.db.Set(userKey(user.ID), data, pebble.Sync)
}
