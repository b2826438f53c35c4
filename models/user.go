package models

import "time"

// Preferences holds per-user UI and behavior settings.
type Preferences struct {
	Theme                string `json:"theme,omitempty" binding:"omitempty,oneof=light dark system"`
	DefaultModel         string `json:"defaultModel,omitempty"`
	SearchMode           bool   `json:"searchMode,omitempty"`
	HistoryEnabled       bool   `json:"historyEnabled"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
}

// DefaultPreferences are returned for users who never saved any.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                "system",
		HistoryEnabled:       true,
		NotificationsEnabled: true,
	}
}

// User is the thin identity record; there is no authentication, the id is a
// bare client-supplied string.
type User struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"createdAt"`
	Preferences Preferences `json:"preferences"`
}

// SearchHistoryEntry records one search a user performed. Writing these is
// best-effort: a failed history write never blocks the search itself.
type SearchHistoryEntry struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
	Results   int       `json:"results"`
	Source    string    `json:"source"` // which tool produced it: search | videoSearch
}
