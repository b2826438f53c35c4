package models

import "time"

// Chat is a full conversation record as persisted in the store. Saves are
// whole-object overwrites; messages are append-only during normal operation.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"userId"`
	Path      string    `json:"path,omitempty"`
	SharePath string    `json:"sharePath,omitempty"` // set once by sharing, never cleared
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// Shared reports whether the chat has been exposed via a public link.
func (c *Chat) Shared() bool {
	return c.SharePath != ""
}

// FirstInput returns the text of the earliest input/input_related message,
// used as the default chat title.
func (c *Chat) FirstInput() string {
	for i := range c.Messages {
		if c.Messages[i].Role != RoleUser {
			continue
		}
		if text, ok := c.Messages[i].InputText(); ok {
			return text
		}
	}
	return ""
}
