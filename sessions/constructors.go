package sessions

import (
	"log"
	"time"

	"github.com/gorilla/websocket"

	anser "github.com/anserhq/anser"
	"github.com/anserhq/anser/providers"
)

// NewChatSession creates a session for one open conversation over a
// WebSocket connection.
func NewChatSession(chatID, userID string, conn *websocket.Conn, config *anser.Config, model providers.Model) *ChatSession {
	logger := log.New(log.Writer(), "[SESSION "+chatID+"] ", log.LstdFlags)
	return &ChatSession{
		ChatID: chatID,
		UserID: userID,
		Writer: &StreamWriter{
			Conn:      conn,
			Logger:    logger,
			StartTime: time.Now(),
		},
		Store:              config.Store,
		Pipeline:           anser.NewEngine(config),
		Model:              model,
		Logger:             logger,
		KeepHistoryOnError: config.KeepHistoryOnError,
	}
}
