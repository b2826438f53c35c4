package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anserhq/anser/models"
)

// SessionError represents errors that occur while driving a chat session.
type SessionError struct {
	Message string
	Fatal   bool
}

func (e *SessionError) Error() string {
	return e.Message
}

// Frame is one unit sent to the display layer over the live connection.
type Frame struct {
	Type    string          `json:"type"`
	Delta   string          `json:"delta,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Frame types.
const (
	FrameUserMessage = "user_message"
	FrameDelta       = "delta"
	FrameMessage     = "message"
	FrameError       = "error"
	FrameDone        = "done"
	FrameStopped     = "stopped"
	FrameCleared     = "cleared"
)

// FrameWriter delivers frames to the display layer.
type FrameWriter interface {
	WriteFrame(frame Frame) error
}

// StreamWriter writes frames to a WebSocket connection. Writes are serialized
// with a mutex; the first frame of a turn logs time-to-first-frame.
type StreamWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstFrameTime   *time.Time
	FirstFrameLogged bool
	mu               sync.Mutex
}

func (w *StreamWriter) WriteFrame(frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.FirstFrameLogged && w.FirstFrameTime == nil && !w.StartTime.IsZero() {
		now := time.Now()
		w.FirstFrameTime = &now
		w.Logger.Printf("Time to first frame: %v", now.Sub(w.StartTime))
		w.FirstFrameLogged = true
	}
	return w.Conn.WriteJSON(frame)
}
