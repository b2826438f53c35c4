package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"

	anser "github.com/anserhq/anser"
	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
	"github.com/anserhq/anser/stores"
	"github.com/anserhq/anser/uistate"
)

// State of a chat session's turn machine.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateStreaming
)

// ErrTurnInFlight is returned when a submission arrives while a turn is
// already running for the same chat.
var ErrTurnInFlight = errors.New("a turn is already in flight for this chat")

// Pipeline runs one turn against a model. Implemented by the engine.
type Pipeline interface {
	RunTurn(ctx context.Context, model providers.Model, history []models.Message) (<-chan anser.TurnEvent, <-chan error)
}

// ChatSession owns one open conversation. It enforces at-most-one in-flight
// turn, appends messages to the conversation state, keeps the projected UI
// elements current, and persists the chat when a turn completes.
type ChatSession struct {
	ChatID   string
	UserID   string
	Writer   FrameWriter
	Store    stores.Store
	Pipeline Pipeline
	Model    providers.Model
	Logger   Logger

	// KeepHistoryOnError discards only the failed turn instead of resetting
	// the whole conversation.
	KeepHistoryOnError bool

	mu            sync.Mutex
	state         State
	chat          *models.Chat
	elements      []uistate.Element
	cancel        context.CancelFunc
	stopRequested bool
	turnDone      chan struct{}
}

// Logger is the subset of log.Logger the session uses.
type Logger interface {
	Printf(format string, v ...interface{})
}

// Load fetches the chat from the store, or starts a fresh one if it does not
// exist yet.
func (s *ChatSession) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, err := s.Store.GetChat(s.ChatID, s.UserID)
	switch {
	case err == nil:
		s.chat = chat
	case errors.Is(err, stores.ErrNotFound):
		s.chat = &models.Chat{
			ID:        s.ChatID,
			UserID:    s.UserID,
			Path:      "/search/" + s.ChatID,
			CreatedAt: time.Now(),
		}
	default:
		return err
	}
	s.reprojectLocked()
	return nil
}

// State returns the current turn state.
func (s *ChatSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation state.
func (s *ChatSession) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.chat.Messages...)
}

// Elements returns the current projected UI elements.
func (s *ChatSession) Elements() []uistate.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uistate.Element(nil), s.elements...)
}

// Grouped returns the current display units.
func (s *ChatSession) Grouped() []uistate.Grouped {
	return uistate.Group(s.Elements())
}

// Submit starts a turn for the user's input text. The user message is
// appended optimistically before any model activity. Returns ErrTurnInFlight
// if the session is not idle.
func (s *ChatSession) Submit(text string) error {
	return s.submit(models.NewInputMessage(shortuuid.New(), text))
}

// SubmitRelated starts a turn for a clicked related-query suggestion.
func (s *ChatSession) SubmitRelated(query string) error {
	return s.submit(models.NewRelatedInputMessage(shortuuid.New(), query))
}

func (s *ChatSession) submit(userMsg models.Message) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.state = StateSubmitting
	s.stopRequested = false

	// Optimistic append: the user sees their message before any network or
	// model activity.
	s.chat.Messages = append(s.chat.Messages, userMsg)
	s.reprojectLocked()
	baseline := len(s.chat.Messages) - 1

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.turnDone = done
	history := append([]models.Message(nil), s.chat.Messages...)
	s.mu.Unlock()

	s.writeFrame(Frame{Type: FrameUserMessage, Message: &userMsg})

	go func() {
		defer close(done)
		defer cancel()
		s.runTurn(ctx, history, baseline)
	}()
	return nil
}

// Wait blocks until the current turn finishes. No-op when idle.
func (s *ChatSession) Wait() {
	s.mu.Lock()
	done := s.turnDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop cancels the in-flight turn, keeping everything already appended. This
// is distinct from the failure path, which rolls back.
func (s *ChatSession) Stop() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.stopRequested = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Clear resets the session to a fresh conversation under a new chat id and
// removes the persisted record of the old one. Only available while idle.
func (s *ChatSession) Clear() error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	oldID := s.ChatID
	s.ChatID = shortuuid.New()
	s.chat = &models.Chat{
		ID:        s.ChatID,
		UserID:    s.UserID,
		Path:      "/search/" + s.ChatID,
		CreatedAt: time.Now(),
	}
	s.elements = nil
	s.mu.Unlock()

	if err := s.Store.DeleteChat(oldID, s.UserID); err != nil && !errors.Is(err, stores.ErrNotFound) {
		s.Logger.Printf("Error deleting chat %s on clear: %v", oldID, err)
	}
	s.writeFrame(Frame{Type: FrameCleared})
	return nil
}

func (s *ChatSession) runTurn(ctx context.Context, history []models.Message, baseline int) {
	s.setState(StateStreaming)

	eventChan, errChan := s.Pipeline.RunTurn(ctx, s.Model, history)

	completed := false
	var turnErr error
	for eventChan != nil || errChan != nil {
		select {
		case ev, ok := <-eventChan:
			if !ok {
				eventChan = nil
				continue
			}
			if ev.Delta != "" {
				s.writeFrame(Frame{Type: FrameDelta, Delta: ev.Delta})
			}
			if ev.Message != nil {
				if ev.Message.Type == models.TypeEnd {
					completed = true
				}
				s.appendMessage(*ev.Message)
				s.writeFrame(Frame{Type: FrameMessage, Message: ev.Message})
			}
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				turnErr = err
			}
		}
	}

	s.mu.Lock()
	stopped := s.stopRequested
	s.mu.Unlock()

	switch {
	case stopped:
		s.afterStop()
	case completed:
		s.finishTurn()
	case turnErr != nil:
		s.failTurn(turnErr, baseline)
	default:
		// Stream ended without sentinel or error; treat like a stop so the
		// appended elements survive.
		s.Logger.Printf("Turn for chat %s ended without sentinel", s.ChatID)
		s.afterStop()
	}
}

// finishTurn persists the chat and returns to idle. A persistence failure is
// surfaced but does not roll back the conversation.
func (s *ChatSession) finishTurn() {
	s.mu.Lock()
	if s.chat.Title == "" {
		s.chat.Title = s.chat.FirstInput()
	}
	chatCopy := *s.chat
	chatCopy.Messages = append([]models.Message(nil), s.chat.Messages...)
	s.state = StateIdle
	s.mu.Unlock()

	if err := s.Store.SaveChat(&chatCopy, s.UserID); err != nil {
		s.Logger.Printf("Error saving chat %s: %v", s.ChatID, err)
		s.writeFrame(Frame{Type: FrameError, Error: "Failed to save chat"})
	}
	s.writeFrame(Frame{Type: FrameDone})
}

// failTurn surfaces the error and rolls the conversation back. The default
// policy resets the whole conversation; KeepHistoryOnError trims only the
// failed turn.
func (s *ChatSession) failTurn(turnErr error, baseline int) {
	s.Logger.Printf("Turn failed for chat %s: %v", s.ChatID, turnErr)

	s.mu.Lock()
	if s.KeepHistoryOnError {
		s.chat.Messages = s.chat.Messages[:baseline]
	} else {
		s.chat.Messages = nil
	}
	s.reprojectLocked()
	s.state = StateIdle
	s.mu.Unlock()

	s.writeFrame(Frame{Type: FrameError, Error: "Something went wrong. The conversation has been reset."})
}

// afterStop returns to idle keeping already-appended elements.
func (s *ChatSession) afterStop() {
	s.setState(StateIdle)
	s.writeFrame(Frame{Type: FrameStopped})
}

func (s *ChatSession) appendMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat.Messages = append(s.chat.Messages, msg)
	s.reprojectLocked()
}

// reprojectLocked recomputes UI elements from the conversation state. Caller
// holds the mutex. Projection is pure, so recomputing on every change is safe.
func (s *ChatSession) reprojectLocked() {
	s.elements = uistate.Project(s.chat.Messages, uistate.Options{})
}

func (s *ChatSession) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *ChatSession) writeFrame(frame Frame) {
	if err := s.Writer.WriteFrame(frame); err != nil {
		s.Logger.Printf("Error writing %s frame: %v", frame.Type, err)
	}
}
