package sessions

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"

	"github.com/lithammer/shortuuid/v4"

	anser "github.com/anserhq/anser"
	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
	"github.com/anserhq/anser/stores"
)

// fakePipeline scripts turn outcomes. release, when set, blocks the turn
// until the test allows it to proceed.
type fakePipeline struct {
	fail    bool
	release chan struct{}
}

func (p *fakePipeline) RunTurn(ctx context.Context, model providers.Model, history []models.Message) (<-chan anser.TurnEvent, <-chan error) {
	eventChan := make(chan anser.TurnEvent)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		if p.release != nil {
			select {
			case <-p.release:
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if p.fail {
			errChan <- errors.New("pipeline exploded")
			return
		}
		turnID := shortuuid.New()
		for _, msg := range []models.Message{
			{ID: turnID, Role: models.RoleAssistant, Type: models.TypeAnswer, Content: "an answer"},
			{ID: turnID, Role: models.RoleAssistant, Type: models.TypeFollowup},
			{ID: turnID, Role: models.RoleAssistant, Type: models.TypeEnd},
		} {
			select {
			case eventChan <- anser.TurnEvent{Message: &msg}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return eventChan, errChan
}

// recordingWriter captures frames in memory.
type recordingWriter struct {
	mu     sync.Mutex
	frames []Frame
}

func (w *recordingWriter) WriteFrame(frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, frame)
	return nil
}

func (w *recordingWriter) types() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.frames))
	for i, f := range w.frames {
		out[i] = f.Type
	}
	return out
}

func newTestSession(t *testing.T, pipeline Pipeline) (*ChatSession, *recordingWriter) {
	t.Helper()
	store, err := stores.NewPebbleStore(stores.NewStoreConfig("pebble", t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	writer := &recordingWriter{}
	session := &ChatSession{
		ChatID:   "chat1",
		UserID:   "u1",
		Writer:   writer,
		Store:    store,
		Pipeline: pipeline,
		Logger:   log.New(log.Writer(), "[TEST] ", log.LstdFlags),
	}
	if err := session.Load(); err != nil {
		t.Fatal(err)
	}
	return session, writer
}

func TestSubmitHappyPath(t *testing.T) {
	session, writer := newTestSession(t, &fakePipeline{})

	if err := session.Submit("what is a pebble"); err != nil {
		t.Fatal(err)
	}
	session.Wait()

	if session.State() != StateIdle {
		t.Errorf("expected idle after turn, got %v", session.State())
	}

	messages := session.Messages()
	// user input + answer + followup + end sentinel
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Type != models.TypeInput {
		t.Errorf("first message should be the optimistic user input, got %q", messages[0].Type)
	}

	// End sentinel never projects; user + answer + followup do.
	if got := len(session.Elements()); got != 3 {
		t.Errorf("expected 3 projected elements, got %d", got)
	}

	frameTypes := writer.types()
	if frameTypes[0] != FrameUserMessage {
		t.Errorf("first frame should be the optimistic user message, got %q", frameTypes[0])
	}
	if frameTypes[len(frameTypes)-1] != FrameDone {
		t.Errorf("last frame should be done, got %q", frameTypes[len(frameTypes)-1])
	}

	// Completed turn is persisted with a derived title.
	saved, err := session.Store.GetChat("chat1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if saved.Title != "what is a pebble" {
		t.Errorf("expected title from first input, got %q", saved.Title)
	}
	if len(saved.Messages) != 4 {
		t.Errorf("expected full turn persisted, got %d messages", len(saved.Messages))
	}
}

func TestSubmitRejectsOverlappingTurn(t *testing.T) {
	release := make(chan struct{})
	session, _ := newTestSession(t, &fakePipeline{release: release})

	if err := session.Submit("first"); err != nil {
		t.Fatal(err)
	}
	if err := session.Submit("second"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}

	close(release)
	session.Wait()

	// Idle again: next submission is accepted.
	if err := session.Submit("third"); err != nil {
		t.Errorf("expected submission after turn completion to succeed, got %v", err)
	}
	session.Wait()
}

func TestRollbackOnFailure(t *testing.T) {
	session, writer := newTestSession(t, &fakePipeline{fail: true})

	if err := session.Submit("doomed question"); err != nil {
		t.Fatal(err)
	}
	session.Wait()

	if got := len(session.Messages()); got != 0 {
		t.Errorf("expected empty conversation after rollback, got %d messages", got)
	}
	if got := len(session.Elements()); got != 0 {
		t.Errorf("expected empty UI stream after rollback, got %d elements", got)
	}
	if session.State() != StateIdle {
		t.Errorf("expected idle after rollback, got %v", session.State())
	}

	var sawError bool
	for _, ft := range writer.types() {
		if ft == FrameError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("failure must surface an error frame")
	}
}

func TestKeepHistoryOnErrorTrimsOnlyFailedTurn(t *testing.T) {
	session, _ := newTestSession(t, &fakePipeline{})
	session.KeepHistoryOnError = true

	if err := session.Submit("good turn"); err != nil {
		t.Fatal(err)
	}
	session.Wait()
	kept := len(session.Messages())

	session.Pipeline = &fakePipeline{fail: true}
	if err := session.Submit("bad turn"); err != nil {
		t.Fatal(err)
	}
	session.Wait()

	if got := len(session.Messages()); got != kept {
		t.Errorf("expected only the failed turn trimmed, got %d messages (had %d)", got, kept)
	}
}

func TestStopKeepsAppendedElements(t *testing.T) {
	release := make(chan struct{})
	session, writer := newTestSession(t, &fakePipeline{release: release})

	if err := session.Submit("interrupted question"); err != nil {
		t.Fatal(err)
	}
	session.Stop()
	close(release)
	session.Wait()

	// The optimistic user message survives a stop.
	if got := len(session.Messages()); got != 1 {
		t.Errorf("expected user message kept after stop, got %d messages", got)
	}
	if got := len(session.Elements()); got != 1 {
		t.Errorf("expected user element kept after stop, got %d elements", got)
	}
	if session.State() != StateIdle {
		t.Errorf("expected idle after stop, got %v", session.State())
	}

	frameTypes := writer.types()
	if frameTypes[len(frameTypes)-1] != FrameStopped {
		t.Errorf("expected stopped frame last, got %q", frameTypes[len(frameTypes)-1])
	}
}

func TestClear(t *testing.T) {
	session, writer := newTestSession(t, &fakePipeline{})

	if err := session.Submit("to be cleared"); err != nil {
		t.Fatal(err)
	}
	session.Wait()

	if err := session.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := len(session.Messages()); got != 0 {
		t.Errorf("expected empty conversation after clear, got %d", got)
	}
	if session.ChatID == "chat1" || session.ChatID == "" {
		t.Errorf("expected a fresh chat id after clear, got %q", session.ChatID)
	}
	if _, err := session.Store.GetChat("chat1", "u1"); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("expected persisted record removed, got %v", err)
	}

	frameTypes := writer.types()
	if frameTypes[len(frameTypes)-1] != FrameCleared {
		t.Errorf("expected cleared frame last, got %q", frameTypes[len(frameTypes)-1])
	}
}
