package anser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
	"github.com/anserhq/anser/tools"
)

// fakeModel replays scripted responses, one per Stream call.
type fakeModel struct {
	responses   [][]providers.Chunk
	streamErr   error
	related     string
	relatedErr  error
	streamCalls int
}

func (f *fakeModel) ID() string { return "fake-model" }

func (f *fakeModel) Stream(ctx context.Context, messages []providers.ChatMessage, decls []providers.ToolDecl) (<-chan providers.Chunk, <-chan error) {
	chunkChan := make(chan providers.Chunk)
	errChan := make(chan error, 1)
	call := f.streamCalls
	f.streamCalls++

	go func() {
		defer close(chunkChan)
		defer close(errChan)
		if f.streamErr != nil {
			errChan <- f.streamErr
			return
		}
		if call >= len(f.responses) {
			errChan <- fmt.Errorf("unexpected stream call %d", call)
			return
		}
		for _, chunk := range f.responses[call] {
			chunkChan <- chunk
		}
	}()

	return chunkChan, errChan
}

func (f *fakeModel) Complete(ctx context.Context, messages []providers.ChatMessage) (string, error) {
	if f.relatedErr != nil {
		return "", f.relatedErr
	}
	return f.related, nil
}

// testConfig builds engine configuration without touching the filesystem.
func testConfig(r *tools.Registry) *Config {
	return &Config{Registry: r, SystemPrompt: defaultSystemPrompt, MaxToolRounds: 4}
}

// echoRegistry registers a single tool returning a fixed payload.
func echoRegistry(name, payload string) *tools.Registry {
	r := tools.NewRegistry()
	r.Register(tools.Tool{
		Name:        name,
		Description: "test tool",
		Exec: func(ctx context.Context, args json.RawMessage) (string, error) {
			return payload, nil
		},
	})
	return r
}

func collectTurn(t *testing.T, eventChan <-chan TurnEvent, errChan <-chan error) ([]models.Message, string, error) {
	t.Helper()
	var messages []models.Message
	var deltas string
	var turnErr error
	for eventChan != nil || errChan != nil {
		select {
		case ev, ok := <-eventChan:
			if !ok {
				eventChan = nil
				continue
			}
			if ev.Message != nil {
				messages = append(messages, *ev.Message)
			}
			deltas += ev.Delta
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
	return messages, deltas, turnErr
}

func TestRunTurnPlainAnswer(t *testing.T) {
	model := &fakeModel{
		responses: [][]providers.Chunk{
			{{Text: "Pebble is "}, {Text: "a key-value store."}},
		},
		related: `["pebble vs rocksdb","pebble compaction","lsm trees"]`,
	}
	engine := NewEngine(testConfig(tools.NewRegistry()))

	history := []models.Message{models.NewInputMessage("u1", "what is pebble")}
	eventChan, errChan := engine.RunTurn(context.Background(), model, history)
	messages, deltas, err := collectTurn(t, eventChan, errChan)
	if err != nil {
		t.Fatal(err)
	}

	if deltas != "Pebble is a key-value store." {
		t.Errorf("unexpected streamed text %q", deltas)
	}

	types := make([]string, len(messages))
	for i, m := range messages {
		types[i] = m.Type
	}
	want := []string{models.TypeAnswer, models.TypeRelated, models.TypeFollowup, models.TypeEnd}
	if len(types) != len(want) {
		t.Fatalf("got message types %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("got message types %v, want %v", types, want)
		}
	}

	// Every message of the turn shares one id.
	for _, m := range messages {
		if m.ID != messages[0].ID {
			t.Errorf("turn id not shared: %q vs %q", m.ID, messages[0].ID)
		}
	}

	var queries []string
	if err := json.Unmarshal([]byte(messages[1].Content), &queries); err != nil || len(queries) != 3 {
		t.Errorf("related message content %q not a 3-element array", messages[1].Content)
	}
}

func TestRunTurnWithToolCall(t *testing.T) {
	args, _ := json.Marshal(map[string]string{"query": "go pebble"})
	model := &fakeModel{
		responses: [][]providers.Chunk{
			{{ToolCalls: []providers.ToolCall{{ID: "call1", Name: "search", Args: args}}}},
			{{Text: "Found it."}},
		},
		related: `["a","b","c"]`,
	}
	engine := NewEngine(testConfig(echoRegistry("search", `{"query":"go pebble","results":[]}`)))

	history := []models.Message{models.NewInputMessage("u1", "search for go pebble")}
	eventChan, errChan := engine.RunTurn(context.Background(), model, history)
	messages, _, err := collectTurn(t, eventChan, errChan)
	if err != nil {
		t.Fatal(err)
	}

	if len(messages) == 0 || messages[0].Role != models.RoleTool {
		t.Fatalf("expected tool message first, got %+v", messages)
	}
	if messages[0].Name != "search" || messages[0].Content != `{"query":"go pebble","results":[]}` {
		t.Errorf("unexpected tool message %+v", messages[0])
	}
	last := messages[len(messages)-1]
	if last.Type != models.TypeEnd {
		t.Errorf("turn should end with sentinel, got %q", last.Type)
	}
	if model.streamCalls != 2 {
		t.Errorf("expected 2 stream rounds, got %d", model.streamCalls)
	}
}

func TestRunTurnStreamErrorOmitsSentinel(t *testing.T) {
	model := &fakeModel{streamErr: errors.New("provider unavailable")}
	engine := NewEngine(testConfig(tools.NewRegistry()))

	history := []models.Message{models.NewInputMessage("u1", "hello")}
	eventChan, errChan := engine.RunTurn(context.Background(), model, history)
	messages, _, err := collectTurn(t, eventChan, errChan)
	if err == nil {
		t.Fatal("expected turn error")
	}
	for _, m := range messages {
		if m.Type == models.TypeEnd {
			t.Error("failed turn must not emit the end sentinel")
		}
	}
}

func TestRunTurnRelatedFailureIsNonFatal(t *testing.T) {
	model := &fakeModel{
		responses: [][]providers.Chunk{{{Text: "answer"}}},
		relatedErr: errors.New("related generation down"),
	}
	engine := NewEngine(testConfig(tools.NewRegistry()))

	history := []models.Message{models.NewInputMessage("u1", "hello")}
	eventChan, errChan := engine.RunTurn(context.Background(), model, history)
	messages, _, err := collectTurn(t, eventChan, errChan)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range messages {
		if m.Type == models.TypeRelated {
			t.Error("related message should be skipped on generation failure")
		}
	}
	if messages[len(messages)-1].Type != models.TypeEnd {
		t.Error("turn should still end with sentinel")
	}
}

func TestBuildModelMessagesFoldsToolResults(t *testing.T) {
	engine := NewEngine(testConfig(tools.NewRegistry()))
	history := []models.Message{
		models.NewInputMessage("u1", "question"),
		{ID: "t1", Role: models.RoleTool, Type: models.TypeTool, Name: models.ToolSearch, Content: `{"results":[]}`},
		{ID: "t1", Role: models.RoleAssistant, Type: models.TypeAnswer, Content: "earlier answer"},
	}

	msgs := engine.buildModelMessages(history)
	if msgs[0].Role != providers.RoleSystem {
		t.Fatalf("expected system prompt first, got %q", msgs[0].Role)
	}
	var sawToolContext bool
	for _, m := range msgs {
		if m.Role == providers.RoleTool {
			t.Error("persisted tool results must not use the tool role in replayed history")
		}
		if m.Role == providers.RoleUser && m.Content != "question" {
			sawToolContext = true
		}
	}
	if !sawToolContext {
		t.Error("tool result should be folded into a user context entry")
	}
}
