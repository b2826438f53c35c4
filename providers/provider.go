package providers

import (
	"context"
	"encoding/json"

	jsonschema "github.com/swaggest/jsonschema-go"
)

// Roles of provider-neutral conversation entries.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one provider-neutral conversation entry sent to a model.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // set on assistant messages that invoked tools
	ToolCallID string     // set on tool result messages
	Name       string     // tool name on tool result messages
}

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID   string
	Name string
	Args json.RawMessage
}

// ToolDecl describes a tool the model may call.
type ToolDecl struct {
	Name        string
	Description string
	Schema      jsonschema.Schema
}

// Chunk is one increment of a streamed model response. Text chunks arrive as
// the model produces them; ToolCalls arrive once, fully accumulated, when the
// model finishes a tool-calling response.
type Chunk struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is a single configured LLM. Stream returns a channel pair: chunks on
// the first, at most one error on the second, both closed when the response
// completes.
type Model interface {
	ID() string
	Stream(ctx context.Context, messages []ChatMessage, tools []ToolDecl) (<-chan Chunk, <-chan error)
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// failedStream is the channel-pair shape of an immediate error, used by
// providers that fail before any network activity.
func failedStream(err error) (<-chan Chunk, <-chan error) {
	chunkChan := make(chan Chunk)
	errChan := make(chan error, 1)
	errChan <- err
	close(chunkChan)
	close(errChan)
	return chunkChan, errChan
}
