package models

import "encoding/json"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Message types further refining role semantics. A message with an empty
// type, or TypeEnd, is a bookkeeping entry and never renders.
const (
	TypeInput        = "input"         // user: {"input": "..."}
	TypeInputRelated = "input_related" // user: {"related_query": "..."}
	TypeInquiry      = "inquiry"       // user: raw content, no JSON envelope
	TypeAnswer       = "answer"        // assistant: final markdown text
	TypeRelated      = "related"       // assistant: JSON array of query strings
	TypeFollowup     = "followup"      // assistant: follow-up panel marker, content ignored
	TypeSkip         = "skip"
	TypeEnd          = "end" // sentinel closing a turn
	TypeTool         = "tool"
)

// Tool names carried in Message.Name for RoleTool messages.
const (
	ToolSearch      = "search"
	ToolRetrieve    = "retrieve"
	ToolVideoSearch = "videoSearch"
)

// Message is the persisted unit of conversation history. Several messages may
// share one ID on purpose: a tool call and its result, or the answer/related/
// followup trio of a single turn, all carry the turn's id so the UI layer can
// group them into one block.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Type    string `json:"type,omitempty"`
	Content string `json:"content"`
	// Name identifies which tool produced the result; set only for RoleTool.
	Name string `json:"name,omitempty"`
}

// InputPayload is the JSON envelope of a TypeInput message.
type InputPayload struct {
	Input string `json:"input"`
}

// RelatedQueryPayload is the JSON envelope of a TypeInputRelated message.
type RelatedQueryPayload struct {
	RelatedQuery string `json:"related_query"`
}

// InputText extracts the display text of an input or input_related message.
// Returns false on any parse failure so a single corrupted message degrades
// to rendering nothing instead of aborting the caller's pass.
func (m *Message) InputText() (string, bool) {
	switch m.Type {
	case TypeInput:
		var p InputPayload
		if err := json.Unmarshal([]byte(m.Content), &p); err != nil {
			return "", false
		}
		return p.Input, true
	case TypeInputRelated:
		var p RelatedQueryPayload
		if err := json.Unmarshal([]byte(m.Content), &p); err != nil {
			return "", false
		}
		return p.RelatedQuery, true
	}
	return "", false
}

// RelatedQueries parses the content of a TypeRelated message.
func (m *Message) RelatedQueries() ([]string, bool) {
	var queries []string
	if err := json.Unmarshal([]byte(m.Content), &queries); err != nil {
		return nil, false
	}
	return queries, true
}

// NewInputMessage wraps user input in its JSON envelope. Marshalling a
// struct with a single string field cannot fail.
func NewInputMessage(id, input string) Message {
	b, _ := json.Marshal(InputPayload{Input: input})
	return Message{ID: id, Role: RoleUser, Type: TypeInput, Content: string(b)}
}

// NewRelatedInputMessage wraps a clicked related-query suggestion.
func NewRelatedInputMessage(id, query string) Message {
	b, _ := json.Marshal(RelatedQueryPayload{RelatedQuery: query})
	return Message{ID: id, Role: RoleUser, Type: TypeInputRelated, Content: string(b)}
}
