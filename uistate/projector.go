package uistate

import (
	"encoding/json"
	"log"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/tools"
)

// Options controls projection behavior.
type Options struct {
	// IsSharePage suppresses interactive affordances: related queries,
	// followup panels, and the share button itself.
	IsSharePage bool
}

// Project converts persisted history into ordered UI elements. It is pure:
// the same history always yields the same elements in the same order, and
// malformed content in one message never affects another.
func Project(history []models.Message, opts Options) []Element {
	shareDone := false
	elements := make([]Element, 0, len(history))

	for _, msg := range history {
		elem, ok := projectMessage(msg, opts, &shareDone)
		if !ok {
			continue
		}
		elements = append(elements, elem)
	}
	return elements
}

// projectMessage maps one message to an element. ok=false means the message
// is dropped from output entirely. A returned element with a nil Component is
// a placeholder: it keeps its grouping slot but renders nothing.
func projectMessage(msg models.Message, opts Options, shareDone *bool) (Element, bool) {
	if msg.Type == "" || msg.Type == models.TypeEnd {
		return Element{}, false
	}
	if opts.IsSharePage && (msg.Type == models.TypeRelated || msg.Type == models.TypeFollowup) {
		return Element{}, false
	}

	switch msg.Role {
	case models.RoleUser:
		return projectUser(msg, opts, shareDone)
	case models.RoleAssistant:
		return projectAssistant(msg)
	case models.RoleTool:
		return projectTool(msg)
	default:
		// Unknown roles keep their slot as an empty placeholder.
		return placeholder(msg.ID), true
	}
}

func projectUser(msg models.Message, opts Options, shareDone *bool) (Element, bool) {
	switch msg.Type {
	case models.TypeInput, models.TypeInputRelated:
		text, ok := msg.InputText()
		if !ok {
			return placeholder(msg.ID), true
		}
		showShare := false
		if !opts.IsSharePage && !*shareDone {
			showShare = true
			*shareDone = true
		}
		return finalized(msg.ID, UserMessage{Text: text, ShowShare: showShare}, false), true
	case models.TypeInquiry:
		return finalized(msg.ID, CopilotDisplay{Content: msg.Content}, false), true
	default:
		log.Printf("[PROJECT] unsupported user message type %q, dropping", msg.Type)
		return Element{}, false
	}
}

func projectAssistant(msg models.Message) (Element, bool) {
	switch msg.Type {
	case models.TypeAnswer:
		return finalized(msg.ID, AnswerSection{Text: msg.Content}, false), true
	case models.TypeRelated:
		queries, ok := msg.RelatedQueries()
		if !ok {
			return placeholder(msg.ID), true
		}
		return finalized(msg.ID, SearchRelated{Queries: queries}, false), true
	case models.TypeFollowup:
		return finalized(msg.ID, FollowupPanel{}, false), true
	default:
		log.Printf("[PROJECT] unsupported assistant message type %q, dropping", msg.Type)
		return Element{}, false
	}
}

func projectTool(msg models.Message) (Element, bool) {
	switch msg.Name {
	case models.ToolSearch:
		var results tools.SearchResults
		if err := json.Unmarshal([]byte(msg.Content), &results); err != nil {
			return placeholder(msg.ID), true
		}
		return finalized(msg.ID, SearchSection{Results: &results}, true), true
	case models.ToolRetrieve:
		var results tools.SearchResults
		if err := json.Unmarshal([]byte(msg.Content), &results); err != nil {
			return placeholder(msg.ID), true
		}
		return finalized(msg.ID, RetrieveSection{Results: &results}, true), true
	case models.ToolVideoSearch:
		var results tools.VideoSearchResults
		if err := json.Unmarshal([]byte(msg.Content), &results); err != nil {
			return placeholder(msg.ID), true
		}
		return finalized(msg.ID, VideoSearchSection{Results: &results}, true), true
	default:
		log.Printf("[PROJECT] unknown tool name %q, dropping", msg.Name)
		return Element{}, false
	}
}

func finalized(id string, c Component, collapsed bool) Element {
	return Element{
		ID:           id,
		Component:    c,
		IsGenerating: Resolved(false),
		IsCollapsed:  Resolved(collapsed),
	}
}

func placeholder(id string) Element {
	return Element{
		ID:           id,
		Component:    nil,
		IsGenerating: Resolved(false),
		IsCollapsed:  Resolved(false),
	}
}
