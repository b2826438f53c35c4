package uistate

import (
	"github.com/anserhq/anser/tools"
)

// Component is a renderable payload produced by projection. The concrete
// shape is what the display layer serializes to the client; this package only
// cares that each variant names its kind.
type Component interface {
	Kind() string
}

// Component kinds as the display layer sees them.
const (
	KindUserMessage    = "user_message"
	KindCopilotDisplay = "copilot_display"
	KindAnswer         = "answer"
	KindRelated        = "related"
	KindFollowup       = "followup"
	KindSearchResults  = "search_results"
	KindRetrieved      = "retrieved_page"
	KindVideoResults   = "video_results"
)

// UserMessage renders the user's submitted text. ShowShare marks the single
// element that carries the share affordance.
type UserMessage struct {
	Text      string `json:"text"`
	ShowShare bool   `json:"show_share"`
}

func (UserMessage) Kind() string { return KindUserMessage }

// CopilotDisplay renders an inquiry's raw content without parsing.
type CopilotDisplay struct {
	Content string `json:"content"`
}

func (CopilotDisplay) Kind() string { return KindCopilotDisplay }

// AnswerSection renders finalized answer markdown.
type AnswerSection struct {
	Text string `json:"text"`
}

func (AnswerSection) Kind() string { return KindAnswer }

// SearchRelated renders suggested follow-on queries.
type SearchRelated struct {
	Queries []string `json:"queries"`
}

func (SearchRelated) Kind() string { return KindRelated }

// FollowupPanel renders the fixed follow-up input affordance.
type FollowupPanel struct{}

func (FollowupPanel) Kind() string { return KindFollowup }

// SearchSection renders web search results.
type SearchSection struct {
	Results *tools.SearchResults `json:"results"`
}

func (SearchSection) Kind() string { return KindSearchResults }

// RetrieveSection renders a retrieved page.
type RetrieveSection struct {
	Results *tools.SearchResults `json:"results"`
}

func (RetrieveSection) Kind() string { return KindRetrieved }

// VideoSearchSection renders video search results.
type VideoSearchSection struct {
	Results *tools.VideoSearchResults `json:"results"`
}

func (VideoSearchSection) Kind() string { return KindVideoResults }

// Element is one projected UI entry. Component may be nil: such an element
// still occupies a grouping slot for its id but renders nothing.
type Element struct {
	ID           string
	Component    Component
	IsGenerating *Streamable[bool]
	IsCollapsed  *Streamable[bool]
}

// Grouped merges all same-id elements into one display unit. Components keeps
// encounter order and may contain nils for placeholder entries.
type Grouped struct {
	ID          string
	Components  []Component
	IsCollapsed *Streamable[bool]
}
