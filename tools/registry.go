package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/anserhq/anser/models"
)

// Tool pairs a declaration the model can see with the function that runs it.
// Exec returns the tool's structured output JSON-serialized, ready to be
// stored as a tool message's content.
type Tool struct {
	Name        string
	Description string
	Schema      jsonschema.Schema
	Exec        func(ctx context.Context, args json.RawMessage) (string, error)
}

// SearchArgs are the model-facing parameters of the search tool.
type SearchArgs struct {
	Query      string `json:"query" required:"true" description:"Search query string"`
	MaxResults int    `json:"max_results,omitempty" description:"Maximum number of results (default 10)"`
}

// RetrieveArgs are the model-facing parameters of the retrieve tool.
type RetrieveArgs struct {
	URL string `json:"url" required:"true" description:"HTTP or HTTPS URL to read"`
}

// VideoSearchArgs are the model-facing parameters of the videoSearch tool.
type VideoSearchArgs struct {
	Query string `json:"query" required:"true" description:"Video search query string"`
}

// Registry holds the tools available to the turn pipeline, keyed by name.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the tool but keeps
// its original position.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute runs a tool by name. Errors are returned both as a Go error and as
// a JSON error payload, so the model always receives something parseable.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return errorPayload(fmt.Errorf("unknown or unavailable tool: %s", name))
	}
	result, err := t.Exec(ctx, args)
	if err != nil {
		return errorPayload(err)
	}
	return result, nil
}

func errorPayload(err error) (string, error) {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b), err
}

// DefaultRegistry wires up the three answer-engine tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(Tool{
		Name:        ToolNameSearch,
		Description: "Search the web. Returns titles, URLs, and content snippets.",
		Schema:      mustReflect(SearchArgs{}),
		Exec: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args SearchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("invalid search arguments: %w", err)
			}
			results, err := Search(ctx, args.Query, args.MaxResults, "", nil, nil)
			if err != nil {
				return "", err
			}
			return marshalResult(results)
		},
	})

	r.Register(Tool{
		Name:        ToolNameRetrieve,
		Description: "Fetch a URL and extract its readable content as markdown.",
		Schema:      mustReflect(RetrieveArgs{}),
		Exec: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args RetrieveArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("invalid retrieve arguments: %w", err)
			}
			results, err := Retrieve(ctx, args.URL)
			if err != nil {
				return "", err
			}
			return marshalResult(results)
		},
	})

	r.Register(Tool{
		Name:        ToolNameVideoSearch,
		Description: "Search for videos. Returns titles, links, and thumbnails.",
		Schema:      mustReflect(VideoSearchArgs{}),
		Exec: func(ctx context.Context, raw json.RawMessage) (string, error) {
			var args VideoSearchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return "", fmt.Errorf("invalid videoSearch arguments: %w", err)
			}
			results, err := VideoSearch(ctx, args.Query)
			if err != nil {
				return "", err
			}
			return marshalResult(results)
		},
	})

	return r
}

// Tool names as the model and the message store see them.
const (
	ToolNameSearch      = models.ToolSearch
	ToolNameRetrieve    = models.ToolRetrieve
	ToolNameVideoSearch = models.ToolVideoSearch
)

func marshalResult(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(b), nil
}

func mustReflect(v interface{}) jsonschema.Schema {
	r := jsonschema.Reflector{}
	schema, err := r.Reflect(v)
	if err != nil {
		// Schemas are built from static struct definitions; failure here is a
		// programming error.
		log.Printf("Error reflecting tool schema for %T: %v", v, err)
	}
	return schema
}
