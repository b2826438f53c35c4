package providers

import (
	"context"
	"encoding/json"
	"fmt"

	jsonschema "github.com/swaggest/jsonschema-go"
	"google.golang.org/genai"
)

// GeminiModel serves Google Generative AI models.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a client for the Gemini API.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

// ID returns the underlying model identifier.
func (m *GeminiModel) ID() string { return m.model }

// schemaDoc is the subset of JSON Schema the Gemini API understands. Tool
// schemas are round-tripped through JSON rather than walking the reflector's
// internal representation.
type schemaDoc struct {
	Type        string                `json:"type,omitempty"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]*schemaDoc `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Items       *schemaDoc            `json:"items,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
}

func toGeminiSchema(schema jsonschema.Schema) (*genai.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool schema: %w", err)
	}
	var doc schemaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode tool schema: %w", err)
	}
	return convertSchemaDoc(&doc), nil
}

func convertSchemaDoc(doc *schemaDoc) *genai.Schema {
	if doc == nil {
		return nil
	}
	out := &genai.Schema{
		Description: doc.Description,
		Required:    doc.Required,
		Enum:        doc.Enum,
		Items:       convertSchemaDoc(doc.Items),
	}
	switch doc.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if len(doc.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(doc.Properties))
		for name, prop := range doc.Properties {
			out.Properties[name] = convertSchemaDoc(prop)
		}
	}
	return out
}

func toGeminiTools(tools []ToolDecl) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema, err := toGeminiSchema(t.Schema)
		if err != nil {
			return nil, err
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// toGeminiContents converts neutral messages into the Gemini request shape.
// System messages become the system instruction; tool results become
// function-response parts.
func toGeminiContents(messages []ChatMessage) ([]*genai.Content, *genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = genai.NewContentFromText(msg.Content, genai.RoleModel)
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			parts := []*genai.Part{}
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				var args map[string]any
				if len(call.Args) > 0 {
					if err := json.Unmarshal(call.Args, &args); err != nil {
						return nil, nil, fmt.Errorf("malformed tool call args for %s: %w", call.Name, err)
					}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: call.Name, Args: args},
				})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     msg.Name,
						Response: map[string]any{"output": msg.Content},
					},
				}},
			})
		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return contents, system, nil
}

// Stream runs a streaming generation. Function calls arrive fully formed in
// the stream and are forwarded as tool-call chunks.
func (m *GeminiModel) Stream(ctx context.Context, messages []ChatMessage, tools []ToolDecl) (<-chan Chunk, <-chan error) {
	contents, system, err := toGeminiContents(messages)
	if err != nil {
		return failedStream(err)
	}
	geminiTools, err := toGeminiTools(tools)
	if err != nil {
		return failedStream(err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Tools:             geminiTools,
	}

	chunkChan := make(chan Chunk)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		for response, err := range m.client.Models.GenerateContentStream(ctx, m.model, contents, config) {
			if err != nil {
				errChan <- fmt.Errorf("generation stream failed: %w", err)
				return
			}
			for _, chunk := range responseChunks(response) {
				select {
				case chunkChan <- chunk:
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			}
		}
	}()

	return chunkChan, errChan
}

func responseChunks(response *genai.GenerateContentResponse) []Chunk {
	var chunks []Chunk
	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				chunks = append(chunks, Chunk{Text: part.Text})
			}
			if part.FunctionCall != nil {
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				chunks = append(chunks, Chunk{ToolCalls: []ToolCall{{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: args,
				}}})
			}
		}
	}
	return chunks
}

// Complete runs a non-streaming generation and returns the full text.
func (m *GeminiModel) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	contents, system, err := toGeminiContents(messages)
	if err != nil {
		return "", err
	}
	response, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: system,
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return response.Text(), nil
}
