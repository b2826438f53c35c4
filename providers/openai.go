package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIModel serves OpenAI and OpenAI-compatible APIs (Groq, DeepSeek, xAI,
// Fireworks, Ollama) through a configurable base URL.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel builds a model client. baseURL is optional; empty means the
// official OpenAI endpoint.
func NewOpenAIModel(apiKey, baseURL, model string) *OpenAIModel {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// ID returns the underlying model identifier.
func (m *OpenAIModel) ID() string { return m.model }

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		converted := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, call := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: string(call.Args),
				},
			})
		}
		out = append(out, converted)
	}
	return out
}

func toOpenAITools(tools []ToolDecl) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}
	return out
}

// Stream runs a streaming chat completion. Text deltas are forwarded as they
// arrive; tool-call deltas are accumulated by index and emitted as one chunk
// when the stream ends.
func (m *OpenAIModel) Stream(ctx context.Context, messages []ChatMessage, tools []ToolDecl) (<-chan Chunk, <-chan error) {
	chunkChan := make(chan Chunk)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		stream, err := m.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    m.model,
			Messages: toOpenAIMessages(messages),
			Tools:    toOpenAITools(tools),
			Stream:   true,
		})
		if err != nil {
			errChan <- fmt.Errorf("failed to start completion stream: %w", err)
			return
		}
		defer stream.Close()

		type toolCallAccum struct {
			id   string
			name string
			args []byte
		}
		accum := make(map[int]*toolCallAccum)

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				errChan <- fmt.Errorf("stream receive failed: %w", err)
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			delta := response.Choices[0].Delta
			if delta.Content != "" {
				select {
				case chunkChan <- Chunk{Text: delta.Content}:
				case <-ctx.Done():
					errChan <- ctx.Err()
					return
				}
			}
			for _, call := range delta.ToolCalls {
				idx := 0
				if call.Index != nil {
					idx = *call.Index
				}
				acc, ok := accum[idx]
				if !ok {
					acc = &toolCallAccum{}
					accum[idx] = acc
				}
				if call.ID != "" {
					acc.id = call.ID
				}
				if call.Function.Name != "" {
					acc.name = call.Function.Name
				}
				acc.args = append(acc.args, call.Function.Arguments...)
			}
		}

		if len(accum) > 0 {
			indexes := make([]int, 0, len(accum))
			for idx := range accum {
				indexes = append(indexes, idx)
			}
			sort.Ints(indexes)

			calls := make([]ToolCall, 0, len(accum))
			for _, idx := range indexes {
				acc := accum[idx]
				args := acc.args
				if len(args) == 0 {
					args = []byte("{}")
				}
				calls = append(calls, ToolCall{
					ID:   acc.id,
					Name: acc.name,
					Args: json.RawMessage(args),
				})
			}
			select {
			case chunkChan <- Chunk{ToolCalls: calls}:
			case <-ctx.Done():
				errChan <- ctx.Err()
			}
		}
	}()

	return chunkChan, errChan
}

// Complete runs a non-streaming completion and returns the full text.
func (m *OpenAIModel) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	response, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return response.Choices[0].Message.Content, nil
}
