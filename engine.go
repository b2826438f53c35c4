package anser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/lithammer/shortuuid/v4"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
	"github.com/anserhq/anser/tools"
)

// TurnEvent is one increment of a running turn. Exactly one field is set:
// Delta carries streamed answer text that has not been persisted yet; Message
// carries a completed message to append to the chat.
type TurnEvent struct {
	Delta   string
	Message *models.Message
}

// Engine drives one conversational turn: it streams the model, executes any
// tool calls it makes, feeds results back, and closes the turn with related
// queries, a followup marker, and the end sentinel. All messages emitted for
// a turn share one id.
type Engine struct {
	Registry      *tools.Registry
	SystemPrompt  string
	MaxToolRounds int
	Logger        *log.Logger
}

// NewEngine builds an engine from configuration.
func NewEngine(config *Config) *Engine {
	prompt := config.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	rounds := config.MaxToolRounds
	if rounds <= 0 {
		rounds = 4
	}
	return &Engine{
		Registry:      config.Registry,
		SystemPrompt:  prompt,
		MaxToolRounds: rounds,
		Logger:        log.New(log.Writer(), "[ENGINE] ", log.LstdFlags),
	}
}

// RunTurn executes one turn against the model. Events arrive on the first
// channel; at most one error on the second. On success the event stream ends
// with a TypeEnd sentinel message. On error the stream stops without the
// sentinel and the caller decides how to recover.
func (e *Engine) RunTurn(ctx context.Context, model providers.Model, history []models.Message) (<-chan TurnEvent, <-chan error) {
	eventChan := make(chan TurnEvent)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)

		turnID := shortuuid.New()
		working := e.buildModelMessages(history)
		decls := e.toolDecls()

		emit := func(ev TurnEvent) bool {
			select {
			case eventChan <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		emitMessage := func(msg models.Message) bool {
			return emit(TurnEvent{Message: &msg})
		}

		answer, err := e.runToolLoop(ctx, model, working, decls, turnID, emit)
		if err != nil {
			errChan <- err
			return
		}

		if !emitMessage(models.Message{
			ID:      turnID,
			Role:    models.RoleAssistant,
			Type:    models.TypeAnswer,
			Content: answer,
		}) {
			errChan <- ctx.Err()
			return
		}

		// Related queries are a best-effort enrichment; failure skips them.
		if related, err := e.relatedQueries(ctx, model, history, answer); err != nil {
			e.Logger.Printf("related query generation failed: %v", err)
		} else if len(related) > 0 {
			content, _ := json.Marshal(related)
			if !emitMessage(models.Message{
				ID:      turnID,
				Role:    models.RoleAssistant,
				Type:    models.TypeRelated,
				Content: string(content),
			}) {
				errChan <- ctx.Err()
				return
			}
		}

		if !emitMessage(models.Message{ID: turnID, Role: models.RoleAssistant, Type: models.TypeFollowup}) {
			errChan <- ctx.Err()
			return
		}
		emitMessage(models.Message{ID: turnID, Role: models.RoleAssistant, Type: models.TypeEnd})
	}()

	return eventChan, errChan
}

// runToolLoop streams the model, executing tool calls and feeding results
// back until the model answers in plain text or the round budget runs out.
func (e *Engine) runToolLoop(ctx context.Context, model providers.Model, working []providers.ChatMessage, decls []providers.ToolDecl, turnID string, emit func(TurnEvent) bool) (string, error) {
	maxRounds := e.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = 4
	}

	var answer strings.Builder
	for round := 0; round < maxRounds; round++ {
		text, calls, err := e.streamOnce(ctx, model, working, decls, emit)
		if err != nil {
			return "", err
		}
		answer.WriteString(text)

		if len(calls) == 0 {
			return answer.String(), nil
		}

		working = append(working, providers.ChatMessage{
			Role:      providers.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})
		for _, call := range calls {
			result, execErr := e.Registry.Execute(ctx, call.Name, call.Args)
			if execErr != nil {
				e.Logger.Printf("tool %s failed: %v", call.Name, execErr)
			}
			if !emit(TurnEvent{Message: &models.Message{
				ID:      turnID,
				Role:    models.RoleTool,
				Type:    models.TypeTool,
				Content: result,
				Name:    call.Name,
			}}) {
				return "", ctx.Err()
			}
			working = append(working, providers.ChatMessage{
				Role:       providers.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
		// Tool rounds after the first run without declarations so the model
		// must answer rather than loop forever.
		if round == maxRounds-2 {
			decls = nil
		}
	}
	return answer.String(), nil
}

// streamOnce consumes one model stream, forwarding text deltas and returning
// the accumulated text and tool calls.
func (e *Engine) streamOnce(ctx context.Context, model providers.Model, working []providers.ChatMessage, decls []providers.ToolDecl, emit func(TurnEvent) bool) (string, []providers.ToolCall, error) {
	chunkChan, errChan := model.Stream(ctx, working, decls)

	var text strings.Builder
	var calls []providers.ToolCall

	for {
		select {
		case chunk, ok := <-chunkChan:
			if !ok {
				chunkChan = nil
				break
			}
			if chunk.Text != "" {
				text.WriteString(chunk.Text)
				if !emit(TurnEvent{Delta: chunk.Text}) {
					return "", nil, ctx.Err()
				}
			}
			calls = append(calls, chunk.ToolCalls...)

		case streamErr, ok := <-errChan:
			if ok && streamErr != nil {
				return "", nil, fmt.Errorf("model stream failed: %w", streamErr)
			}
			errChan = nil
		}

		if chunkChan == nil && errChan == nil {
			return text.String(), calls, nil
		}
	}
}

// buildModelMessages converts persisted history into the provider request.
// Tool results are folded into user-role context entries, so the request is
// valid for providers that require strict call/response pairing.
func (e *Engine) buildModelMessages(history []models.Message) []providers.ChatMessage {
	windowed := models.WindowHistory(history, models.MaxModelMessages)

	out := make([]providers.ChatMessage, 0, len(windowed)+1)
	if e.SystemPrompt != "" {
		out = append(out, providers.ChatMessage{Role: providers.RoleSystem, Content: e.SystemPrompt})
	}
	for _, msg := range windowed {
		switch msg.Role {
		case models.RoleUser:
			text := msg.Content
			if parsed, ok := msg.InputText(); ok {
				text = parsed
			}
			out = append(out, providers.ChatMessage{Role: providers.RoleUser, Content: text})
		case models.RoleAssistant:
			if msg.Type != models.TypeAnswer {
				continue
			}
			out = append(out, providers.ChatMessage{Role: providers.RoleAssistant, Content: msg.Content})
		case models.RoleTool:
			out = append(out, providers.ChatMessage{
				Role:    providers.RoleUser,
				Content: fmt.Sprintf("Results from the %s tool:\n%s", msg.Name, msg.Content),
			})
		}
	}
	return out
}

func (e *Engine) toolDecls() []providers.ToolDecl {
	if e.Registry == nil {
		return nil
	}
	list := e.Registry.List()
	decls := make([]providers.ToolDecl, 0, len(list))
	for _, t := range list {
		decls = append(decls, providers.ToolDecl{
			Name:        t.Name,
			Description: t.Description,
			Schema:      t.Schema,
		})
	}
	return decls
}

const relatedQueriesPrompt = `Based on the conversation, suggest exactly three short follow-up search queries the user is likely to ask next. Respond with only a JSON array of three strings, no other text.`

// relatedQueries asks the model for follow-on suggestions after the answer.
func (e *Engine) relatedQueries(ctx context.Context, model providers.Model, history []models.Message, answer string) ([]string, error) {
	messages := e.buildModelMessages(history)
	messages = append(messages,
		providers.ChatMessage{Role: providers.RoleAssistant, Content: answer},
		providers.ChatMessage{Role: providers.RoleUser, Content: relatedQueriesPrompt},
	)

	raw, err := model.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	// Models occasionally wrap the array in a code fence.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var queries []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &queries); err != nil {
		return nil, fmt.Errorf("unparsable related queries %q: %w", raw, err)
	}
	if len(queries) > 3 {
		queries = queries[:3]
	}
	return queries, nil
}
