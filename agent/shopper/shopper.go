package shopper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	cartx "github.com/pattaradanai/shopmate/agent/cart"
	catalogx "github.com/pattaradanai/shopmate/agent/catalog"
	contractx "github.com/pattaradanai/shopmate/agent/contract"
	promptx "github.com/pattaradanai/shopmate/agent/prompt"
	toolx "github.com/pattaradanai/shopmate/agent/tool"
	openrouterx "github.com/pattaradanai/shopmate/pkg/openrouter"
)

// maxToolRounds bounds the generate/tool loop so a model that keeps
// requesting tools cannot spin a turn forever.
const maxToolRounds = 6

// Shopper drives the tool-calling conversation with the LLM. It owns the
// system prompt and the cart.manage tool; callers own the history.
type Shopper struct {
	chatModel    einomodel.ToolCallingChatModel
	executor     toolx.Executor
	systemPrompt string
}

var _ contractx.Shopper = (*Shopper)(nil)

func New(ctx context.Context, builder openrouterx.LLMBuilder, cat *catalogx.Catalog) (*Shopper, error) {
	if builder == nil {
		return nil, fmt.Errorf("%w: llm builder is required", contractx.ErrValidation)
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}

	chatModel, err := builder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create shopper model: %v", contractx.ErrModelInvoke, err)
	}

	infos, executor := toolx.BuildForShopper(cat)
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind shopper tools: %v", contractx.ErrModelInvoke, err)
	}

	return &Shopper{
		chatModel:    toolModel,
		executor:     executor,
		systemPrompt: promptx.ShopperWithCatalog(cat.Names()),
	}, nil
}

// NewWithModel wires a shopper around an existing chat model. Used by tests
// and by callers that manage model construction themselves.
func NewWithModel(chatModel einomodel.ToolCallingChatModel, cat *catalogx.Catalog) (*Shopper, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: catalog is required", contractx.ErrValidation)
	}
	infos, executor := toolx.BuildForShopper(cat)
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind shopper tools: %v", contractx.ErrModelInvoke, err)
	}
	return &Shopper{
		chatModel:    toolModel,
		executor:     executor,
		systemPrompt: promptx.ShopperWithCatalog(cat.Names()),
	}, nil
}

// Invoke runs one exchange: prior history plus the new user message go to
// the model; tool calls are executed locally and their decoded cart actions
// collected in call order; the final assistant message and the full
// replacement history come back to the caller.
func (s *Shopper) Invoke(ctx context.Context, text string, history []*schema.Message) (contractx.Reply, error) {
	messages := make([]*schema.Message, 0, len(history)+2)
	if len(history) == 0 {
		messages = append(messages, schema.SystemMessage(s.systemPrompt))
	} else {
		messages = append(messages, history...)
	}
	messages = append(messages, schema.UserMessage(text))

	var actions []cartx.Action
	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.chatModel.Generate(ctx, messages)
		if err != nil {
			return contractx.Reply{}, fmt.Errorf("%w: shopper generate: %v", contractx.ErrModelInvoke, err)
		}
		if resp == nil {
			return contractx.Reply{}, fmt.Errorf("%w: shopper returned nil message", contractx.ErrSchemaViolation)
		}
		messages = append(messages, resp)

		if len(resp.ToolCalls) == 0 {
			message := strings.TrimSpace(resp.Content)
			if message == "" {
				return contractx.Reply{}, fmt.Errorf("%w: shopper reply is empty", contractx.ErrSchemaViolation)
			}
			return contractx.Reply{
				Message: message,
				Actions: actions,
				History: messages,
			}, nil
		}

		for _, call := range resp.ToolCalls {
			outcome := s.execute(ctx, call)
			messages = append(messages, schema.ToolMessage(outcome.Content, call.ID))

			// Only successful cart.manage results echo a decodable
			// payload; explanatory text for a bad call fails here and
			// the call is skipped.
			action, err := toolx.DecodeAction(outcome.Content)
			if err != nil {
				log.Debug().Err(err).Str("tool", outcome.Tool).Msg("tool result carries no cart action")
				continue
			}
			actions = append(actions, action)
		}
	}

	return contractx.Reply{}, fmt.Errorf("%w: tool rounds exhausted after %d", contractx.ErrModelInvoke, maxToolRounds)
}

// execute runs one tool call. Undecodable payloads are skipped so a
// partially understood request still makes partial progress.
func (s *Shopper) execute(ctx context.Context, call schema.ToolCall) toolx.Outcome {
	name := strings.TrimSpace(call.Function.Name)

	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("skipping tool call with undecodable arguments")
			return toolx.Outcome{Tool: name, Content: "tool arguments could not be decoded"}
		}
	}

	outcome, err := s.executor(ctx, name, args)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Msg("tool execution failed, skipping")
		return toolx.Outcome{Tool: name, Content: "tool execution failed"}
	}
	return outcome
}
