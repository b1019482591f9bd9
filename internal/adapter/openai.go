package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// openAICompatible is the reference Adapter implementation: any endpoint
// speaking the OpenAI chat-completions wire format, addressed per-preset
// via ModelPreset.BaseURL/APIKey (unlike the teacher, which wires a
// single global provider — spec.md §4.3 requires per-preset endpoints).
// Grounded on internal/agent/providers/openai.go's streaming accumulation
// pattern, translated onto this package's StreamEvent contract.
type openAICompatible struct{}

// NewOpenAICompatible returns the reference "openai-compatible" Adapter.
func NewOpenAICompatible() Adapter {
	return &openAICompatible{}
}

// Protocol implements Adapter.
func (a *openAICompatible) Protocol() string { return "openai-compatible" }

// CallAPI implements Adapter.
func (a *openAICompatible) CallAPI(ctx context.Context, preset types.ModelPreset, messages []types.Message, tools []types.FunctionDefinitionSchema, llm types.LLMConfig) (<-chan StreamEvent, error) {
	if preset.APIKey == "" {
		return nil, errors.New("adapter: preset has no api_key configured")
	}

	clientCfg := openai.DefaultConfig(preset.APIKey)
	if preset.BaseURL != "" {
		clientCfg.BaseURL = preset.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	oaMessages, err := convertMessages(messages)
	if err != nil {
		return nil, fmt.Errorf("adapter: convert messages: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       preset.Model,
		Messages:    oaMessages,
		Stream:      true,
		Temperature: float32(preset.Config.Temperature),
	}
	if preset.Config.TopP > 0 {
		req.TopP = float32(preset.Config.TopP)
	}
	if llm.MaxTokens > 0 {
		req.MaxTokens = llm.MaxTokens
	}
	if len(tools) > 0 {
		req.Tools = convertTools(tools)
	}

	var stream *openai.ChatCompletionStream
	retryCfg := defaultBackoffConfig(llm.MaxRetries)
	if !llm.AutoRetry {
		retryCfg.MaxAttempts = 1
	}
	err = withRetry(ctx, retryCfg, func(attempt int) error {
		s, err := client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adapter: create stream: %w", err)
	}

	events := make(chan StreamEvent)
	go a.processStream(ctx, stream, events)
	return events, nil
}

// processStream drains the OpenAI SDK's stream, forwarding text deltas
// immediately and accumulating tool-call fragments by index (OpenAI
// streams id/name in the first fragment for an index, then argument
// fragments in subsequent ones). Exactly one Final or Err event is sent
// before events is closed.
type building struct {
	id, name, args string
}

func (a *openAICompatible) processStream(ctx context.Context, stream *openai.ChatCompletionStream, events chan<- StreamEvent) {
	defer close(events)
	defer stream.Close()

	byIndex := make(map[int]*building)
	order := make([]int, 0, 4)
	var content string
	var usage *types.UniResponseUsage

	for {
		select {
		case <-ctx.Done():
			events <- StreamEvent{Err: ctx.Err()}
			return
		default:
		}

		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				events <- StreamEvent{Final: &types.UniResponse{
					Role:      types.RoleAssistant,
					Content:   content,
					Usage:     usage,
					ToolCalls: finishToolCalls(byIndex, order),
				}}
				return
			}
			events <- StreamEvent{Err: fmt.Errorf("adapter: stream recv: %w", err)}
			return
		}

		if resp.Usage != nil {
			usage = &types.UniResponseUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			content += delta.Content
			events <- StreamEvent{Text: delta.Content}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			b, ok := byIndex[idx]
			if !ok {
				b = &building{}
				byIndex[idx] = b
				order = append(order, idx)
			}
			if tc.ID != "" {
				b.id = tc.ID
			}
			if tc.Function.Name != "" {
				b.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				b.args += tc.Function.Arguments
				events <- StreamEvent{ToolCallDelta: &types.ToolCall{
					ID:   b.id,
					Type: "function",
					Function: types.ToolCallFunction{
						Name:      b.name,
						Arguments: tc.Function.Arguments,
					},
				}}
			}
		}
	}
}

func finishToolCalls(byIndex map[int]*building, order []int) []types.ToolCall {
	calls := make([]types.ToolCall, 0, len(order))
	for _, idx := range order {
		b := byIndex[idx]
		if b == nil || b.id == "" || b.name == "" {
			continue
		}
		calls = append(calls, types.ToolCall{
			ID:   b.id,
			Type: "function",
			Function: types.ToolCallFunction{
				Name:      b.name,
				Arguments: b.args,
			},
		})
	}
	return calls
}

func convertMessages(messages []types.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content.Text(),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out, nil
}

func convertTools(tools []types.FunctionDefinitionSchema) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params, _ := json.Marshal(t.Parameters)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}
	return out
}
