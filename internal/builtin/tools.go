// Package builtin implements the reasoning and control tools every
// AmritaConfig-driven turn exposes by default (spec.md §4.10, ported
// from original_source's builtins/tools.py).
package builtin

import (
	"context"
	"encoding/json"

	"github.com/AmritaBot/AmritaCore/internal/toolset"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// StopToolName is the tool the agent loop intercepts before invocation
// to end the tool-call phase of an iteration (spec.md §4.9's loop
// pseudocode: "if name == agent_stop: mark stop, break").
const StopToolName = "agent_stop"

// ReasonToolName is the tool agent_thought_mode enforcement looks for.
const ReasonToolName = "think_and_reason"

// ProcessingMessageToolName streams the agent's stated intent to the
// user mid-turn without ending the loop.
const ProcessingMessageToolName = "processing_message"

type thinkArgs struct {
	Content string `json:"content" desc:"What you should do next"`
}

type stopArgs struct {
	Result string `json:"result,omitempty" desc:"Simply illustrate what you did during the chat task. (Optional)"`
}

type processingArgs struct {
	Content string `json:"content"`
}

// AgentStop builds the agent_stop control tool. The engine intercepts
// calls to this name before dispatch, so Invoke only runs if something
// calls it directly outside the normal loop path. Its schema is
// reflected from stopArgs rather than hand-built, the SimpleTool sugar
// path.
func AgentStop() toolset.Tool {
	return toolset.SimpleTool(StopToolName,
		"Call this tool to indicate that you have gathered enough information and are ready to formulate the final answer to the user. "+
			"After calling this, you should NOT call any other tools, but directly provide the completion.",
		func(ctx context.Context, args stopArgs) (string, error) {
			return args.Result, nil
		})
}

// ThinkAndReason builds the reasoning tool: its output becomes a
// tool-result message containing content and never terminates the loop
// (spec.md §4.10). Its schema is reflected from thinkArgs.
func ThinkAndReason() toolset.Tool {
	return toolset.SimpleTool(ReasonToolName,
		"Think about what you should do next, always call this tool to think when completing a tool call.",
		func(ctx context.Context, args thinkArgs) (string, error) {
			return args.Content, nil
		})
}

// ProcessingMessage builds the "thinking out loud" tool: it streams
// content to the user through the turn's YieldResponse hook, then
// returns an acknowledgement as the tool result, so the model sees the
// call as completed without terminating the loop.
func ProcessingMessage() toolset.Tool {
	schema := types.NewFunctionSchema(ProcessingMessageToolName,
		"Describe what the agent is currently doing and express the agent's internal thoughts to the user. "+
			"Use this when you need to communicate your current actions or internal reasoning to the user, not for general completion.")
	schema.Parameters.Properties["content"] = types.PropertySchema{
		Type:        "string",
		Description: "Message content, describe in the tone of system instructions what you are doing or interacting with the user.",
	}
	schema.Parameters.Required = []string{"content"}
	return processingMessageTool{schema: schema}
}

// processingMessageTool implements toolset.Tool directly rather than via
// OnTools because it needs the EventHandle to stream interim output —
// the sugar constructors never wire one through.
type processingMessageTool struct {
	schema types.FunctionDefinitionSchema
}

func (t processingMessageTool) Name() string                          { return t.schema.Name }
func (t processingMessageTool) Schema() types.FunctionDefinitionSchema { return t.schema }

func (t processingMessageTool) Invoke(ctx context.Context, raw json.RawMessage, handle toolset.EventHandle) (string, error) {
	var args processingArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", err
	}
	if handle != nil {
		if err := handle.YieldResponse(ctx, types.UniResponse{Role: types.RoleAssistant, Content: args.Content}); err != nil {
			return "", err
		}
	}
	return "acknowledged", nil
}

// RegisterAll installs every built-in tool into the global registry.
// ProcessingMessage is registered with WithCustomContext so the engine
// hands it a live EventHandle at invocation time.
func RegisterAll(r *toolset.Registry) {
	r.RegisterGlobal(AgentStop())
	r.RegisterGlobal(ThinkAndReason())
	r.RegisterGlobal(ProcessingMessage(), toolset.WithCustomContext())
}
