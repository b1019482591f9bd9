package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

func toolCallMsg(id string) types.Message {
	return types.AssistantMessage("", []types.ToolCall{{ID: id, Type: "function", Function: types.ToolCallFunction{Name: "f", Arguments: "{}"}}})
}

func toolResultMsg(id, content string) types.Message {
	return types.ToolResult{Role: types.RoleTool, Name: "f", Content: content, ToolCallID: id}.AsMessage()
}

func TestLimitLengthDropsOrphanedLeadingTool(t *testing.T) {
	mem := &types.MemoryModel{Messages: []types.Message{
		toolResultMsg("x", "orphan"),
		types.UserMessage("hi"),
		types.AssistantMessage("hello", nil),
	}}
	c := NewCompressor(nil, nil)
	dropped := c.limitLength(mem, 10)
	require.Len(t, dropped, 1)
	assert.Equal(t, types.RoleTool, dropped[0].Role)
	assert.Equal(t, types.RoleUser, mem.Messages[0].Role)
}

func TestLimitLengthPreservesToolCallGroups(t *testing.T) {
	mem := &types.MemoryModel{Messages: []types.Message{
		types.UserMessage("q1"),
		toolCallMsg("1"),
		toolResultMsg("1", "r1"),
		types.UserMessage("q2"),
		types.AssistantMessage("a2", nil),
	}}
	c := NewCompressor(nil, nil)
	dropped := c.limitLength(mem, 2)

	// The oldest group (user q1 alone, then the assistant+tool pair) must
	// never split an assistant tool_calls message from its tool result.
	for i, msg := range dropped {
		if len(msg.ToolCalls) > 0 {
			require.Less(t, i+1, len(dropped))
			assert.Equal(t, types.RoleTool, dropped[i+1].Role)
		}
	}
	assert.LessOrEqual(t, mem.NonSystemCount(), 2)
}

func TestLimitTokensDropsUntilUnderBudget(t *testing.T) {
	mem := &types.MemoryModel{Messages: []types.Message{
		types.UserMessage("aaaaaaaaaa"),
		types.AssistantMessage("bbbbbbbbbb", nil),
		types.UserMessage("short"),
	}}
	c := NewCompressor(nil, nil)
	dropped := c.limitTokens(mem, 3, 0)
	assert.NotEmpty(t, dropped)
	assert.LessOrEqual(t, c.countTokens(mem.Messages), 3)
}

func TestEnforceSummarizesDroppedMessages(t *testing.T) {
	mem := &types.MemoryModel{Messages: []types.Message{
		types.UserMessage("one"),
		types.AssistantMessage("two", nil),
		types.UserMessage("three"),
		types.AssistantMessage("four", nil),
	}}
	var capturedPrompt string
	summarizer := func(ctx context.Context, messages []types.Message) (types.UniResponse, error) {
		capturedPrompt = messages[len(messages)-1].Content.Text()
		return types.UniResponse{Role: types.RoleAssistant, Content: "summary", Usage: &types.UniResponseUsage{TotalTokens: 5}}, nil
	}
	c := NewCompressor(nil, summarizer)
	cfg := types.DefaultAmritaConfig()
	cfg.LLM.MemoryLengthLimit = 1
	cfg.LLM.EnableMemoryAbstract = true

	result := c.Enforce(context.Background(), mem, cfg, 0)
	require.NoError(t, result.SummaryError)
	assert.True(t, result.AbstractSet)
	assert.Equal(t, "summary", mem.Abstract)
	assert.NotEmpty(t, capturedPrompt)
	require.NotNil(t, result.UsageAdded)
	assert.Equal(t, 5, result.UsageAdded.TotalTokens)
}

func TestEnforceAppendsToRunningAbstractOnSecondPass(t *testing.T) {
	mem := &types.MemoryModel{
		Abstract: "first round summary",
		Messages: []types.Message{
			types.UserMessage("one"),
			types.AssistantMessage("two", nil),
			types.UserMessage("three"),
			types.AssistantMessage("four", nil),
		},
	}
	summarizer := func(ctx context.Context, messages []types.Message) (types.UniResponse, error) {
		return types.UniResponse{Role: types.RoleAssistant, Content: "second round summary"}, nil
	}
	c := NewCompressor(nil, summarizer)
	cfg := types.DefaultAmritaConfig()
	cfg.LLM.MemoryLengthLimit = 1
	cfg.LLM.EnableMemoryAbstract = true

	result := c.Enforce(context.Background(), mem, cfg, 0)
	require.NoError(t, result.SummaryError)
	assert.Contains(t, mem.Abstract, "first round summary")
	assert.Contains(t, mem.Abstract, "second round summary")
	assert.True(t, strings.Index(mem.Abstract, "first round summary") < strings.Index(mem.Abstract, "second round summary"))
}

func TestEnforceLeavesWindowIntactOnSummaryFailure(t *testing.T) {
	mem := &types.MemoryModel{Messages: []types.Message{
		types.UserMessage("one"),
		types.AssistantMessage("two", nil),
		types.UserMessage("three"),
	}}
	failing := func(ctx context.Context, messages []types.Message) (types.UniResponse, error) {
		return types.UniResponse{}, errors.New("boom")
	}
	c := NewCompressor(nil, failing)
	cfg := types.DefaultAmritaConfig()
	cfg.LLM.MemoryLengthLimit = 1
	cfg.LLM.EnableMemoryAbstract = true

	result := c.Enforce(context.Background(), mem, cfg, 0)
	assert.Error(t, result.SummaryError)
	assert.False(t, result.AbstractSet)
	assert.Empty(t, mem.Abstract)
}

func TestEnforceRespectsMemoryLengthLimitInvariant(t *testing.T) {
	mem := &types.MemoryModel{}
	for i := 0; i < 20; i++ {
		mem.Messages = append(mem.Messages, types.UserMessage("m"), types.AssistantMessage("r", nil))
	}
	c := NewCompressor(nil, nil)
	cfg := types.DefaultAmritaConfig()
	cfg.LLM.MemoryLengthLimit = 5
	cfg.LLM.EnableMemoryAbstract = false

	c.Enforce(context.Background(), mem, cfg, 0)
	assert.LessOrEqual(t, mem.NonSystemCount(), 5)
}
