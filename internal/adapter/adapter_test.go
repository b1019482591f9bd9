package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

type stubAdapter struct{ tag string }

func (s stubAdapter) Protocol() string { return s.tag }
func (s stubAdapter) CallAPI(ctx context.Context, preset types.ModelPreset, messages []types.Message, tools []types.FunctionDefinitionSchema, llm types.LLMConfig) (<-chan StreamEvent, error) {
	ch := make(chan StreamEvent, 1)
	ch <- StreamEvent{Final: &types.UniResponse{Role: types.RoleAssistant, Content: "ok"}}
	close(ch)
	return ch, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAdapter{"proto-a"}, false))

	got, err := r.Get("proto-a")
	require.NoError(t, err)
	assert.Equal(t, "proto-a", got.Protocol())
}

func TestRegistryDuplicateWithoutOverrideFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAdapter{"proto-a"}, false))
	err := r.Register(stubAdapter{"proto-a"}, false)
	assert.ErrorIs(t, err, ErrProtocolExists)
}

func TestRegistryOverrideReplaces(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubAdapter{"proto-a"}, false))
	require.NoError(t, r.Register(stubAdapter{"proto-a"}, true))
}

func TestRegistryUnknownProtocol(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}

func TestConvertMessagesPreservesToolCalls(t *testing.T) {
	msgs := []types.Message{
		types.AssistantMessage("", []types.ToolCall{{ID: "1", Type: "function", Function: types.ToolCallFunction{Name: "foo", Arguments: "{}"}}}),
	}
	out, err := convertMessages(msgs)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].ToolCalls, 1)
	assert.Equal(t, "foo", out[0].ToolCalls[0].Function.Name)
}

func TestConvertToolsMarshalsParameters(t *testing.T) {
	schema := types.NewFunctionSchema("echo", "echoes")
	schema.Parameters.Properties["text"] = types.PropertySchema{Type: "string"}
	out := convertTools([]types.FunctionDefinitionSchema{schema})
	require.Len(t, out, 1)
	assert.Equal(t, "echo", out[0].Function.Name)
}

func TestFinishToolCallsSkipsIncomplete(t *testing.T) {
	byIndex := map[int]*building{
		0: {id: "1", name: "foo", args: "{}"},
		1: {id: "", name: "bar"},
	}
	calls := finishToolCalls(byIndex, []int{0, 1})
	require.Len(t, calls, 1)
	assert.Equal(t, "foo", calls[0].Function.Name)
}
