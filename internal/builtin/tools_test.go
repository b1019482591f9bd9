package builtin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmritaBot/AmritaCore/internal/toolset"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

type fakeHandle struct {
	received []types.UniResponse
}

func (h *fakeHandle) YieldResponse(ctx context.Context, response types.UniResponse) error {
	h.received = append(h.received, response)
	return nil
}

func TestThinkAndReasonEchoesContent(t *testing.T) {
	tool := ThinkAndReason()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"content":"check the docs"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "check the docs", out)
}

func TestAgentStopReturnsResult(t *testing.T) {
	tool := AgentStop()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"result":"finished the task"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "finished the task", out)
}

func TestProcessingMessageStreamsThenAcknowledges(t *testing.T) {
	tool := ProcessingMessage()
	handle := &fakeHandle{}
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"content":"reading the config file"}`), handle)
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", out)
	require.Len(t, handle.received, 1)
	assert.Equal(t, "reading the config file", handle.received[0].Content)
}

func TestProcessingMessageToleratesNilHandle(t *testing.T) {
	tool := ProcessingMessage()
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"content":"x"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", out)
}

func TestRegisterAllRegistersThreeTools(t *testing.T) {
	r := toolset.NewRegistry()
	RegisterAll(r)
	cfg := types.DefaultAmritaConfig()
	names := map[string]bool{}
	for _, tool := range r.ListActive("", cfg, false) {
		names[tool.Name()] = true
	}
	assert.True(t, names[StopToolName])
	assert.True(t, names[ReasonToolName])
	assert.True(t, names[ProcessingMessageToolName])
}
