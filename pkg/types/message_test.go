package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentCollapsesSingleTextPart(t *testing.T) {
	c := NewPartsContent([]ContentPart{TextPart("hello")})
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, string(data))
}

func TestContentRoundTripsStructured(t *testing.T) {
	c := NewPartsContent([]ContentPart{TextPart("hi"), ImagePart("http://x/y.png")})
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var out Content
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.IsStructured())
	assert.Len(t, out.Parts(), 2)
}

func TestContentUnmarshalsBareString(t *testing.T) {
	var c Content
	require.NoError(t, json.Unmarshal([]byte(`"hi there"`), &c))
	assert.Equal(t, "hi there", c.Text())
	assert.False(t, c.IsStructured())
}

func TestMessageValidateRejectsEmptyAssistant(t *testing.T) {
	msg := Message{Role: RoleAssistant, Content: Content{}}
	err := msg.Validate()
	assert.Error(t, err)
}

func TestMessageValidateAllowsToolCallsOnly(t *testing.T) {
	msg := Message{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{ID: "t1", Type: "function", Function: ToolCallFunction{Name: "echo"}}},
	}
	assert.NoError(t, msg.Validate())
}

func TestMemoryModelValidateToolLinkage(t *testing.T) {
	m := &MemoryModel{Messages: []Message{
		UserMessage("hi"),
		AssistantMessage("", []ToolCall{{ID: "t1", Type: "function", Function: ToolCallFunction{Name: "echo"}}}),
		ToolResult{Role: RoleTool, Name: "echo", Content: "hello!", ToolCallID: "t1"}.AsMessage(),
	}}
	assert.NoError(t, m.ValidateToolLinkage())

	bad := &MemoryModel{Messages: []Message{
		ToolResult{Role: RoleTool, Name: "echo", Content: "x", ToolCallID: "missing"}.AsMessage(),
	}}
	assert.Error(t, bad.ValidateToolLinkage())
}
