// Package types defines the wire-level records shared across the agent
// runtime: messages, tool calls, memory, schemas, presets, and responses.
package types

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentPart is a single piece of structured message content.
type ContentPart struct {
	Type string `json:"type"` // "text" or "image"
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part referencing a URL.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image", URL: url}
}

// ToolCall is a single function-call request emitted by the assistant.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // always "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the callee name and raw JSON arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded object
}

// ToolResult is the outcome of one tool invocation, appended to memory as
// a role="tool" message.
type ToolResult struct {
	Role       Role   `json:"role"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	ToolCallID string `json:"tool_call_id"`
}

// AsMessage converts a ToolResult to its Message representation for
// storage in MemoryModel.Messages.
func (t ToolResult) AsMessage() Message {
	return Message{
		Role:       RoleTool,
		Content:    NewStringContent(t.Content),
		Name:       t.Name,
		ToolCallID: t.ToolCallID,
	}
}

// Content is a sum type: either a bare string or a list of structured
// parts. Serialization collapses a single text part back to a bare
// string, matching spec.md §4.1.
type Content struct {
	text  string
	parts []ContentPart
	isSet bool
}

// NewStringContent builds a plain-text Content value.
func NewStringContent(text string) Content {
	return Content{text: text, isSet: true}
}

// NewPartsContent builds a structured Content value from parts.
func NewPartsContent(parts []ContentPart) Content {
	return Content{parts: parts, isSet: true}
}

// IsEmpty reports whether the content carries no text and no parts.
func (c Content) IsEmpty() bool {
	if !c.isSet {
		return true
	}
	if c.parts == nil {
		return c.text == ""
	}
	return len(c.parts) == 0
}

// IsStructured reports whether the content is a parts list rather than a
// bare string.
func (c Content) IsStructured() bool {
	return c.isSet && c.parts != nil
}

// Text renders the content as plain text, concatenating any text parts
// and ignoring non-text parts (used for token counting and summaries).
func (c Content) Text() string {
	if !c.isSet {
		return ""
	}
	if c.parts == nil {
		return c.text
	}
	out := ""
	for _, p := range c.parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// Parts returns the structured parts, or a single synthesized text part
// if the content is a bare string.
func (c Content) Parts() []ContentPart {
	if !c.isSet {
		return nil
	}
	if c.parts != nil {
		return c.parts
	}
	return []ContentPart{TextPart(c.text)}
}

// MarshalJSON collapses a single-text-part list to a bare string, per
// spec.md §4.1's serialization-compatibility rule.
func (c Content) MarshalJSON() ([]byte, error) {
	if !c.isSet {
		return []byte("null"), nil
	}
	if c.parts == nil {
		return json.Marshal(c.text)
	}
	if len(c.parts) == 1 && c.parts[0].Type == "text" {
		return json.Marshal(c.parts[0].Text)
	}
	return json.Marshal(c.parts)
}

// UnmarshalJSON accepts either a bare string or a list of content parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Content{}
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*c = NewStringContent(asString)
		return nil
	}
	var asParts []ContentPart
	if err := json.Unmarshal(data, &asParts); err != nil {
		return fmt.Errorf("content: neither a string nor a part list: %w", err)
	}
	*c = NewPartsContent(asParts)
	return nil
}

// Message is one entry in a conversation's memory.
type Message struct {
	Role       Role       `json:"role"`
	Content    Content    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// Validate enforces spec.md §4.1's invariant: an assistant message with
// both empty content and no tool calls is invalid.
func (m Message) Validate() error {
	if m.Role == RoleAssistant && m.Content.IsEmpty() && len(m.ToolCalls) == 0 {
		return fmt.Errorf("types: assistant message has neither content nor tool_calls")
	}
	return nil
}

// UserMessage builds a role=user message from plain text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: NewStringContent(text)}
}

// SystemMessage builds a role=system message from plain text.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: NewStringContent(text)}
}

// AssistantMessage builds a role=assistant message, optionally carrying
// tool calls.
func AssistantMessage(text string, toolCalls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: NewStringContent(text), ToolCalls: toolCalls}
}
