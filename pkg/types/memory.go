package types

// MemoryModel is the ordered conversation history for one session, plus
// a running summary ("abstract") of anything compacted away.
//
// Invariants (spec.md §3): chronological order; every role="tool" message
// is preceded, not necessarily immediately, by an assistant message whose
// ToolCalls contains the matching ID; Abstract is authoritative for any
// messages the compressor has removed.
type MemoryModel struct {
	Messages []Message `json:"messages"`
	Time     float64   `json:"time"` // monotonic seconds at last mutation
	Abstract string    `json:"abstract"`
}

// NonSystemCount returns the count of non-system messages, the "L" used
// by the compression policy (spec.md §4.7).
func (m *MemoryModel) NonSystemCount() int {
	n := 0
	for _, msg := range m.Messages {
		if msg.Role != RoleSystem {
			n++
		}
	}
	return n
}

// Append adds a message to the end of memory.
func (m *MemoryModel) Append(msg Message) {
	m.Messages = append(m.Messages, msg)
}

// Clone returns a deep copy safe for a compressor or engine to mutate
// without affecting the caller's copy.
func (m *MemoryModel) Clone() MemoryModel {
	out := MemoryModel{
		Time:     m.Time,
		Abstract: m.Abstract,
		Messages: make([]Message, len(m.Messages)),
	}
	copy(out.Messages, m.Messages)
	return out
}

// ValidateToolLinkage checks invariant I1: every tool message's
// ToolCallID matches some earlier assistant ToolCall ID.
func (m *MemoryModel) ValidateToolLinkage() error {
	seen := map[string]bool{}
	for _, msg := range m.Messages {
		if msg.Role == RoleAssistant {
			for _, tc := range msg.ToolCalls {
				seen[tc.ID] = true
			}
			continue
		}
		if msg.Role == RoleTool {
			if !seen[msg.ToolCallID] {
				return &ToolLinkageError{ToolCallID: msg.ToolCallID}
			}
		}
	}
	return nil
}

// ToolLinkageError reports a tool message with no matching prior
// assistant tool call.
type ToolLinkageError struct {
	ToolCallID string
}

func (e *ToolLinkageError) Error() string {
	return "types: tool message references unknown tool_call_id " + e.ToolCallID
}
