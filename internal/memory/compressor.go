// Package memory implements the length/proportion-triggered context
// compression policy of spec.md §4.7, ported from
// original_source/src/amrita_core/chatmanager.py's MemoryLimiter.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/AmritaBot/AmritaCore/internal/tokenizer"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

const abstractInstruction = `You are a professional context summarizer, strictly following instructions to perform summarization tasks.

Rules:
- Summarize only the message list provided below
- Preserve the core information and key details of the original
- Do not add explanations, comments, or content not present in the source
- Keep the summary concise, accurate, and complete
- Maintain an objective and neutral tone`

var roleLabel = map[types.Role]string{
	types.RoleAssistant: "<assistant response> ",
	types.RoleUser:      "<user message> ",
	types.RoleTool:      "<tool result> ",
}

// Compressor enforces MemoryModel length and token budgets, summarizing
// whatever it drops into MemoryModel.Abstract when configured to.
type Compressor struct {
	counter tokenizer.Counter
	call    Summarizer
}

// Summarizer issues one non-streaming completion used to produce the
// running abstract. The turn engine supplies this, backed by whatever
// adapter/preset the session is configured with (spec.md §4.7: "the
// compressor issues its own completion call, accounted separately from
// the turn's usage").
type Summarizer func(ctx context.Context, messages []types.Message) (types.UniResponse, error)

// NewCompressor builds a Compressor. counter defaults to
// tokenizer.Default() if nil.
func NewCompressor(counter tokenizer.Counter, call Summarizer) *Compressor {
	if counter == nil {
		counter = tokenizer.Default()
	}
	return &Compressor{counter: counter, call: call}
}

// Result reports what a single Enforce pass did, for turn-level metrics
// and the I6 property test (post-turn L <= Lmax).
type Result struct {
	Dropped      []types.Message
	UsageAdded   *types.UniResponseUsage
	AbstractSet  bool
	SummaryError error
}

// Enforce runs length limiting, then token limiting, then — if
// configured and anything was dropped — summarization, mutating mem in
// place. A summarization failure leaves the dropped-message window
// intact in mem.Abstract's prior value; the caller retries next turn
// rather than losing the dropped content (spec.md §4.7).
func (c *Compressor) Enforce(ctx context.Context, mem *types.MemoryModel, cfg types.AmritaConfig, trainTokens int) Result {
	var dropped []types.Message

	dropped = append(dropped, c.limitLength(mem, cfg.LLM.MemoryLengthLimit)...)
	dropped = append(dropped, c.limitTokens(mem, cfg.LLM.MaxTokens, trainTokens)...)

	result := Result{Dropped: dropped}
	if !cfg.LLM.EnableMemoryAbstract || len(dropped) == 0 || c.call == nil {
		return result
	}

	usage, err := c.makeAbstract(ctx, mem, dropped, cfg.LLM.MemoryAbstractProportion)
	if err != nil {
		result.SummaryError = err
		return result
	}
	result.UsageAdded = usage
	result.AbstractSet = true
	return result
}

// limitLength drops orphaned leading tool messages and, while the
// non-system message count exceeds limit, drops the oldest
// assistant/tool group atomically (never splitting a tool_calls
// assistant message from its tool results).
func (c *Compressor) limitLength(mem *types.MemoryModel, limit int) []types.Message {
	var dropped []types.Message
	for len(mem.Messages) >= 2 {
		if mem.Messages[0].Role == types.RoleTool {
			dropped = append(dropped, mem.Messages[0])
			mem.Messages = mem.Messages[1:]
			continue
		}
		if limit > 0 && mem.NonSystemCount() > limit {
			dropped = append(dropped, dropOldestGroup(mem)...)
			continue
		}
		break
	}
	return dropped
}

// limitTokens drops the oldest assistant/tool group repeatedly while the
// serialized message list (plus trainTokens, the system-prompt token
// cost) exceeds maxTokens.
func (c *Compressor) limitTokens(mem *types.MemoryModel, maxTokens, trainTokens int) []types.Message {
	if maxTokens <= 0 {
		return nil
	}
	var dropped []types.Message
	for len(mem.Messages) >= 2 && c.countTokens(mem.Messages)+trainTokens > maxTokens {
		dropped = append(dropped, dropOldestGroup(mem)...)
	}
	return dropped
}

func (c *Compressor) countTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += c.counter.Count(msg.Content.Text())
	}
	return total
}

// dropOldestGroup removes the oldest message, plus its immediately
// following tool-result message if the oldest message had tool calls
// (an assistant message and its tool results are never split — spec.md
// §6's open-question decision).
func dropOldestGroup(mem *types.MemoryModel) []types.Message {
	if len(mem.Messages) == 0 {
		return nil
	}
	head := mem.Messages[0]
	dropped := []types.Message{head}
	mem.Messages = mem.Messages[1:]
	if len(head.ToolCalls) > 0 && len(mem.Messages) > 0 && mem.Messages[0].Role == types.RoleTool {
		dropped = append(dropped, mem.Messages[0])
		mem.Messages = mem.Messages[1:]
	}
	return dropped
}

// makeAbstract summarizes dropped plus, per the original's proportion
// rule, a forward-walked slice of the surviving messages, so the summary
// covers roughly proportion*L of the pre-drop history without ever
// splitting a tool-call group (SPEC_FULL.md §6's Open Question decision:
// "walk forward past the boundary, never split, never walk backward").
func (c *Compressor) makeAbstract(ctx context.Context, mem *types.MemoryModel, dropped []types.Message, proportion float64) (*types.UniResponseUsage, error) {
	target := int(float64(len(mem.Messages)+len(dropped))*proportion) - len(dropped)
	if target < 0 {
		target = 0
	}
	extra := 0
	for extra < len(mem.Messages) && extra < target {
		if len(mem.Messages[extra].ToolCalls) > 0 {
			extra++
			continue
		}
		extra++
		break
	}
	summarizeSet := append(append([]types.Message{}, dropped...), mem.Messages[:extra]...)
	mem.Messages = mem.Messages[extra:]

	prompt := renderSummaryPrompt(summarizeSet)
	messages := []types.Message{
		types.SystemMessage(abstractInstruction),
		types.UserMessage(prompt),
	}
	resp, err := c.call(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("memory: summarization call failed: %w", err)
	}
	mem.Abstract = joinAbstract(mem.Abstract, resp.Content)
	return resp.Usage, nil
}

// joinAbstract appends a new summary onto the running abstract per
// spec.md §4.7 step 3 ("abstract := abstract + S, with a separator") —
// each compression pass extends the abstract rather than replacing it,
// since the abstract is authoritative for every message ever compacted
// away, not just the most recent round.
func joinAbstract(existing, next string) string {
	if existing == "" {
		return next
	}
	if next == "" {
		return existing
	}
	return existing + "\n\n" + next
}

func renderSummaryPrompt(messages []types.Message) string {
	var b strings.Builder
	b.WriteString("Message list:\n```text\n")
	for _, msg := range messages {
		text := msg.Content.Text()
		if text == "" {
			continue
		}
		b.WriteString(roleLabel[msg.Role])
		b.WriteString(text)
		b.WriteString("\n")
	}
	b.WriteString("```")
	return b.String()
}
