package types

// ToolCallingMode selects how the Chat Turn Engine exposes tools to the
// model on each iteration.
type ToolCallingMode string

const (
	ToolCallingAgent ToolCallingMode = "agent"
	ToolCallingRAG   ToolCallingMode = "rag"
	ToolCallingNone  ToolCallingMode = "none"
)

// AgentThoughtMode selects how reasoning is enforced before tool use.
type AgentThoughtMode string

const (
	ThoughtReasoning         AgentThoughtMode = "reasoning"
	ThoughtChat              AgentThoughtMode = "chat"
	ThoughtReasoningRequired AgentThoughtMode = "reasoning-required"
	ThoughtReasoningOptional AgentThoughtMode = "reasoning-optional"
)

// FunctionConfig groups the agent-loop and tool-calling knobs.
type FunctionConfig struct {
	UseMinimalContext       bool             `json:"use_minimal_context" yaml:"use_minimal_context"`
	ToolCallingMode         ToolCallingMode  `json:"tool_calling_mode" yaml:"tool_calling_mode"`
	AgentThoughtMode        AgentThoughtMode `json:"agent_thought_mode" yaml:"agent_thought_mode"`
	AgentMCPClientEnable    bool             `json:"agent_mcp_client_enable" yaml:"agent_mcp_client_enable"`
	AgentMCPServerScripts   []string         `json:"agent_mcp_server_scripts" yaml:"agent_mcp_server_scripts"`
	AgentMiddleMessage      bool             `json:"agent_middle_message" yaml:"agent_middle_message"`
	AgentMaxToolCalls       int              `json:"agent_max_tool_calls" yaml:"agent_max_tool_calls"`
}

// LLMConfig groups completion and memory-management knobs.
type LLMConfig struct {
	MaxTokens                int     `json:"max_tokens" yaml:"max_tokens"`
	LLMTimeoutS              float64 `json:"llm_timeout_s" yaml:"llm_timeout_s"`
	AutoRetry                bool    `json:"auto_retry" yaml:"auto_retry"`
	MaxRetries               int     `json:"max_retries" yaml:"max_retries"`
	MemoryLengthLimit        int     `json:"memory_length_limit" yaml:"memory_length_limit"`
	EnableMemoryAbstract     bool    `json:"enable_memory_abstract" yaml:"enable_memory_abstract"`
	MemoryAbstractProportion float64 `json:"memory_abstract_proportion" yaml:"memory_abstract_proportion"`
}

// CookieConfig configures the prompt-injection detection marker.
type CookieConfig struct {
	EnableCookie bool   `json:"enable_cookie" yaml:"enable_cookie"`
	Cookie       string `json:"cookie" yaml:"cookie"`
}

// AmritaConfig aggregates all per-process/per-session configuration
// (spec.md §3).
type AmritaConfig struct {
	Function FunctionConfig `json:"function" yaml:"function"`
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Cookie   CookieConfig   `json:"cookie" yaml:"cookie"`
}

// DefaultAmritaConfig returns sane defaults matching original_source's
// config.py defaults.
func DefaultAmritaConfig() AmritaConfig {
	return AmritaConfig{
		Function: FunctionConfig{
			UseMinimalContext: false,
			ToolCallingMode:   ToolCallingAgent,
			AgentThoughtMode:  ThoughtReasoningOptional,
			AgentMaxToolCalls: 8,
		},
		LLM: LLMConfig{
			MaxTokens:                4096,
			LLMTimeoutS:              60,
			AutoRetry:                true,
			MaxRetries:               2,
			MemoryLengthLimit:        40,
			EnableMemoryAbstract:     true,
			MemoryAbstractProportion: 0.5,
		},
		Cookie: CookieConfig{
			EnableCookie: false,
		},
	}
}
