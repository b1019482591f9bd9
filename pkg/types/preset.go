package types

// ModelConfig carries per-preset generation parameters.
type ModelConfig struct {
	TopK              int     `json:"top_k,omitempty"`
	TopP              float64 `json:"top_p,omitempty"`
	Temperature       float64 `json:"temperature,omitempty"`
	Stream            bool    `json:"stream"`
	ThoughtChainModel bool    `json:"thought_chain_model,omitempty"`
	Multimodal        bool    `json:"multimodal,omitempty"`
}

// ModelPreset is a named bundle of model identity, endpoint, credentials,
// and generation parameters (spec.md §3).
type ModelPreset struct {
	Name     string         `json:"name"`
	Model    string         `json:"model"`
	BaseURL  string         `json:"base_url"`
	APIKey   string         `json:"api_key"`
	Protocol string         `json:"protocol"`
	Config   ModelConfig    `json:"config"`
	Extra    map[string]any `json:"extra,omitempty"`
}
