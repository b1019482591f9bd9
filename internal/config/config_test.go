package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

func TestRegistryNotInitialized(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestRegistrySetGet(t *testing.T) {
	r := NewRegistry()
	cfg := types.DefaultAmritaConfig()
	cfg.LLM.MaxTokens = 999
	r.Set(cfg)

	got, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, 999, got.LLM.MaxTokens)
}

func TestRegistrySetReplacesPreviousConfig(t *testing.T) {
	r := NewRegistry()
	first := types.DefaultAmritaConfig()
	first.LLM.MaxTokens = 100
	r.Set(first)

	second := types.DefaultAmritaConfig()
	second.LLM.MaxTokens = 5
	r.Set(second)

	got, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, got.LLM.MaxTokens)
}
