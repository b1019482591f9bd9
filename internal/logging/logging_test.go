package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedactsAPIKeyAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf})
	logger.Info("calling preset", "api_key", "sk-abcdefghijklmnopqrstuvwxyz0123456789")

	out := buf.String()
	assert.NotContains(t, out, "abcdefghijklmnopqrstuvwxyz")
	assert.Contains(t, out, "REDACTED")
}

func TestNewDefaultsToInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	logger.Debug("should not appear")
	logger.Info("should appear")

	out := buf.String()
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.True(t, strings.Contains(out, "should appear"))
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "text", Output: &buf})
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
