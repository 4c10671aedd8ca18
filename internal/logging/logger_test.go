package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactMasksCredentials(t *testing.T) {
	out := redact([]any{"api_key", "sk-123", "topic", "pets", "redis_password", "hunter2"})
	assert.Equal(t, []any{"api_key", "[REDACTED]", "topic", "pets", "redis_password", "[REDACTED]"}, out)
}

func TestRedactLeavesInputUntouched(t *testing.T) {
	in := []any{"secret", "x"}
	_ = redact(in)
	assert.Equal(t, "x", in[1])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New("dev", "loud")
	require.Error(t, err)
}

func TestNewAndNop(t *testing.T) {
	l, err := New("prod", "warn")
	require.NoError(t, err)
	l.With("component", "test").Info("hidden below warn")
	Nop().Error("discarded", "k", 1)
}
