package speech

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfigured(t *testing.T) {
	rec, syn, err := New("", "  ", nil)
	require.NoError(t, err)

	_, err = rec.Listen(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, syn.Speak(context.Background(), "hi"), ErrNotConfigured)
}

func TestCommandBacked(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	rec, syn, err := New("echo '  hello world  '", "sh -c 'cat > "+out+"'", nil)
	require.NoError(t, err)

	text, err := rec.Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	require.NoError(t, syn.Speak(context.Background(), "good morning"))
	spoken, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "good morning", string(spoken))
}

func TestCommandFailure(t *testing.T) {
	rec, _, err := New("sh -c 'echo no mic >&2; exit 3'", "", nil)
	require.NoError(t, err)

	_, err = rec.Listen(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mic")
}

func TestBadCommandLine(t *testing.T) {
	_, _, err := New("echo 'unterminated", "", nil)
	assert.Error(t, err)
}
