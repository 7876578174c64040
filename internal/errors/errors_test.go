package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsIdentity(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "wrapped: %d", 42)

	assert.Contains(t, wrapped.Error(), "wrapped: 42")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestMarkSurvivesWrapping(t *testing.T) {
	kind := New("kind")
	cause := New("boom")

	err := Wrap(Mark(cause, kind), "outer")

	assert.True(t, Is(err, kind))
	assert.True(t, Is(err, cause))
	assert.Equal(t, "outer: boom", err.Error())
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("run %s", "abc")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsInvalidRequest(err))
	assert.Contains(t, err.Error(), "run abc")
	assert.False(t, IsNotFound(nil))
}

func TestInvalidRequest(t *testing.T) {
	err := Wrap(NewInvalidRequestError("bad %q", "x"), "parse")
	assert.True(t, IsInvalidRequest(err))
	assert.NotNil(t, GetStack(err))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("error"), "try this fix")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "try this fix", hints[0])
}
