package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	toasts []Toast
}

func (s *recordingSink) Emit(_ context.Context, t Toast) {
	s.toasts = append(s.toasts, t)
}

func TestPromiseSuccessPhases(t *testing.T) {
	sink := &recordingSink{}
	n := NewLogNotifier(sink)

	err := n.Promise(context.Background(), Messages{
		Loading: "Saving...",
		Success: "Saved",
		Error:   "Save failed",
	}, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)

	require.Len(t, sink.toasts, 2)
	assert.Equal(t, PhaseLoading, sink.toasts[0].Phase)
	assert.Equal(t, "Saving...", sink.toasts[0].Message)
	assert.Equal(t, PhaseSuccess, sink.toasts[1].Phase)
	assert.Equal(t, "Saved", sink.toasts[1].Message)

	// Both phases belong to the same toast id.
	assert.Equal(t, sink.toasts[0].ID, sink.toasts[1].ID)
}

func TestPromiseErrorPhases(t *testing.T) {
	sink := &recordingSink{}
	n := NewLogNotifier(sink)

	opErr := errors.New("backend down")
	err := n.Promise(context.Background(), Messages{
		Loading: "Saving...",
		Success: "Saved",
		Error:   "Save failed",
	}, func(context.Context) error {
		return opErr
	})

	// The operation's error comes back unchanged.
	assert.Same(t, opErr, err)

	require.Len(t, sink.toasts, 2)
	assert.Equal(t, PhaseLoading, sink.toasts[0].Phase)
	assert.Equal(t, PhaseError, sink.toasts[1].Phase)
	assert.Equal(t, "Save failed", sink.toasts[1].Message)
}
