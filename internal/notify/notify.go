// Package notify is the toast side-channel the stores report through.
// Stores depend only on the Promise contract; how toasts are rendered
// is someone else's problem.
package notify

import (
	"context"
	"time"

	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Toast phases
const (
	PhaseLoading = "loading"
	PhaseSuccess = "success"
	PhaseError   = "error"
)

// Messages are the per-phase texts for one async operation.
type Messages struct {
	Loading string
	Success string
	Error   string
}

// Toast is a single emitted notification.
type Toast struct {
	ID      string    `json:"id"`
	Phase   string    `json:"phase"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier wraps an async operation with loading/success/error toasts.
type Notifier interface {
	Promise(ctx context.Context, m Messages, fn func(context.Context) error) error
}

// Sink receives emitted toasts.
type Sink interface {
	Emit(ctx context.Context, t Toast)
}

// LogNotifier logs every toast and fans it out to optional sinks.
type LogNotifier struct {
	logger *zap.Logger
	sinks  []Sink
}

// NewLogNotifier creates a notifier with the given extra sinks.
func NewLogNotifier(sinks ...Sink) *LogNotifier {
	return &LogNotifier{
		logger: util.GetLogger(),
		sinks:  sinks,
	}
}

// Promise emits a loading toast, runs fn, then emits success or error.
// The operation's error is returned unchanged so callers can still
// react to it.
func (n *LogNotifier) Promise(ctx context.Context, m Messages, fn func(context.Context) error) error {
	id := uuid.New().String()
	n.emit(ctx, Toast{ID: id, Phase: PhaseLoading, Message: m.Loading, At: time.Now()})

	if err := fn(ctx); err != nil {
		n.emit(ctx, Toast{ID: id, Phase: PhaseError, Message: m.Error, At: time.Now()})
		return err
	}

	n.emit(ctx, Toast{ID: id, Phase: PhaseSuccess, Message: m.Success, At: time.Now()})
	return nil
}

func (n *LogNotifier) emit(ctx context.Context, t Toast) {
	n.logger.Info("Toast",
		zap.String("id", t.ID),
		zap.String("phase", t.Phase),
		zap.String("message", t.Message))
	for _, s := range n.sinks {
		s.Emit(ctx, t)
	}
}
