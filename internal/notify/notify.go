// Package notify raises operator-facing notifications. Raising one never
// fails and never blocks the caller.
package notify

import (
	"context"

	"github.com/wolfman30/store-dashboard/pkg/logging"
)

// Level is the severity shown to the operator.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is a single message queued for display.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Sink receives notifications, typically the current session's flash queue.
type Sink interface {
	Push(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification)

func (f SinkFunc) Push(n Notification) { f(n) }

// Relay writes notifications to the sink bound to a request context and
// mirrors them to the log.
type Relay struct {
	logger *logging.Logger
}

// NewRelay creates a relay.
func NewRelay(logger *logging.Logger) *Relay {
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{logger: logger}
}

type sinkKey struct{}

// WithSink binds sink to ctx for the duration of a request.
func WithSink(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

func sinkFrom(ctx context.Context) Sink {
	if ctx == nil {
		return nil
	}
	sink, _ := ctx.Value(sinkKey{}).(Sink)
	return sink
}

func (r *Relay) Success(ctx context.Context, message string) {
	r.raise(ctx, LevelSuccess, message)
}

func (r *Relay) Error(ctx context.Context, message string) {
	r.raise(ctx, LevelError, message)
}

func (r *Relay) Info(ctx context.Context, message string) {
	r.raise(ctx, LevelInfo, message)
}

func (r *Relay) Warning(ctx context.Context, message string) {
	r.raise(ctx, LevelWarning, message)
}

func (r *Relay) raise(ctx context.Context, level Level, message string) {
	if r == nil {
		return
	}
	switch level {
	case LevelError:
		r.logger.Warn("notify: error raised", "message", message)
	case LevelWarning:
		r.logger.Info("notify: warning raised", "message", message)
	default:
		r.logger.Debug("notify: raised", "level", string(level), "message", message)
	}
	sink := sinkFrom(ctx)
	if sink == nil {
		return
	}
	sink.Push(Notification{Level: level, Message: message})
}
