// Package slogobs provides a Logger/Span implementation backed by the
// standard library's log/slog. It is the default observability binding for
// callers that want structured logs without an external tracing stack.
package slogobs

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

// LevelTrace is one step below slog.LevelDebug; slog has no trace level of
// its own so we extend the scale downward.
const LevelTrace = slog.LevelDebug - 4

// Observer implements observability.Logger using slog.
type Observer struct {
	logger *slog.Logger
}

// New creates an Observer writing to the given logger. A nil logger falls
// back to a text handler on stderr at info level.
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Observer{logger: logger}
}

func (o *Observer) log(ctx context.Context, level slog.Level, msg string, attrs []observability.Attribute) {
	if !o.logger.Enabled(ctx, level) {
		return
	}
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	o.logger.Log(ctx, level, msg, args...)
}

// Trace implements observability.Logger.
func (o *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, LevelTrace, msg, attrs)
}

// Debug implements observability.Logger.
func (o *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelDebug, msg, attrs)
}

// Info implements observability.Logger.
func (o *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelInfo, msg, attrs)
}

// Warn implements observability.Logger.
func (o *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelWarn, msg, attrs)
}

// Error implements observability.Logger.
func (o *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	o.log(ctx, slog.LevelError, msg, attrs)
}

// StartSpan creates a log-backed span: events and the final End are emitted
// as debug log lines carrying the span name and elapsed time.
func (o *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &logSpan{observer: o, name: name, started: time.Now(), attrs: attrs}
	return observability.ContextWithSpan(ctx, span), span
}

// logSpan is a minimal Span that forwards events to the Observer's logger.
type logSpan struct {
	observer *Observer
	name     string
	started  time.Time

	mu    sync.Mutex
	attrs []observability.Attribute
	err   error
	ended bool
}

func (s *logSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	attrs := append([]observability.Attribute{
		observability.String("span", s.name),
		observability.Duration("span.duration", time.Since(s.started)),
	}, s.attrs...)
	if s.err != nil {
		attrs = append(attrs, observability.Error(s.err))
		s.observer.log(context.Background(), slog.LevelWarn, "span ended with error", attrs)
		return
	}
	s.observer.log(context.Background(), slog.LevelDebug, "span ended", attrs)
}

func (s *logSpan) SetAttributes(attrs ...observability.Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs = append(s.attrs, attrs...)
}

func (s *logSpan) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *logSpan) AddEvent(name string, attrs ...observability.Attribute) {
	eventAttrs := append([]observability.Attribute{observability.String("span", s.name)}, attrs...)
	s.observer.log(context.Background(), slog.LevelDebug, name, eventAttrs)
}
