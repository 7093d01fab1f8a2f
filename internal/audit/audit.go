// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Gibson

// Package audit records option changes as audit events
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gibson-sec/ropkit/internal/options"
)

// EventType represents the type of audit event
type EventType string

const (
	EventTypeConfig EventType = "configuration"
	EventTypeSystem EventType = "system"
)

// EventLevel represents the severity level of the audit event
type EventLevel string

const (
	EventLevelInfo  EventLevel = "info"
	EventLevelWarn  EventLevel = "warn"
	EventLevelError EventLevel = "error"
)

// EventOutcome represents the outcome of the audited operation
type EventOutcome string

const (
	EventOutcomeSuccess EventOutcome = "success"
	EventOutcomeFailure EventOutcome = "failure"
)

// Event represents an audit log event
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Level     EventLevel     `json:"level"`
	Outcome   EventOutcome   `json:"outcome"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message"`
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter *QueryFilter) ([]*Event, error)
	Close() error
}

// ErrQueryUnsupported is returned by loggers that cannot read back events.
var ErrQueryUnsupported = errors.New("query not supported")

// QueryFilter represents filters for querying audit logs
type QueryFilter struct {
	Types     []EventType
	Resources []string
	Since     time.Time
	Limit     int
}

func (f *QueryFilter) match(e *Event) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 && !contains(f.Types, e.Type) {
		return false
	}
	if len(f.Resources) > 0 && !contains(f.Resources, e.Resource) {
		return false
	}
	return f.Since.IsZero() || !e.Timestamp.Before(f.Since)
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// stamp fills in the id and timestamp of events that lack them.
func stamp(event *Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
}

// MemoryLogger keeps the most recent events in memory.
type MemoryLogger struct {
	events []*Event
	limit  int
	mutex  sync.Mutex
}

// DefaultMemoryLimit is the number of events a MemoryLogger keeps when no
// limit is given.
const DefaultMemoryLimit = 256

// NewMemoryLogger creates a logger that retains at most limit events.
func NewMemoryLogger(limit int) *MemoryLogger {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &MemoryLogger{limit: limit}
}

func (ml *MemoryLogger) Log(ctx context.Context, event *Event) error {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	stamp(event)
	ml.events = append(ml.events, event)
	if over := len(ml.events) - ml.limit; over > 0 {
		ml.events = append([]*Event(nil), ml.events[over:]...)
	}
	return nil
}

// Query returns matching events oldest first. A positive Limit keeps only
// the newest matches.
func (ml *MemoryLogger) Query(ctx context.Context, filter *QueryFilter) ([]*Event, error) {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	var out []*Event
	for _, e := range ml.events {
		if filter.match(e) {
			out = append(out, e)
		}
	}
	if filter != nil && filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}

func (ml *MemoryLogger) Close() error {
	return nil
}

// SlogLogger writes events as JSON records.
type SlogLogger struct {
	closer io.Closer
	logger *slog.Logger
	mutex  sync.Mutex
}

// NewSlogLogger creates a logger writing JSON lines to w. If w is an
// io.Closer it is closed by Close.
func NewSlogLogger(w io.Writer) *SlogLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	sl := &SlogLogger{logger: slog.New(handler)}
	if c, ok := w.(io.Closer); ok {
		sl.closer = c
	}
	return sl
}

func (sl *SlogLogger) Log(ctx context.Context, event *Event) error {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()

	stamp(event)
	attrs := []slog.Attr{
		slog.String("audit_id", event.ID.String()),
		slog.Time("timestamp", event.Timestamp),
		slog.String("type", string(event.Type)),
		slog.String("outcome", string(event.Outcome)),
		slog.String("action", event.Action),
		slog.String("resource", event.Resource),
		slog.String("message", event.Message),
	}
	if len(event.Details) > 0 {
		details := make([]any, 0, len(event.Details)*2)
		for k, v := range event.Details {
			details = append(details, k, v)
		}
		attrs = append(attrs, slog.Group("details", details...))
	}

	level := slog.LevelInfo
	switch event.Level {
	case EventLevelWarn:
		level = slog.LevelWarn
	case EventLevelError:
		level = slog.LevelError
	}
	sl.logger.LogAttrs(ctx, level, "audit", attrs...)
	return nil
}

func (sl *SlogLogger) Query(ctx context.Context, filter *QueryFilter) ([]*Event, error) {
	return nil, fmt.Errorf("slog audit logger: %w", ErrQueryUnsupported)
}

func (sl *SlogLogger) Close() error {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	if sl.closer == nil {
		return nil
	}
	return sl.closer.Close()
}

// CompositeLogger logs to multiple destinations
type CompositeLogger struct {
	loggers []Logger
}

// NewCompositeLogger creates a new composite audit logger
func NewCompositeLogger(loggers ...Logger) *CompositeLogger {
	return &CompositeLogger{loggers: loggers}
}

func (cl *CompositeLogger) Log(ctx context.Context, event *Event) error {
	stamp(event)

	var errs []string
	for _, logger := range cl.loggers {
		if err := logger.Log(ctx, event); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit logging errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Query uses the first logger that supports querying
func (cl *CompositeLogger) Query(ctx context.Context, filter *QueryFilter) ([]*Event, error) {
	for _, logger := range cl.loggers {
		if events, err := logger.Query(ctx, filter); err == nil {
			return events, nil
		}
	}
	return nil, ErrQueryUnsupported
}

func (cl *CompositeLogger) Close() error {
	var errs []string
	for _, logger := range cl.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("audit logger close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// optionListener turns broadcast option changes into configuration events.
type optionListener struct {
	logger Logger
}

// NewOptionListener returns a listener that records every change it is
// told about. Subscribe it on an options store to audit SetOption calls.
func NewOptionListener(logger Logger) options.Listener {
	return &optionListener{logger: logger}
}

func (l *optionListener) OptionChanged(name string, old, new any) error {
	event := &Event{
		Type:     EventTypeConfig,
		Level:    EventLevelInfo,
		Outcome:  EventOutcomeSuccess,
		Action:   "set",
		Resource: name,
		Details: map[string]any{
			"old": old,
			"new": new,
		},
		Message: fmt.Sprintf("Option %s changed from %v to %v", name, old, new),
	}
	if err := l.logger.Log(context.Background(), event); err != nil {
		return fmt.Errorf("failed to audit change of %s: %w", name, err)
	}
	return nil
}
