// Package tracer is a small tracing abstraction over OpenTelemetry.
//
// Pipeline code starts spans through Tracer so it never imports OTel directly.
// NoopTracer serves tests and OTelTracer serves production; with no exporter
// registered the global OTel provider is itself a no-op.
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed. Call exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanPass      = "roster.pass"
	SpanFile      = "roster.pass.file"
	SpanReconcile = "roster.pass.reconcile"
	SpanPublish   = "roster.pass.publish"
	SpanQuery     = "roster.users.query"
)

// Attribute keys.
const (
	AttrPassID  = "pass.id"
	AttrTrigger = "pass.trigger"
	AttrObject  = "object"
	AttrUserID  = "user_id"
	AttrAction  = "action"
	AttrTotal   = "pass.total"
	AttrSuccess = "pass.success"
	AttrResults = "result.count"
)

// Event names.
const (
	EventMissingImage = "image.missing"
	EventFileRejected = "file.rejected"
)
