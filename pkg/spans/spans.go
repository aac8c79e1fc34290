// Package spans drives a display session from OpenTelemetry spans: each span
// becomes an activity nested under its parent span's activity.
package spans

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/arthur-debert/beout/pkg/display"
)

const (
	// LogEvent is the span event name whose message attribute becomes a log line
	LogEvent = "log"
	// MessageKey holds the text of a log event
	MessageKey = attribute.Key("message")
	// DetailKey sets the activity detail when present on a span
	DetailKey = attribute.Key("beout.detail")
)

// Processor is an sdktrace.SpanProcessor that mirrors spans into a session
type Processor struct {
	root   *display.Handle
	logger zerolog.Logger

	mu      sync.Mutex
	handles map[trace.SpanID]*display.Handle
	// spans with at least one child that ended in error
	failed map[trace.SpanID]bool
}

var _ sdktrace.SpanProcessor = (*Processor)(nil)

// NewProcessor attaches top-level spans under the session root
func NewProcessor(s *display.Session, logger zerolog.Logger) *Processor {
	return &Processor{
		root:    s.Root(),
		logger:  logger.With().Str("component", "spans").Logger(),
		handles: make(map[trace.SpanID]*display.Handle),
		failed:  make(map[trace.SpanID]bool),
	}
}

// NewTracerProvider returns a provider whose spans show up in s
func NewTracerProvider(s *display.Session, logger zerolog.Logger, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append(opts, sdktrace.WithSpanProcessor(NewProcessor(s, logger)))
	return sdktrace.NewTracerProvider(opts...)
}

// OnStart creates and starts the activity for span
func (p *Processor) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	parent := p.root
	if sc := span.Parent(); sc.IsValid() {
		p.mu.Lock()
		if h, ok := p.handles[sc.SpanID()]; ok {
			parent = h
		}
		p.mu.Unlock()
	}

	// a span's activity closes when the span ends, not when its first
	// child span does
	h, err := parent.Child(spanLabel(span.Name()), display.WithAutoClose(false))
	if err != nil {
		p.logger.Debug().Err(err).Str("span", span.Name()).Msg("Span not shown")
		return
	}
	p.mu.Lock()
	p.handles[span.SpanContext().SpanID()] = h
	p.mu.Unlock()

	if err := h.Start(); err != nil {
		p.logger.Debug().Err(err).Str("span", span.Name()).Msg("Span start rejected")
	}
	if detail := attributeValue(span.Attributes(), DetailKey); detail != "" {
		_ = h.Detail(detail)
	}
}

// OnEnd replays log events and closes the activity with the span status.
// A span that ended without error still fails when one of its children
// failed.
func (p *Processor) OnEnd(span sdktrace.ReadOnlySpan) {
	id := span.SpanContext().SpanID()
	p.mu.Lock()
	h, ok := p.handles[id]
	delete(p.handles, id)
	failedChild := p.failed[id]
	delete(p.failed, id)
	if ok && (failedChild || span.Status().Code == codes.Error) && span.Parent().IsValid() {
		p.failed[span.Parent().SpanID()] = true
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	for _, ev := range span.Events() {
		if ev.Name != LogEvent {
			continue
		}
		if msg := attributeValue(ev.Attributes, MessageKey); msg != "" {
			_ = h.Log(msg)
		}
	}
	if detail := attributeValue(span.Attributes(), DetailKey); detail != "" {
		_ = h.Detail(detail)
	}

	var err error
	switch st := span.Status(); {
	case st.Code == codes.Error:
		err = h.Fail(strings.TrimSpace(st.Description))
	case failedChild:
		err = h.Fail("")
	default:
		err = h.Succeed()
	}
	if err != nil {
		// already closed by propagation or session shutdown
		p.logger.Debug().Err(err).Str("span", span.Name()).Msg("Span end ignored")
	}
}

// Shutdown implements sdktrace.SpanProcessor
func (p *Processor) Shutdown(context.Context) error {
	return nil
}

// ForceFlush implements sdktrace.SpanProcessor
func (p *Processor) ForceFlush(context.Context) error {
	return nil
}

// Log records line on span so it appears in the span's activity tail
func Log(span trace.Span, line string) {
	span.AddEvent(LogEvent, trace.WithAttributes(MessageKey.String(line)))
}

func spanLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}
	return name
}

func attributeValue(attrs []attribute.KeyValue, key attribute.Key) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value.Emit()
		}
	}
	return ""
}
