package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tanadeau/pubsub"
)

// TraceHandler wraps a handler so that every delivery runs inside an
// OpenTelemetry span. A panic in the wrapped handler is recorded on the
// span and then re-raised, so the bus's fault isolation still applies.
type TraceHandler struct {
	tracer trace.Tracer
	next   pubsub.Handler
}

// NewTraceHandler creates a TraceHandler that wraps next. Subscribe the
// TraceHandler in place of the handler it wraps.
func NewTraceHandler(tracer trace.Tracer, next pubsub.Handler) *TraceHandler {
	return &TraceHandler{
		tracer: tracer,
		next:   next,
	}
}

// Handle runs the wrapped handler inside a delivery span.
func (h *TraceHandler) Handle(topic string, data any) {
	_, span := h.tracer.Start(context.Background(), "pubsub.deliver",
		trace.WithAttributes(attribute.String("pubsub.topic", topic)),
	)
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			panic(r)
		}
	}()

	h.next.Handle(topic, data)
}

// Compile-time interface check.
var _ pubsub.Handler = (*TraceHandler)(nil)
