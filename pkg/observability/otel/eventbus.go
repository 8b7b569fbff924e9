package otel

import (
	"context"

	"github.com/fluxorio/mtp/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func messagingAttributes(address, operation string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("messaging.system", "eventbus"),
		attribute.String("messaging.destination.name", address),
		attribute.String("messaging.operation", operation),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// PublishWithSpan publishes a message inside a producer span
func PublishWithSpan(ctx context.Context, eventBus core.EventBus, address string, body interface{}) error {
	if !IsInitialized() {
		return eventBus.Publish(address, body)
	}

	_, span := StartSpan(ctx, "eventbus.publish "+address,
		trace.WithSpanKind(trace.SpanKindProducer),
		messagingAttributes(address, "publish"),
	)
	if requestID := core.GetRequestID(ctx); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}

	err := eventBus.Publish(address, body)
	endSpan(span, err)
	return err
}

// WrapConsumerHandler runs handler inside a consumer span
func WrapConsumerHandler(address string, handler core.MessageHandler) core.MessageHandler {
	return func(ctx core.FluxorContext, msg core.Message) error {
		if !IsInitialized() {
			return handler(ctx, msg)
		}
		_, span := StartSpan(ctx.Context(), "eventbus.consume "+address,
			trace.WithSpanKind(trace.SpanKindConsumer),
			messagingAttributes(address, "process"),
		)
		err := handler(ctx, msg)
		endSpan(span, err)
		return err
	}
}
