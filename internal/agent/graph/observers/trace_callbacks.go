package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Chative-commerce/server/agent"

// NewTraceCallbacks opens one span per component run.
func NewTraceCallbacks() einocb.Handler {
	tracer := otel.Tracer(tracerName)
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			ctx, _ = tracer.Start(ctx, spanName(info),
				trace.WithAttributes(
					attribute.String("eino.component", string(info.Component)),
					attribute.String("eino.type", info.Type),
				))
			return ctx
		}).
		OnEndFn(func(ctx context.Context, _ *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			trace.SpanFromContext(ctx).End()
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		}).
		Build()
}

func spanName(info *einocb.RunInfo) string {
	if info == nil {
		return "eino.run"
	}
	if info.Name != "" {
		return "eino." + info.Name
	}
	return "eino." + string(info.Component)
}
