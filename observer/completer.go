package observer

import (
	"context"
	"time"

	"github.com/nevindra/medcopy"

	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedCompleter wraps a medcopy.Completer so that every batch item gets
// its own span, a settlement count and a duration sample.
type ObservedCompleter struct {
	inner medcopy.Completer
	inst  *Instruments
}

// WrapCompleter returns an instrumented completer.
func WrapCompleter(inner medcopy.Completer, inst *Instruments) *ObservedCompleter {
	return &ObservedCompleter{inner: inner, inst: inst}
}

func (o *ObservedCompleter) Complete(ctx context.Context, messages []medcopy.ChatMessage, model string, temperature float64) medcopy.Outcome {
	ctx, span := o.inst.Tracer.Start(ctx, "batch.item", trace.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMMessages.Int(len(messages)),
	))
	defer span.End()
	start := time.Now()

	out := o.inner.Complete(ctx, messages, model, temperature)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "success"
	kind := ""
	if !out.Succeeded {
		status = "error"
		kind = string(out.Kind)
		span.SetStatus(codes.Error, out.Error)
	}
	span.SetAttributes(
		AttrItemStatus.String(status),
		AttrItemKind.String(kind),
		AttrItemLength.Int(len(out.Content)),
		AttrTokensInput.Int(out.Usage.PromptTokens),
		AttrTokensOutput.Int(out.Usage.CompletionTokens),
	)

	attrs := metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrItemStatus.String(status),
		AttrItemKind.String(kind),
	)
	o.inst.BatchItems.Add(ctx, 1, attrs)
	o.inst.BatchItemDuration.Record(ctx, durationMs, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	if !out.Succeeded {
		rec.SetSeverity(otellog.SeverityWarn)
	}
	rec.SetBody(otellog.StringValue("batch item settled"))
	rec.AddAttributes(
		otellog.String("llm.model", model),
		otellog.String("batch.item.status", status),
		otellog.String("batch.item.kind", kind),
		otellog.Float64("batch.item.duration_ms", durationMs),
	)
	o.inst.Logger.Emit(ctx, rec)

	return out
}

var _ medcopy.Completer = (*ObservedCompleter)(nil)
