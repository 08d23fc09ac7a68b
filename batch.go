package medcopy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// --- Batch execution ---

const (
	// DefaultUserFormat renders the user message for one item.
	DefaultUserFormat = "Medical condition: %s"

	// DefaultBatchModel and DefaultBatchTemperature are sent with every item
	// unless overridden with WithModel / WithTemperature.
	DefaultBatchModel       = "gpt-3.5-turbo"
	DefaultBatchTemperature = 0.7
)

// ProgressFunc receives a snapshot each time the counters change. Calls are
// serialized: a snapshot is never delivered while another call is running,
// and snapshots arrive in the order the counters changed.
type ProgressFunc func(Progress)

// Orchestrator runs batches: one completion per item, all issued at once,
// joined before Run returns. A failed item never aborts the batch.
type Orchestrator struct {
	completer   Completer
	model       string
	temperature float64
	userFormat  string
	concurrency int
	logger      *slog.Logger
	tracer      Tracer
}

// BatchOption configures an Orchestrator.
type BatchOption func(*Orchestrator)

// WithModel sets the model name sent with every item (default "gpt-3.5-turbo").
func WithModel(m string) BatchOption {
	return func(o *Orchestrator) { o.model = m }
}

// WithTemperature sets the sampling temperature sent with every item (default 0.7).
func WithTemperature(t float64) BatchOption {
	return func(o *Orchestrator) { o.temperature = t }
}

// WithUserFormat sets the fmt format used to build the user message from an
// item label. It must contain exactly one %s verb.
func WithUserFormat(format string) BatchOption {
	return func(o *Orchestrator) { o.userFormat = format }
}

// WithConcurrency caps the number of in-flight completions. n <= 0 (the
// default) issues every request immediately.
func WithConcurrency(n int) BatchOption {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithBatchLogger sets the structured logger. Each settled item logs at DEBUG,
// failures at WARN, and the batch summary at INFO.
func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithBatchTracer enables a "batch.run" span per Run with one "item.settled"
// event per item.
func WithBatchTracer(t Tracer) BatchOption {
	return func(o *Orchestrator) { o.tracer = t }
}

// NewOrchestrator creates an Orchestrator that sends items through c.
func NewOrchestrator(c Completer, opts ...BatchOption) *Orchestrator {
	o := &Orchestrator{
		completer:   c,
		model:       DefaultBatchModel,
		temperature: DefaultBatchTemperature,
		userFormat:  DefaultUserFormat,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = nopLogger
	}
	return o
}

// Concurrency returns the configured in-flight cap (0 = unbounded).
func (o *Orchestrator) Concurrency() int { return max(o.concurrency, 0) }

// Messages builds the two-message conversation for one item.
func (o *Orchestrator) Messages(prompt, label string) []ChatMessage {
	return []ChatMessage{
		SystemMessage(prompt),
		UserMessage(fmt.Sprintf(o.userFormat, label)),
	}
}

// Run sends one completion per item and returns one Record per item, in input
// order. onProgress may be nil. Run returns ErrNoItems without calling the
// completer when items is empty; otherwise the error is always nil and
// per-item failures are reported in the Records.
//
// Cancelling ctx does not stop Run early: in-flight completions observe the
// cancellation and settle as failures, and Run still waits for all of them.
func (o *Orchestrator) Run(ctx context.Context, items []string, prompt string, onProgress ProgressFunc) ([]Record, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	var span Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "batch.run",
			IntAttr("batch.total", len(items)),
			IntAttr("batch.concurrency", o.Concurrency()),
			StringAttr("llm.model", o.model))
		defer span.End()
	}

	start := time.Now()
	t := newTracker(len(items), onProgress)
	records := make([]Record, len(items))

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, label := range items {
		g.Go(func() error {
			out := o.safeComplete(ctx, label, prompt)
			records[i] = Record{Label: label, Outcome: out}
			t.settle(out.Succeeded)
			o.logSettled(span, i, label, out)
			return nil
		})
	}
	// Goroutines never return errors; Wait is only the join.
	_ = g.Wait()

	final := t.snapshot()
	if span != nil {
		span.SetAttr(IntAttr("batch.succeeded", final.Succeeded), IntAttr("batch.failed", final.Failed))
	}
	o.logger.Info("batch finished",
		"total", final.Total,
		"succeeded", final.Succeeded,
		"failed", final.Failed,
		"duration", time.Since(start))
	return records, nil
}

// safeComplete calls the completer and converts a panic into a failed Outcome.
func (o *Orchestrator) safeComplete(ctx context.Context, label, prompt string) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Failure(KindUnclassified, fmt.Sprintf("completion panic: %v", p))
		}
	}()
	return o.completer.Complete(ctx, o.Messages(prompt, label), o.model, o.temperature)
}

func (o *Orchestrator) logSettled(span Span, idx int, label string, out Outcome) {
	if span != nil {
		span.Event("item.settled",
			IntAttr("item.index", idx),
			BoolAttr("item.succeeded", out.Succeeded),
			StringAttr("item.kind", string(out.Kind)))
	}
	if out.Succeeded {
		o.logger.Debug("item settled", "index", idx, "condition", label, "tokens", out.Usage.TotalTokens)
		return
	}
	o.logger.Warn("item failed", "index", idx, "condition", label, "kind", out.Kind, "error", out.Error)
}

// tracker holds the progress counters of one run. Every change and the
// matching callback happen under mu, so observers never see a torn state.
type tracker struct {
	mu         sync.Mutex
	p          Progress
	onProgress ProgressFunc
}

func newTracker(total int, onProgress ProgressFunc) *tracker {
	t := &tracker{p: Progress{Total: total}, onProgress: onProgress}
	if onProgress != nil {
		onProgress(t.p)
	}
	return t
}

func (t *tracker) settle(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Completed++
	if ok {
		t.p.Succeeded++
	} else {
		t.p.Failed++
	}
	if t.onProgress != nil {
		t.onProgress(t.p)
	}
}

func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562) used to
// identify batch runs.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
