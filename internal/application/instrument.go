package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Instruments holds the RED metrics and base logger shared by the use cases
// of one service.
type Instruments struct {
	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewInstruments binds the instruments of tel to service. A nil tel yields
// no-op instruments.
func NewInstruments(tel observability.Observability, service string) Instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return Instruments{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Logger returns the request-scoped logger when ctx carries one.
func (in Instruments) Logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, in.log)
}

// Run tracks one use case invocation from Begin to End.
type Run struct {
	ctx        context.Context
	span       trace.Span
	start      time.Time
	useCase    string
	logger     observability.Logger
	in         Instruments
	outcome    string
	statusText string
	fields     []observability.Field
}

// Begin opens a span named UC.<span> and a logger tagged with useCase.
func (in Instruments) Begin(ctx context.Context, useCase, span string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := in.Logger(ctx).With(observability.F("use_case", useCase))
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, sp := in.tracer.Start(ctx, spanPrefix+span, attrs...)
	return ctx, &Run{
		ctx:        ctx,
		span:       sp,
		start:      time.Now(),
		useCase:    useCase,
		logger:     logger,
		in:         in,
		outcome:    observability.OutcomeSuccess,
		statusText: "OK",
	}
}

// Logger is the use case logger for this run.
func (r *Run) Logger() observability.Logger { return r.logger }

// Span is the use case span for this run.
func (r *Run) Span() trace.Span { return r.span }

// Status records a non-error status text such as IDEMPOTENT_REPLAY.
func (r *Run) Status(text string) { r.statusText = text }

// Fail marks the run as failed with the given status text.
func (r *Run) Fail(text string) {
	r.outcome = observability.OutcomeError
	r.statusText = text
}

// With attaches extra fields to the use_case_done entry.
func (r *Run) With(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records the RED metrics and logs use_case_done.
func (r *Run) End(err error) {
	if err != nil && r.outcome == observability.OutcomeSuccess {
		r.outcome = observability.OutcomeError
		if r.statusText == "OK" {
			r.statusText = "ERROR"
		}
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.statusText)
		} else {
			r.span.SetStatus(codes.Ok, r.statusText)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L(observability.LabelUseCase, r.useCase),
		observability.L(observability.LabelOutcome, r.outcome),
	)
	r.in.durHistogram.Observe(lat,
		observability.L(observability.LabelUseCase, r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.statusText),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	if r.outcome == observability.OutcomeError {
		r.logger.Warn("use_case_done", fields...)
		return
	}
	r.logger.Info("use_case_done", fields...)
}

// External times a call to peer/endpoint. Call the returned func with the
// call's error once it completes.
func (in Instruments) External(peer, endpoint string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeError
		}
		in.extCounter.Add(1,
			observability.L(observability.LabelPeer, peer),
			observability.L(observability.LabelEndpoint, endpoint),
			observability.L(observability.LabelOutcome, outcome),
		)
		in.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L(observability.LabelPeer, peer),
			observability.L(observability.LabelEndpoint, endpoint),
		)
	}
}

const (
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Publish hands e to pub with a short timeout. Failures are logged and
// counted but never fail the caller: the state change has already committed.
func (in Instruments) Publish(ctx context.Context, pub domoutbox.Publisher, e domoutbox.Event) error {
	if pub == nil || e == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	done := in.External(publishPeer, e.EventName())
	err := pub.Publish(pubCtx, e)
	done(err)
	if err != nil {
		in.Logger(ctx).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
	return err
}
