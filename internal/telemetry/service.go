package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/types"
)

const serviceScopeName = "github.com/steveyegge/inbox/service"

// InstrumentedService wraps inbox.Service with OTel tracing and metrics.
// Every method gets a span and is counted in inbox.service.* metrics.
type InstrumentedService struct {
	inner  inbox.Service
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapService returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is.
func WrapService(s inbox.Service) inbox.Service {
	if !Enabled() {
		return s
	}
	return NewInstrumentedService(s, Meter(serviceScopeName), Tracer(serviceScopeName))
}

// NewInstrumentedService wraps s unconditionally using the given providers.
func NewInstrumentedService(s inbox.Service, m metric.Meter, tracer trace.Tracer) *InstrumentedService {
	ops, _ := m.Int64Counter("inbox.service.operations",
		metric.WithDescription("Total remote inbox operations executed"),
	)
	dur, _ := m.Float64Histogram("inbox.service.operation.duration",
		metric.WithDescription("Remote inbox operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("inbox.service.errors",
		metric.WithDescription("Total remote inbox operation errors"),
	)
	return &InstrumentedService{inner: s, tracer: tracer, ops: ops, dur: dur, errs: errs}
}

// op starts a span and records a metric for the named operation.
func (s *InstrumentedService) op(ctx context.Context, name string, scope types.Scope, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	all := append([]attribute.KeyValue{
		attribute.String("inbox.operation", name),
		attribute.String("inbox.workspace", scope.WorkspaceSlug),
		attribute.String("inbox.project", scope.ProjectID),
	}, attrs...)
	ctx, span := s.tracer.Start(ctx, "inbox."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	base := all[:1]
	s.ops.Add(ctx, 1, metric.WithAttributes(base...))
	return ctx, span, time.Now(), base
}

// done ends the span, records duration and optional error.
func (s *InstrumentedService) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedService) List(ctx context.Context, scope types.Scope, params query.Params) (*types.InboxIssuePage, error) {
	ctx, span, t, base := s.op(ctx, "list", scope, attribute.String("inbox.cursor", params[query.KeyCursor]))
	v, err := s.inner.List(ctx, scope, params)
	if v != nil {
		span.SetAttributes(
			attribute.Int("inbox.results", len(v.Results)),
			attribute.Int("inbox.total_results", v.TotalResults),
		)
	}
	s.done(ctx, span, t, err, base)
	return v, err
}

func (s *InstrumentedService) Retrieve(ctx context.Context, scope types.Scope, issueID string) (*types.InboxIssue, error) {
	ctx, span, t, base := s.op(ctx, "retrieve", scope, attribute.String("inbox.issue.id", issueID))
	v, err := s.inner.Retrieve(ctx, scope, issueID)
	s.done(ctx, span, t, err, base)
	return v, err
}

func (s *InstrumentedService) Create(ctx context.Context, scope types.Scope, data types.InboxIssueCreate) (*types.InboxIssue, error) {
	ctx, span, t, base := s.op(ctx, "create", scope, attribute.String("inbox.source", data.Source))
	v, err := s.inner.Create(ctx, scope, data)
	s.done(ctx, span, t, err, base)
	return v, err
}

func (s *InstrumentedService) Update(ctx context.Context, scope types.Scope, issueID string, update types.StatusUpdate) (*types.InboxIssue, error) {
	attrs := []attribute.KeyValue{attribute.String("inbox.issue.id", issueID)}
	if update.Status != nil {
		attrs = append(attrs, attribute.String("inbox.status", update.Status.String()))
	}
	ctx, span, t, base := s.op(ctx, "update", scope, attrs...)
	v, err := s.inner.Update(ctx, scope, issueID, update)
	s.done(ctx, span, t, err, base)
	return v, err
}

func (s *InstrumentedService) UpdateIssue(ctx context.Context, scope types.Scope, issueID string, patch types.IssuePatch) (*types.IssuePayload, error) {
	ctx, span, t, base := s.op(ctx, "update_issue", scope,
		attribute.String("inbox.issue.id", issueID),
		attribute.StringSlice("inbox.fields", patch.Fields()),
	)
	v, err := s.inner.UpdateIssue(ctx, scope, issueID, patch)
	s.done(ctx, span, t, err, base)
	return v, err
}

func (s *InstrumentedService) Destroy(ctx context.Context, scope types.Scope, issueID string) error {
	ctx, span, t, base := s.op(ctx, "destroy", scope, attribute.String("inbox.issue.id", issueID))
	err := s.inner.Destroy(ctx, scope, issueID)
	s.done(ctx, span, t, err, base)
	return err
}

var _ inbox.Service = (*InstrumentedService)(nil)
