package vira

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/peorobertsson/vira/internal/jira"
	"github.com/peorobertsson/vira/internal/telemetry"
)

const storeScopeName = "github.com/peorobertsson/vira/store"

// InstrumentedStore wraps a Store with OTel tracing and metrics.
// Every call gets a span and is counted in vira.store.* metrics.
type InstrumentedStore struct {
	inner  Store
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapStore returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is.
func WrapStore(s Store) Store {
	if !telemetry.Enabled() {
		return s
	}
	m := telemetry.Meter(storeScopeName)
	ops, _ := m.Int64Counter("vira.store.operations",
		metric.WithDescription("Total tracker operations executed"),
	)
	dur, _ := m.Float64Histogram("vira.store.operation.duration",
		metric.WithDescription("Tracker operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("vira.store.errors",
		metric.WithDescription("Total tracker operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: telemetry.Tracer(storeScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("vira.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "store."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (s *InstrumentedStore) GetIssue(ctx context.Context, key string) (*jira.Issue, error) {
	attrs := []attribute.KeyValue{attribute.String("vira.issue.key", key)}
	ctx, span, t := s.op(ctx, "GetIssue", attrs...)
	v, err := s.inner.GetIssue(ctx, key)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error) {
	ctx, span, t := s.op(ctx, "SearchIssues", attribute.String("vira.jql", jql))
	v, err := s.inner.SearchIssues(ctx, jql)
	span.SetAttributes(attribute.Int("vira.result.count", len(v)))
	s.done(ctx, span, t, err)
	return v, err
}

func (s *InstrumentedStore) CreateIssue(ctx context.Context, fields map[string]interface{}) (*jira.Issue, error) {
	attrs := []attribute.KeyValue{attribute.Int("vira.field.count", len(fields))}
	ctx, span, t := s.op(ctx, "CreateIssue", attrs...)
	v, err := s.inner.CreateIssue(ctx, fields)
	if v != nil {
		span.SetAttributes(attribute.String("vira.issue.key", v.Key))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStore) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	attrs := []attribute.KeyValue{
		attribute.String("vira.issue.key", key),
		attribute.Int("vira.field.count", len(fields)),
	}
	ctx, span, t := s.op(ctx, "UpdateIssue", attrs...)
	err := s.inner.UpdateIssue(ctx, key, fields)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) AddComment(ctx context.Context, key, body string) error {
	attrs := []attribute.KeyValue{attribute.String("vira.issue.key", key)}
	ctx, span, t := s.op(ctx, "AddComment", attrs...)
	err := s.inner.AddComment(ctx, key, body)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStore) AddIssuesToEpic(ctx context.Context, epicID string, keys ...string) error {
	attrs := []attribute.KeyValue{
		attribute.String("vira.epic.id", epicID),
		attribute.Int("vira.issue.count", len(keys)),
	}
	ctx, span, t := s.op(ctx, "AddIssuesToEpic", attrs...)
	err := s.inner.AddIssuesToEpic(ctx, epicID, keys...)
	s.done(ctx, span, t, err, attrs...)
	return err
}
