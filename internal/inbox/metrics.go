package inbox

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type storeMetrics struct {
	fetches   metric.Int64Counter
	rollbacks metric.Int64Counter
	records   metric.Int64UpDownCounter
	scope     attribute.KeyValue
}

func newStoreMetrics(m metric.Meter, scope string) *storeMetrics {
	if m == nil {
		m = noop.NewMeterProvider().Meter("")
	}
	fetches, _ := m.Int64Counter("inbox.fetches",
		metric.WithDescription("Remote fetches issued by the inbox store"),
	)
	rollbacks, _ := m.Int64Counter("inbox.rollbacks",
		metric.WithDescription("Optimistic changes reverted after a remote failure"),
	)
	records, _ := m.Int64UpDownCounter("inbox.records",
		metric.WithDescription("Records currently held by the inbox store"),
	)
	return &storeMetrics{
		fetches:   fetches,
		rollbacks: rollbacks,
		records:   records,
		scope:     attribute.String("inbox.scope", scope),
	}
}

func (m *storeMetrics) fetch(ctx context.Context, kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetches.Add(ctx, 1, metric.WithAttributes(m.scope,
		attribute.String("inbox.fetch", kind),
		attribute.String("inbox.outcome", outcome),
	))
}

func (m *storeMetrics) rollback(ctx context.Context, op string) {
	m.rollbacks.Add(ctx, 1, metric.WithAttributes(m.scope, attribute.String("inbox.op", op)))
}

func (m *storeMetrics) recordDelta(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	m.records.Add(ctx, int64(n), metric.WithAttributes(m.scope))
}
