package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for remote call metrics
const MeterName = "github.com/erp/economic"

// Call outcomes recorded under AttrOutcome
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// CallMetrics counts remote operations and records their latency.
type CallMetrics struct {
	calls    *Counter
	failures *Counter
	duration *Histogram
	classify func(error) string
}

// NewCallMetrics registers the remote call instruments on meter. classify maps
// a call error to an outcome; nil uses Outcome.
func NewCallMetrics(meter metric.Meter, classify func(error) string) (*CallMetrics, error) {
	calls, err := NewCounter(meter, "economic.rpc.calls", "Remote operations dispatched", "{call}")
	if err != nil {
		return nil, err
	}
	failures, err := NewCounter(meter, "economic.rpc.failures", "Remote operations that did not succeed", "{call}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "economic.rpc.duration",
		Description: "Remote operation latency",
		Unit:        "s",
		Boundaries:  RPCDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	if classify == nil {
		classify = Outcome
	}
	return &CallMetrics{calls: calls, failures: failures, duration: duration, classify: classify}, nil
}

// Record records one finished call
func (m *CallMetrics) Record(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := m.classify(err)
	op := AttrOperation.String(operation)
	m.calls.Inc(ctx, op, AttrOutcome.String(outcome))
	m.duration.RecordDuration(ctx, d, op)
	if outcome != OutcomeOK {
		m.failures.Inc(ctx, op, AttrOutcome.String(outcome))
	}
}

// Outcome is the default error classification
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
