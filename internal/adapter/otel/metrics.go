package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "interviewlab"

// Metrics holds the InterviewLab instruments. The zero value is not usable;
// build it with NewMetrics.
type Metrics struct {
	RunsCreated       metric.Int64Counter
	RunsCompleted     metric.Int64Counter
	Turns             metric.Int64Counter
	EvaluatorFailures metric.Int64Counter
	BlobLookups       metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RunsCreated, err = meter.Int64Counter("interviewlab.runs.created",
		metric.WithDescription("Runs created, by mode"))
	if err != nil {
		return nil, err
	}

	m.RunsCompleted, err = meter.Int64Counter("interviewlab.runs.completed",
		metric.WithDescription("Runs completed, by mode and whether they were evaluated"))
	if err != nil {
		return nil, err
	}

	m.Turns, err = meter.Int64Counter("interviewlab.turns",
		metric.WithDescription("Transcript entries appended, by role"))
	if err != nil {
		return nil, err
	}

	m.EvaluatorFailures, err = meter.Int64Counter("interviewlab.evaluator_failures_total",
		metric.WithDescription("Evaluator calls replaced by the failure evaluation"))
	if err != nil {
		return nil, err
	}

	m.BlobLookups, err = meter.Int64Histogram("interviewlab.blob.lookup_attempts",
		metric.WithDescription("Indexed lookups spent per blob read"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordBlobLookup matches the blob store's lookup hook.
func (m *Metrics) RecordBlobLookup(ctx context.Context, attempts int, found bool) {
	m.BlobLookups.Record(ctx, int64(attempts), metric.WithAttributes(attribute.Bool("found", found)))
}
