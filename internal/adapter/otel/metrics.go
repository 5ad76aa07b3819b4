package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "promptforge"

// Metrics holds all PromptForge metric instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	BackendCalls    metric.Int64Counter
	BackendFailures metric.Int64Counter
	Activations     metric.Int64Counter
	PromptChars     metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.BackendCalls, err = meter.Int64Counter("promptforge.backend.calls",
		metric.WithDescription("Number of prompt backend calls"))
	if err != nil {
		return nil, err
	}

	m.BackendFailures, err = meter.Int64Counter("promptforge.backend.failures",
		metric.WithDescription("Number of failed prompt backend calls"))
	if err != nil {
		return nil, err
	}

	m.Activations, err = meter.Int64Counter("promptforge.compositions.activated",
		metric.WithDescription("Number of composition activations"))
	if err != nil {
		return nil, err
	}

	m.PromptChars, err = meter.Int64Histogram("promptforge.prompt.chars",
		metric.WithDescription("Character count of activated prompts"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordBackendCall counts one backend call for op and, when err is non-nil,
// one failure.
func (m *Metrics) RecordBackendCall(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.BackendCalls.Add(ctx, 1, attrs)
	if err != nil {
		m.BackendFailures.Add(ctx, 1, attrs)
	}
}

// RecordActivation counts an activation and records the prompt size.
func (m *Metrics) RecordActivation(ctx context.Context, compositionID, charCount int) {
	if m == nil {
		return
	}
	m.Activations.Add(ctx, 1, metric.WithAttributes(attribute.Int("composition.id", compositionID)))
	m.PromptChars.Record(ctx, int64(charCount))
}
