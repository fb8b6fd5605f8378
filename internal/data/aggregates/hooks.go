package aggregates

import (
	"time"

	"github.com/yungbote/agroyield-backend/internal/observability"
)

// Hooks receive one event per finished aggregate operation. Operation names
// are "record.create", "record.update", "record.delete" and "record.upsert".
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncStorageUnavailable(op string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncStorageUnavailable(string)                   {}

// metricsHooks forwards events to the prometheus collectors.
type metricsHooks struct{ m *observability.Metrics }

// NewObservabilityHooks returns no-op hooks when metrics are disabled.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

func (h metricsHooks) ObserveOperation(op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(op, status, dur)
}

func (h metricsHooks) IncConflict(op string)           { h.m.IncAggregateConflict(op) }
func (h metricsHooks) IncStorageUnavailable(op string) { h.m.IncStorageUnavailable(op) }
