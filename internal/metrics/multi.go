package metrics

import (
	"context"
	"time"

	"gradecore/pkg/domain"
)

// Multi fans one Observe call out to several recorders, so a process can
// run the expvar and Prometheus recorders side by side.
type Multi struct {
	recorders []domain.MetricsRecorder
}

// NewMulti constructs a Multi over recorders, skipping any nil entries.
func NewMulti(recorders ...domain.MetricsRecorder) *Multi {
	m := &Multi{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Observe implements domain.MetricsRecorder.
func (m *Multi) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m.recorders {
		r.Observe(ctx, operation, success, duration)
	}
}
