package runengine

import (
	"gradecore/internal/sandbox"
	"gradecore/pkg/domain"
)

// Option configures optional dependencies for NewEngine, the same
// functional-options shape the Object Repository's neighboring
// service-layer code uses for its ambient interfaces.
type Option func(*engineOptions)

type engineOptions struct {
	clock   domain.Clock
	logger  domain.Logger
	audit   domain.AuditRecorder
	metrics domain.MetricsRecorder
	tracer  domain.Tracer
	limits  sandbox.Limits
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		clock:   domain.SystemClock,
		logger:  domain.NoopLogger{},
		audit:   domain.NoopAuditRecorder{},
		metrics: domain.NoopMetricsRecorder{},
		tracer:  domain.NoopTracer{},
	}
}

// WithClock overrides the engine's clock.
func WithClock(clock domain.Clock) Option {
	return func(o *engineOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger overrides the engine's logger.
func WithLogger(logger domain.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder overrides the engine's audit recorder.
func WithAuditRecorder(recorder domain.AuditRecorder) Option {
	return func(o *engineOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder overrides the engine's metrics recorder.
func WithMetricsRecorder(recorder domain.MetricsRecorder) Option {
	return func(o *engineOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer overrides the engine's tracer.
func WithTracer(tracer domain.Tracer) Option {
	return func(o *engineOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithLimits overrides the sandbox limits applied to every Run.
func WithLimits(limits sandbox.Limits) Option {
	return func(o *engineOptions) {
		o.limits = limits
	}
}
