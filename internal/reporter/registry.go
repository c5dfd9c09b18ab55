package reporter

import (
	"fmt"

	"gradecore/pkg/domain"
)

// Constructor builds a Reporter for one registered mod.
type Constructor func() Reporter

// Registry resolves a domain.ReporterMod to a Reporter.
type Registry struct {
	constructors map[domain.ReporterMod]Constructor
}

// New constructs a Registry preloaded with the null reporter and a moodle
// reporter bound to client, the process-wide Moodle web-service client
// (internal/config wires its host/token/service). client may be nil; the
// moodle reporter then fails every report with LMSUnreachable.
func New(client MoodleClient) *Registry {
	r := &Registry{constructors: make(map[domain.ReporterMod]Constructor)}
	r.Register(domain.ReporterNull, func() Reporter { return NewNullReporter() })
	r.Register(domain.ReporterMoodle, func() Reporter { return NewMoodleReporter(client) })
	return r
}

// Register binds mod to constructor, overwriting any prior registration.
func (r *Registry) Register(mod domain.ReporterMod, constructor Constructor) {
	r.constructors[mod] = constructor
}

// Resolve returns a fresh Reporter for mod, or UnknownReporter if mod was
// never registered.
func (r *Registry) Resolve(mod domain.ReporterMod) (Reporter, error) {
	constructor, ok := r.constructors[mod]
	if !ok {
		return nil, domain.NewError(domain.KindUnknownReporter, "reporter.Resolve", fmt.Errorf("reporter mod %q is not registered", mod))
	}
	return constructor(), nil
}
