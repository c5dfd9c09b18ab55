// Package tester implements the Tester Registry (C3): a map from
// domain.TesterKind to a grader constructor, failing UnknownTester for any
// kind the registry does not recognize.
package tester

import (
	"fmt"

	"gradecore/internal/grader"
	"gradecore/pkg/domain"
)

// Constructor builds a grader.Grader for one registered tester kind.
type Constructor func() grader.Grader

// Registry resolves a domain.TesterKind to a grader.Grader.
type Registry struct {
	constructors map[domain.TesterKind]Constructor
}

// New constructs a Registry preloaded with the three tester kinds the
// engine ships: script, io, and null.
func New() *Registry {
	r := &Registry{constructors: make(map[domain.TesterKind]Constructor)}
	r.Register(domain.TesterScript, func() grader.Grader { return grader.NewScriptGrader() })
	r.Register(domain.TesterIO, func() grader.Grader { return grader.NewIOGrader() })
	r.Register(domain.TesterNull, func() grader.Grader { return grader.NewNullGrader() })
	return r
}

// Register binds kind to constructor, overwriting any prior registration.
func (r *Registry) Register(kind domain.TesterKind, constructor Constructor) {
	r.constructors[kind] = constructor
}

// Resolve returns a fresh grader for kind, or UnknownTester if kind was
// never registered.
func (r *Registry) Resolve(kind domain.TesterKind) (grader.Grader, error) {
	constructor, ok := r.constructors[kind]
	if !ok {
		return nil, domain.NewError(domain.KindUnknownTester, "tester.Resolve", fmt.Errorf("tester kind %q is not registered", kind))
	}
	return constructor(), nil
}
