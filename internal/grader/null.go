package grader

import (
	"context"

	"gradecore/pkg/domain"
)

// nullGrader never runs anything; it exists for Tests used to smoke-test
// the engine's plumbing without a real program to execute.
type nullGrader struct{}

// NewNullGrader constructs the "null" tester: it always returns a zero
// score and a clean exit, immediately.
func NewNullGrader() Grader { return &nullGrader{} }

var _ Grader = (*nullGrader)(nil)

func (nullGrader) Grade(context.Context, GradeInput) (GradeResult, error) {
	return GradeResult{Status: domain.RunComplete, RetCode: 0, Score: 0, Output: ""}, nil
}
