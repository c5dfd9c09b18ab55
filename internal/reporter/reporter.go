// Package reporter implements the Reporter Registry (C6): policy-guarded
// dispatch of a Run's grade to external learning-management systems.
package reporter

import (
	"context"

	"gradecore/pkg/domain"
)

// Code classifies a reporter's refusal reason the same way domain.ErrorKind
// classifies core errors, so callers (the metrics recorder, in particular)
// can branch on outcome kind without string matching.
type Code = domain.ErrorKind

// CodeOK marks an accepted report; every other Code value names a domain
// error kind from the reporter taxonomy (DueDatePassed, NotHigher, ...).
const CodeOK Code = "ok"

// Outcome is one reporter's verdict for one Run.
type Outcome struct {
	Accepted bool
	Reason   string
	Code     Code
}

// ReportInput carries what a Reporter needs to file one Run's grade.
type ReportInput struct {
	Reporter domain.Reporter
	User     domain.User
	Run      domain.Run
	MaxScore float64
}

// Reporter posts a Run's grade to one external system under that system's
// policy, returning an Outcome rather than only an error so acceptance,
// refusal, and transport failure are all distinguishable.
type Reporter interface {
	Report(ctx context.Context, in ReportInput) (Outcome, error)
}

func accepted(reason string) Outcome {
	return Outcome{Accepted: true, Reason: reason, Code: CodeOK}
}

func refused(code Code, reason string) Outcome {
	return Outcome{Accepted: false, Reason: reason, Code: code}
}
