package reporter

import "context"

type nullReporter struct{}

// NewNullReporter constructs the "null" reporter mod: it always accepts.
func NewNullReporter() Reporter { return &nullReporter{} }

var _ Reporter = (*nullReporter)(nil)

func (nullReporter) Report(context.Context, ReportInput) (Outcome, error) {
	return accepted("null reporter"), nil
}
