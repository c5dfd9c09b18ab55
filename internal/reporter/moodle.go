package reporter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gradecore/pkg/domain"
)

const commentCap = 2000

const truncatedMarker = "\nWARNING: Output Truncated"

// moodleReporter posts a Run's grade to a Moodle assignment, enforcing the
// due-date, only-higher, and prerequisite-grade policy checks a Reporter
// record's Extra fields configure.
type moodleReporter struct {
	client MoodleClient
}

// NewMoodleReporter constructs the "moodle" reporter mod bound to client,
// the shared web-service client built from process-wide configuration.
func NewMoodleReporter(client MoodleClient) Reporter {
	return &moodleReporter{client: client}
}

var _ Reporter = (*moodleReporter)(nil)

func (m *moodleReporter) Report(ctx context.Context, in ReportInput) (Outcome, error) {
	if in.User.AuthMod != "moodle" {
		return refused(domain.KindForbidden, "user is not authenticated via moodle"), nil
	}

	asnID := in.Reporter.Extra[domain.MoodleAsnID]
	if asnID == "" {
		return Outcome{}, domain.NewError(domain.KindSchemaViolation, "reporter.moodle.Report",
			fmt.Errorf("reporter is missing %s", domain.MoodleAsnID))
	}

	if m.client == nil {
		return Outcome{}, domain.NewError(domain.KindLMSUnreachable, "reporter.moodle.Report",
			fmt.Errorf("no moodle web-service client is configured"))
	}

	if boolExtra(in.Reporter.Extra, domain.MoodleRespectDueDate, true) {
		due, has, err := m.client.DueDate(ctx, asnID)
		if err != nil {
			return Outcome{}, err
		}
		if has && time.Now().After(due) {
			return refused(domain.KindDueDatePassed, "assignment due date has passed"), nil
		}
	}

	if boolExtra(in.Reporter.Extra, domain.MoodleOnlyHigher, true) {
		prior, has, err := m.client.LatestGrade(ctx, asnID, in.User.MoodleID)
		if err != nil {
			return Outcome{}, err
		}
		if has && in.Run.Score < prior {
			return refused(domain.KindNotHigher, fmt.Sprintf("new grade %.2f is not higher than prior grade %.2f", in.Run.Score, prior)), nil
		}
	}

	prereqID := in.Reporter.Extra[domain.MoodlePrereqID]
	prereqMin := floatExtra(in.Reporter.Extra, domain.MoodlePrereqMin, 0)
	if prereqID != "" && prereqID != "0" && prereqMin != 0 {
		prereqGrade, has, err := m.client.LatestGrade(ctx, prereqID, in.User.MoodleID)
		if err != nil {
			return Outcome{}, err
		}
		if !has {
			return refused(domain.KindPrereqMissing, fmt.Sprintf("no grade recorded for prerequisite %s", prereqID)), nil
		}
		if prereqGrade < prereqMin {
			return refused(domain.KindPrereqNotMet, fmt.Sprintf("prerequisite grade %.2f is below required %.2f", prereqGrade, prereqMin)), nil
		}
	}

	comment := truncateComment(in.Run.Output)
	if err := m.client.SubmitGrade(ctx, asnID, in.User.MoodleID, in.Run.Score, comment); err != nil {
		return Outcome{}, err
	}
	return accepted("grade submitted to moodle"), nil
}

func truncateComment(s string) string {
	if len(s) <= commentCap {
		return s
	}
	return s[:commentCap-len(truncatedMarker)] + truncatedMarker
}

func boolExtra(extra map[string]string, key string, defaultVal bool) bool {
	v, ok := extra[key]
	if !ok || v == "" {
		return defaultVal
	}
	return v == "1" || v == "true"
}

func floatExtra(extra map[string]string, key string, defaultVal float64) float64 {
	v, ok := extra[key]
	if !ok || v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}
