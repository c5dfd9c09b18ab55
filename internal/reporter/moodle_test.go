package reporter

import (
	"context"
	"strings"
	"testing"
	"time"

	"gradecore/pkg/domain"
)

type fakeMoodleClient struct {
	due         time.Time
	hasDue      bool
	priorGrades map[string]float64
	submitted   bool
	submitErr   error
}

func (f *fakeMoodleClient) DueDate(ctx context.Context, courseModuleID string) (time.Time, bool, error) {
	return f.due, f.hasDue, nil
}

func (f *fakeMoodleClient) LatestGrade(ctx context.Context, courseModuleID, userMoodleID string) (float64, bool, error) {
	grade, ok := f.priorGrades[courseModuleID]
	return grade, ok, nil
}

func (f *fakeMoodleClient) SubmitGrade(ctx context.Context, courseModuleID, userMoodleID string, grade float64, comment string) error {
	f.submitted = true
	return f.submitErr
}

func baseInput(score float64, extra map[string]string) ReportInput {
	return ReportInput{
		Reporter: domain.Reporter{Mod: domain.ReporterMoodle, Extra: extra},
		User:     domain.User{UUID: "u1", AuthMod: "moodle", MoodleID: "42"},
		Run:      domain.Run{Score: score, Output: "ok"},
		MaxScore: 10,
	}
}

func TestMoodleReporterRejectsNonMoodleUser(t *testing.T) {
	client := &fakeMoodleClient{}
	r := NewMoodleReporter(client)
	in := baseInput(5, map[string]string{domain.MoodleAsnID: "7"})
	in.User.AuthMod = "local"

	out, err := r.Report(context.Background(), in)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if out.Accepted {
		t.Fatalf("expected rejection for non-moodle user")
	}
	if client.submitted {
		t.Fatalf("should not submit a grade for a rejected user")
	}
}

func TestMoodleReporterRefusesPastDueDate(t *testing.T) {
	client := &fakeMoodleClient{due: time.Now().Add(-time.Hour), hasDue: true}
	r := NewMoodleReporter(client)
	in := baseInput(5, map[string]string{domain.MoodleAsnID: "7"})

	out, err := r.Report(context.Background(), in)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if out.Accepted || out.Code != domain.KindDueDatePassed {
		t.Fatalf("expected DueDatePassed, got %+v", out)
	}
}

func TestMoodleReporterRefusesLowerGrade(t *testing.T) {
	client := &fakeMoodleClient{priorGrades: map[string]float64{"7": 8.0}}
	r := NewMoodleReporter(client)
	in := baseInput(6.0, map[string]string{domain.MoodleAsnID: "7"})

	out, err := r.Report(context.Background(), in)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if out.Accepted || out.Code != domain.KindNotHigher {
		t.Fatalf("expected NotHigher, got %+v", out)
	}
	if client.submitted {
		t.Fatalf("should not submit a grade that is not higher")
	}
}

func TestMoodleReporterPrereqNotMet(t *testing.T) {
	client := &fakeMoodleClient{priorGrades: map[string]float64{"99": 3.0}}
	r := NewMoodleReporter(client)
	in := baseInput(9.0, map[string]string{
		domain.MoodleAsnID:    "7",
		domain.MoodleOnlyHigher: "0",
		domain.MoodlePrereqID:   "99",
		domain.MoodlePrereqMin:  "5",
	})

	out, err := r.Report(context.Background(), in)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if out.Accepted || out.Code != domain.KindPrereqNotMet {
		t.Fatalf("expected PrereqNotMet, got %+v", out)
	}
}

func TestMoodleReporterPrereqMissing(t *testing.T) {
	client := &fakeMoodleClient{priorGrades: map[string]float64{}}
	r := NewMoodleReporter(client)
	in := baseInput(9.0, map[string]string{
		domain.MoodleAsnID:      "7",
		domain.MoodleOnlyHigher: "0",
		domain.MoodlePrereqID:   "99",
		domain.MoodlePrereqMin:  "5",
	})

	out, err := r.Report(context.Background(), in)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if out.Accepted || out.Code != domain.KindPrereqMissing {
		t.Fatalf("expected PrereqMissing, got %+v", out)
	}
}

func TestMoodleReporterAcceptsAndSubmits(t *testing.T) {
	client := &fakeMoodleClient{priorGrades: map[string]float64{"7": 4.0}}
	r := NewMoodleReporter(client)
	in := baseInput(9.0, map[string]string{domain.MoodleAsnID: "7"})

	out, err := r.Report(context.Background(), in)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !out.Accepted {
		t.Fatalf("expected acceptance, got %+v", out)
	}
	if !client.submitted {
		t.Fatalf("expected grade to be submitted")
	}
}

func TestTruncateCommentAppendsMarker(t *testing.T) {
	long := make([]byte, commentCap+10)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateComment(string(long))
	if len(got) != commentCap {
		t.Fatalf("unexpected truncated length %d, want %d", len(got), commentCap)
	}
	if !strings.HasSuffix(got, truncatedMarker) {
		t.Fatalf("expected truncated comment to end with the marker, got %q", got)
	}
}

func TestRegistryResolvesRegisteredMods(t *testing.T) {
	reg := New(&fakeMoodleClient{})
	if _, err := reg.Resolve(domain.ReporterNull); err != nil {
		t.Fatalf("Resolve null: %v", err)
	}
	if _, err := reg.Resolve(domain.ReporterMoodle); err != nil {
		t.Fatalf("Resolve moodle: %v", err)
	}
	if _, err := reg.Resolve("bogus"); err == nil || !domain.Is(err, domain.KindUnknownReporter) {
		t.Fatalf("expected UnknownReporter for unregistered mod")
	}
}
