// Package runengine implements the Run Engine (C7): the state machine and
// orchestration sequence that turns a (Test, Submission) pair into a graded,
// reported Run.
package runengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gradecore/internal/filestore"
	"gradecore/internal/grader"
	"gradecore/internal/objectstore"
	"gradecore/internal/reporter"
	"gradecore/internal/sandbox"
	"gradecore/internal/tester"
	"gradecore/pkg/domain"
)

// Queue abstracts the Worker Pool's job-submission API so the Run Engine
// can dispatch newly queued Runs and cancel in-flight ones without
// importing internal/worker — the Worker Pool depends on this package, not
// the other way around.
type Queue interface {
	Enqueue(ctx context.Context, runID string) error
	Cancel(runID string)
}

// Engine coordinates the Tester Registry, Graders, and Reporter Registry
// for one Run at a time, and owns the Run record's state machine.
type Engine struct {
	objects   *objectstore.Repository
	files     *filestore.Store
	testers   *tester.Registry
	reporters *reporter.Registry
	sandbox   *sandbox.Executor
	queue     Queue

	clock   domain.Clock
	logger  domain.Logger
	audit   domain.AuditRecorder
	metrics domain.MetricsRecorder
	tracer  domain.Tracer
	limits  sandbox.Limits
}

// NewEngine constructs an Engine. SetQueue must be called before Create is
// used, since the worker pool it wires in is itself constructed from the
// engine's Execute method.
func NewEngine(objects *objectstore.Repository, files *filestore.Store, testers *tester.Registry, reporters *reporter.Registry, sbox *sandbox.Executor, opts ...Option) *Engine {
	options := defaultEngineOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Engine{
		objects:   objects,
		files:     files,
		testers:   testers,
		reporters: reporters,
		sandbox:   sbox,
		clock:     options.clock,
		logger:    options.logger,
		audit:     options.audit,
		metrics:   options.metrics,
		tracer:    options.tracer,
		limits:    options.limits,
	}
}

// SetQueue binds the worker pool the engine enqueues Runs onto.
func (e *Engine) SetQueue(q Queue) { e.queue = q }

// Create validates that test and submission exist and share an Assignment,
// inserts a queued Run, and enqueues it for execution. If an active
// (non-terminal) Run already exists for the same (test, submission) pair,
// that Run is returned instead of creating a duplicate — the "at-most-one
// active Run, duplicate submission is a no-op" rule, applied at the
// (test, submission) granularity since this layer has no separate Run UUID
// supplied by a caller to dedupe against.
func (e *Engine) Create(ctx context.Context, testID, submissionID string) (domain.Run, error) {
	test, err := objectstore.GetTyped[domain.Test](ctx, e.objects, domain.KindTest, testID)
	if err != nil {
		return domain.Run{}, err
	}
	submission, err := objectstore.GetTyped[domain.Submission](ctx, e.objects, domain.KindSubmission, submissionID)
	if err != nil {
		return domain.Run{}, err
	}
	if test.Assignment != submission.Assignment {
		return domain.Run{}, domain.NewError(domain.KindSchemaViolation, "runengine.Create",
			fmt.Errorf("test %s and submission %s belong to different assignments", testID, submissionID))
	}

	if existing, ok, err := e.findActiveRun(ctx, testID, submissionID); err != nil {
		return domain.Run{}, err
	} else if ok {
		return existing, nil
	}

	id, err := e.objects.Create(ctx, domain.KindRun, domain.RunSchema, map[string]any{
		"test":       testID,
		"submission": submissionID,
		"status":     string(domain.RunQueued),
		"retcode":    0,
		"score":      float64(0),
		"output":     "",
		"owner":      submission.Owner,
		"attempt":    1,
	})
	if err != nil {
		return domain.Run{}, err
	}

	if e.queue != nil {
		if err := e.queue.Enqueue(ctx, id); err != nil {
			_ = e.objects.Delete(ctx, domain.KindRun, id)
			return domain.Run{}, err
		}
	}

	e.audit.Record(ctx, domain.AuditEntry{Operation: "run.create", Kind: domain.KindRun, EntityID: id, Status: domain.AuditStatusSuccess, Timestamp: e.clock.Now()})
	return objectstore.GetTyped[domain.Run](ctx, e.objects, domain.KindRun, id)
}

func (e *Engine) findActiveRun(ctx context.Context, testID, submissionID string) (domain.Run, bool, error) {
	ids, err := e.objects.List(ctx, domain.KindRun)
	if err != nil {
		return domain.Run{}, false, err
	}
	for _, id := range ids {
		run, err := objectstore.GetTyped[domain.Run](ctx, e.objects, domain.KindRun, id)
		if err != nil {
			continue
		}
		if run.Test == testID && run.Submission == submissionID && !run.Status.IsTerminal() {
			return run, true, nil
		}
	}
	return domain.Run{}, false, nil
}

// Get fetches one Run by id.
func (e *Engine) Get(ctx context.Context, id string) (domain.Run, error) {
	return objectstore.GetTyped[domain.Run](ctx, e.objects, domain.KindRun, id)
}

// List returns every Run.
func (e *Engine) List(ctx context.Context) ([]domain.Run, error) {
	ids, err := e.objects.List(ctx, domain.KindRun)
	if err != nil {
		return nil, err
	}
	runs := make([]domain.Run, 0, len(ids))
	for _, id := range ids {
		run, err := objectstore.GetTyped[domain.Run](ctx, e.objects, domain.KindRun, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Delete cancels a Run's worker job (if still active) and removes its
// record.
func (e *Engine) Delete(ctx context.Context, id string) error {
	run, err := objectstore.GetTyped[domain.Run](ctx, e.objects, domain.KindRun, id)
	if err != nil {
		return err
	}
	if !run.Status.IsTerminal() && e.queue != nil {
		e.queue.Cancel(id)
	}
	return e.objects.Delete(ctx, domain.KindRun, id)
}

// IsComplete reports whether run has reached any terminal status.
func (e *Engine) IsComplete(run domain.Run) bool { return run.Status.IsTerminal() }

// Execute runs one Run's full grading sequence: transition to running,
// grade, persist the terminal result, then dispatch to every reporter the
// Run's Test references. Called by the Worker Pool for each dequeued Run;
// a no-op if the Run is not (or no longer) queued.
func (e *Engine) Execute(ctx context.Context, runID string) error {
	run, err := objectstore.GetTyped[domain.Run](ctx, e.objects, domain.KindRun, runID)
	if err != nil {
		return err
	}
	if run.Status != domain.RunQueued {
		return nil
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "run.execute")
	defer func() { span.End(err) }()

	if err = e.objects.SetField(ctx, domain.KindRun, runID, "status", string(domain.RunRunning)); err != nil {
		return err
	}

	test, err := objectstore.GetTyped[domain.Test](ctx, e.objects, domain.KindTest, run.Test)
	if err != nil {
		return e.failRun(ctx, runID, domain.RunCompleteExceptionRun, 0, err.Error())
	}
	submission, err := objectstore.GetTyped[domain.Submission](ctx, e.objects, domain.KindSubmission, run.Submission)
	if err != nil {
		return e.failRun(ctx, runID, domain.RunCompleteExceptionRun, 0, err.Error())
	}

	g, err := e.testers.Resolve(test.Tester)
	if err != nil {
		return e.failRun(ctx, runID, domain.RunCompleteExceptionRun, 0, err.Error())
	}

	testFiles, err := e.fileRefs(ctx, domain.KindTest, test.UUID)
	if err != nil {
		return e.failRun(ctx, runID, domain.RunCompleteExceptionRun, 0, err.Error())
	}
	submissionFiles, err := e.fileRefs(ctx, domain.KindSubmission, submission.UUID)
	if err != nil {
		return e.failRun(ctx, runID, domain.RunCompleteExceptionRun, 0, err.Error())
	}

	result, gradeErr := g.Grade(ctx, grader.GradeInput{
		MaxScore:        test.MaxScore,
		PathScript:      test.PathScript,
		TestFiles:       testFiles,
		SubmissionFiles: submissionFiles,
		Blobs:           e.files,
		Sandbox:         e.sandbox,
		Limits:          e.limits,
	})

	status := result.Status
	if gradeErr != nil {
		if status == "" {
			status = domain.RunCompleteExceptionRun
		}
		if result.Output == "" {
			result.Output = gradeErr.Error()
		}
	}

	duration := time.Since(start)
	e.metrics.Observe(ctx, "run.execute", gradeErr == nil, duration)

	if err := e.objects.Update(ctx, domain.KindRun, runID, map[string]any{
		"status":  string(status),
		"retcode": result.RetCode,
		"score":   result.Score,
		"output":  result.Output,
	}); err != nil {
		return err
	}

	if status.IsTerminal() {
		output := e.dispatchReporters(ctx, test, submission, run, result, result.Output)
		if output != result.Output {
			if err := e.objects.SetField(ctx, domain.KindRun, runID, "output", output); err != nil {
				return err
			}
		}
	}

	e.audit.Record(ctx, domain.AuditEntry{
		Operation: "run.execute", Kind: domain.KindRun, EntityID: runID,
		Status: auditStatusFor(status), Duration: duration, Timestamp: e.clock.Now(),
	})
	return nil
}

func auditStatusFor(status domain.RunStatus) domain.AuditStatus {
	if status == domain.RunComplete {
		return domain.AuditStatusSuccess
	}
	return domain.AuditStatusError
}

// failRun persists a terminal status reached before grading could even
// start (e.g. the Test record vanished mid-flight).
func (e *Engine) failRun(ctx context.Context, runID string, status domain.RunStatus, retcode int, output string) error {
	return e.objects.Update(ctx, domain.KindRun, runID, map[string]any{
		"status":  string(status),
		"retcode": retcode,
		"score":   float64(0),
		"output":  output,
	})
}

// fileRefs resolves a Test's or Submission's files reference set into
// grader.FileRef values.
func (e *Engine) fileRefs(ctx context.Context, kind domain.Kind, id string) ([]grader.FileRef, error) {
	ids, err := e.objects.References(kind, id, domain.RefFiles).List(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]grader.FileRef, 0, len(ids))
	for _, fileID := range ids {
		file, err := objectstore.GetTyped[domain.File](ctx, e.objects, domain.KindFile, fileID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, grader.FileRef{ID: file.UUID, Key: file.Key, Name: file.Name})
	}
	return refs, nil
}

// dispatchReporters files the graded Run's score with every Reporter the
// Test references, appending each outcome as a line to output. A reporter
// failure is recorded but never changes the Run's own status.
func (e *Engine) dispatchReporters(ctx context.Context, test domain.Test, submission domain.Submission, run domain.Run, result grader.GradeResult, output string) string {
	reporterIDs, err := e.objects.References(domain.KindTest, test.UUID, domain.RefReporters).List(ctx)
	if err != nil || len(reporterIDs) == 0 {
		return output
	}

	user, userErr := objectstore.GetTyped[domain.User](ctx, e.objects, domain.KindUser, submission.Owner)

	graded := run
	graded.Status = result.Status
	graded.RetCode = result.RetCode
	graded.Score = result.Score
	graded.Output = output

	var lines []string
	for _, reporterID := range reporterIDs {
		line := e.reportOne(ctx, reporterID, test, user, userErr, graded)
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return output
	}
	if output == "" {
		return strings.Join(lines, "\n")
	}
	return output + "\n" + strings.Join(lines, "\n")
}

func (e *Engine) reportOne(ctx context.Context, reporterID string, test domain.Test, user domain.User, userErr error, run domain.Run) string {
	if userErr != nil {
		return fmt.Sprintf("reporter %s: err %s", reporterID, userErr.Error())
	}
	record, err := objectstore.GetTyped[domain.Reporter](ctx, e.objects, domain.KindReporter, reporterID)
	if err != nil {
		return fmt.Sprintf("reporter %s: err %s", reporterID, err.Error())
	}
	rep, err := e.reporters.Resolve(record.Mod)
	if err != nil {
		return fmt.Sprintf("reporter %s: err %s", reporterID, err.Error())
	}
	outcome, err := rep.Report(ctx, reporter.ReportInput{Reporter: record, User: user, Run: run, MaxScore: test.MaxScore})
	if err != nil {
		return fmt.Sprintf("reporter %s: err %s", reporterID, err.Error())
	}
	if !outcome.Accepted {
		return fmt.Sprintf("reporter %s: err %s", reporterID, outcome.Reason)
	}
	return fmt.Sprintf("reporter %s: ok %s", reporterID, outcome.Reason)
}
