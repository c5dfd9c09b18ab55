package grader

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gradecore/internal/sandbox"
	"gradecore/pkg/domain"
)

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "grader.io.openFile", err)
	}
	return f, nil
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

// ioGrader compares a reference solution's stdout against the submission's
// stdout across every input vector attached to the Test, scoring
// proportionally to how many vectors agree.
type ioGrader struct{}

// NewIOGrader constructs the "io" tester.
func NewIOGrader() Grader { return &ioGrader{} }

var _ Grader = (*ioGrader)(nil)

func (ioGrader) Grade(ctx context.Context, in GradeInput) (GradeResult, error) {
	ps, err := prepareSandbox(ctx, in.Blobs, in.PathScript, in.TestFiles, in.SubmissionFiles)
	if err != nil {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, err
	}
	defer ps.close()

	solution := ps.single(domain.FileKeySolution)
	submission := ps.single(domain.FileKeySubmission)
	if solution == "" || submission == "" {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, domain.NewError(
			domain.KindObjectDNE, "grader.io.Grade",
			fmt.Errorf("io tester requires a solution file and a submission file"),
		)
	}
	if len(ps.inputs) == 0 {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, domain.NewError(
			domain.KindObjectDNE, "grader.io.Grade",
			fmt.Errorf("io tester requires at least one input vector"),
		)
	}

	var passed int
	var lastSubRes sandbox.Result
	var trailer string
	for _, input := range ps.inputs {
		stdin, err := openFile(input)
		if err != nil {
			return GradeResult{Status: domain.RunCompleteExceptionRun}, err
		}
		refRes, err := in.Sandbox.Run(ctx, []string{solution}, ps.dir, stdin, in.Limits)
		closeFile(stdin)
		if err != nil {
			return GradeResult{Status: domain.RunCompleteExceptionRun}, err
		}
		if refRes.KilledByLimit != sandbox.LimitNone || refRes.RetCode != 0 {
			// The reference solution failing is the Test's fault, not the
			// submission's: report it complete with the solution's own
			// retcode rather than penalizing the submission.
			return GradeResult{Status: domain.RunComplete, RetCode: refRes.RetCode, Score: 0, Output: annotateLimit(combinedOutput(refRes), refRes)}, nil
		}

		stdin2, err := openFile(input)
		if err != nil {
			return GradeResult{Status: domain.RunCompleteExceptionRun}, err
		}
		subRes, err := in.Sandbox.Run(ctx, []string{submission}, ps.dir, stdin2, in.Limits)
		closeFile(stdin2)
		if err != nil {
			return GradeResult{Status: domain.RunCompleteExceptionRun}, err
		}
		lastSubRes = subRes

		// A submission exceeding a limit on one input vector only fails
		// that case; grading continues across the remaining vectors.
		if subRes.KilledByLimit != sandbox.LimitNone {
			trailer = annotateLimit(trailer, subRes)
			continue
		}

		if bytes.Equal(trimTrailingWhitespace(refRes.Stdout), trimTrailingWhitespace(subRes.Stdout)) {
			passed++
		}
	}

	score := in.MaxScore * float64(passed) / float64(len(ps.inputs))
	output := fmt.Sprintf("%d/%d input vectors matched", passed, len(ps.inputs))
	if trailer != "" {
		output += "\n" + trailer
	}
	return GradeResult{
		Status:  domain.RunComplete,
		RetCode: lastSubRes.RetCode,
		Score:   score,
		Output:  output,
	}, nil
}

// trimTrailingWhitespace strips trailing spaces, tabs, and newlines so a
// missing final newline doesn't fail an otherwise byte-identical comparison.
func trimTrailingWhitespace(b []byte) []byte {
	return bytes.TrimRight(b, " \t\r\n")
}
