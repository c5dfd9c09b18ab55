package grader

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gradecore/internal/sandbox"
	"gradecore/pkg/domain"
)

var errNoScript = errors.New("test has no grading script")

// scriptGrader runs a single grading script against a submission and reads
// the submission's score off the script's own last line of stdout.
type scriptGrader struct{}

// NewScriptGrader constructs the "script" tester: it locates the Test's
// grading script, runs it inside a sandbox with the submission present
// alongside it, and parses the last non-empty stdout line as the score.
func NewScriptGrader() Grader { return &scriptGrader{} }

var _ Grader = (*scriptGrader)(nil)

func (scriptGrader) Grade(ctx context.Context, in GradeInput) (GradeResult, error) {
	ps, err := prepareSandbox(ctx, in.Blobs, in.PathScript, in.TestFiles, in.SubmissionFiles)
	if err != nil {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, err
	}
	defer ps.close()

	scriptPath := scriptLocation(in.PathScript, ps)
	if scriptPath == "" {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, domain.NewError(
			domain.KindObjectDNE, "grader.script.Grade",
			errNoScript,
		)
	}

	argv, stdin, closeStdin, err := scriptSubmissionHandoff(ps, scriptPath)
	if err != nil {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, err
	}
	res, err := in.Sandbox.Run(ctx, argv, ps.dir, stdin, in.Limits)
	closeStdin()
	if err != nil {
		return GradeResult{Status: domain.RunCompleteExceptionRun}, err
	}
	output := annotateLimit(combinedOutput(res), res)
	if res.KilledByLimit != sandbox.LimitNone {
		return GradeResult{Status: domain.RunCompleteExceptionRun, RetCode: res.RetCode, Output: output}, nil
	}
	if res.RetCode != 0 {
		return GradeResult{Status: domain.RunCompleteError, RetCode: res.RetCode, Output: output}, nil
	}

	score, ok := lastLineScore(string(res.Stdout))
	if !ok {
		return GradeResult{Status: domain.RunCompleteExceptionEval, RetCode: res.RetCode, Output: output}, nil
	}

	return GradeResult{
		Status:  domain.RunComplete,
		RetCode: res.RetCode,
		Score:   clampScore(score, in.MaxScore),
		Output:  output,
	}, nil
}

// scriptLocation resolves the Test's grading script: by its declared
// PathScript basename if one was copied in under that key, otherwise the
// lone file keyed "script".
func scriptLocation(pathScript string, ps *preparedSandbox) string {
	if pathScript != "" {
		if p := ps.single(filepath.Base(pathScript)); p != "" {
			return p
		}
	}
	return ps.single(domain.FileKeyScript)
}

// scriptSubmissionHandoff tells the grading script where the submission
// lives: if the submission File used key "args", its sandbox basename is
// appended to argv; if it used key "stdin", its contents are piped in on
// stdin instead. Neither key present means the script locates the
// submission itself (e.g. by a hardcoded name it expects alongside it).
func scriptSubmissionHandoff(ps *preparedSandbox, scriptPath string) (argv []string, stdin io.Reader, closeStdin func(), err error) {
	closeStdin = func() {}
	if argsPath := ps.single(domain.FileKeyArgs); argsPath != "" {
		return []string{scriptPath, filepath.Base(argsPath)}, nil, closeStdin, nil
	}
	if stdinPath := ps.single(domain.FileKeyStdin); stdinPath != "" {
		f, err := openFile(stdinPath)
		if err != nil {
			return nil, nil, closeStdin, err
		}
		return []string{scriptPath}, f, func() { closeFile(f) }, nil
	}
	return []string{scriptPath}, nil, closeStdin, nil
}

func lastLineScore(output string) (float64, bool) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		score, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return 0, false
		}
		return score, true
	}
	return 0, false
}

func clampScore(score, max float64) float64 {
	if score < 0 {
		return 0
	}
	if max > 0 && score > max {
		return max
	}
	return score
}

// combinedOutput joins a sandbox result's captured streams the way a
// terminal would have interleaved them closely enough for a grading report:
// stdout first, stderr appended when non-empty.
func combinedOutput(res sandbox.Result) string {
	out := string(res.Stdout)
	errOut := string(res.Stderr)
	if errOut == "" {
		return out
	}
	if out == "" {
		return errOut
	}
	return out + "\n" + errOut
}
