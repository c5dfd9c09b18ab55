// Package grader implements the script, io, and null grading strategies,
// plus their shared sandbox preparation. Graders never import the Object
// Repository or blob backends directly; they see only the sanitized
// FileRef values and a BlobOpener handed to them by the caller, keeping
// the dependency direction one-way and testable in isolation.
package grader

import (
	"context"
	"fmt"
	"io"

	"gradecore/internal/sandbox"
	"gradecore/pkg/domain"
)

// FileRef is the minimal view of a File record a grader needs: enough to
// place it in a sandbox and to recognize its role by Key.
type FileRef struct {
	ID   string
	Key  string
	Name string
}

// BlobOpener opens a File's underlying blob for reading. internal/filestore.Store
// satisfies this structurally.
type BlobOpener interface {
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// GradeInput carries everything a Grader needs to produce one Run's score.
type GradeInput struct {
	MaxScore        float64
	PathScript      string
	TestFiles       []FileRef
	SubmissionFiles []FileRef
	Blobs           BlobOpener
	Sandbox         *sandbox.Executor
	Limits          sandbox.Limits
}

// GradeResult is a grader's verdict, mapped onto a Run's terminal fields by
// the Run Engine (C7).
type GradeResult struct {
	Status  domain.RunStatus
	RetCode int
	Score   float64
	Output  string
}

// Grader produces a GradeResult for one Run.
type Grader interface {
	Grade(ctx context.Context, in GradeInput) (GradeResult, error)
}

// annotateLimit appends a structured trailer line to output when a sandbox
// result was cut short by a resource limit, so a Run's persisted output can
// distinguish a CPU-limit kill from a wall-clock kill from a plain non-zero
// exit without a caller re-deriving it from the raw retcode.
func annotateLimit(output string, res sandbox.Result) string {
	if res.KilledByLimit == sandbox.LimitNone {
		return output
	}
	line := fmt.Sprintf("sandbox: limit=%s retcode=%d", res.KilledByLimit, res.RetCode)
	if output == "" {
		return line
	}
	return output + "\n" + line
}
