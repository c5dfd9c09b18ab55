package grader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gradecore/pkg/domain"
)

// preparedSandbox is the result of copying a Run's Test and Submission
// files into a fresh directory, ready for a sandbox.Executor to run
// commands against.
type preparedSandbox struct {
	dir string
	// singles holds destination paths for files keyed by a unique,
	// non-"input" key (e.g. "script", "solution", "submission").
	singles map[string]string
	// inputs holds destination paths for every Test file keyed "input",
	// in lexicographic order by original file name.
	inputs []string
}

// prepareSandbox creates a temp directory and copies Test.files and
// Submission.files into it, keyed by File.key. Files keyed "input" are
// collected as an ordered list (the io grader iterates input vectors by
// name); every other non-empty key must be unique per Test — a second
// file resolving to the same singular key is rejected with
// DuplicateFileKey, resolving the "duplicate Test.files keys" question in
// favor of failing loudly rather than silently keeping the first or last.
// Submission files default to the key "submission" when File.key is
// empty; Test files with an empty key and a non-empty pathScript fall
// back to that script's base name, otherwise the file's own name.
func prepareSandbox(ctx context.Context, blobs BlobOpener, pathScript string, testFiles, submissionFiles []FileRef) (*preparedSandbox, error) {
	dir, err := os.MkdirTemp("", "gradecore-sandbox-*")
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "grader.prepareSandbox", err)
	}

	ps := &preparedSandbox{dir: dir, singles: make(map[string]string)}

	type placement struct {
		ref  FileRef
		name string
	}
	var toCopy []placement

	for _, f := range testFiles {
		if f.Key == domain.FileKeyInput {
			toCopy = append(toCopy, placement{ref: f, name: f.Name})
			continue
		}
		key := f.Key
		if key == "" {
			if pathScript != "" {
				key = filepath.Base(pathScript)
			} else {
				key = f.Name
			}
		}
		if _, exists := ps.singles[key]; exists {
			_ = os.RemoveAll(dir)
			return nil, domain.NewError(domain.KindDuplicateFileKey, "grader.prepareSandbox",
				fmt.Errorf("test file key %q is used by more than one file", key))
		}
		ps.singles[key] = filepath.Join(dir, key)
		toCopy = append(toCopy, placement{ref: f, name: key})
	}

	for _, f := range submissionFiles {
		key := f.Key
		if key == "" {
			key = domain.FileKeySubmission
		}
		if _, exists := ps.singles[key]; exists {
			_ = os.RemoveAll(dir)
			return nil, domain.NewError(domain.KindDuplicateFileKey, "grader.prepareSandbox",
				fmt.Errorf("submission file key %q is used by more than one file", key))
		}
		ps.singles[key] = filepath.Join(dir, key)
		toCopy = append(toCopy, placement{ref: f, name: key})
	}

	for _, p := range toCopy {
		dest := filepath.Join(dir, p.name)
		if err := copyBlob(ctx, blobs, p.ref.ID, dest); err != nil {
			_ = os.RemoveAll(dir)
			return nil, err
		}
	}

	// Collect input destinations in File.Name lexicographic order, stable
	// regardless of Test.files enumeration order.
	type input struct {
		name, path string
	}
	var inputs []input
	for _, f := range testFiles {
		if f.Key != domain.FileKeyInput {
			continue
		}
		inputs = append(inputs, input{name: f.Name, path: filepath.Join(dir, f.Name)})
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].name < inputs[j].name })
	for _, in := range inputs {
		ps.inputs = append(ps.inputs, in.path)
	}

	return ps, nil
}

func copyBlob(ctx context.Context, blobs BlobOpener, fileID, dest string) error {
	rc, err := blobs.Open(ctx, fileID)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o700)
	if err != nil {
		return domain.NewError(domain.KindIOError, "grader.copyBlob", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return domain.NewError(domain.KindIOError, "grader.copyBlob", err)
	}
	return nil
}

// close removes the sandbox directory and everything copied into it.
func (ps *preparedSandbox) close() {
	_ = os.RemoveAll(ps.dir)
}

// single returns the sandbox path for a singular key, or "" if absent.
func (ps *preparedSandbox) single(key string) string {
	return ps.singles[key]
}
