// Package filestore implements the File Store (C2): content-addressable
// blob storage bound to File metadata records. It sits
// between the Object Repository (C1, for File records) and a
// internal/infra/blob.Store backend (for the bytes themselves).
package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	blobcore "gradecore/internal/infra/blob/core"
	"gradecore/internal/objectstore"
	"gradecore/pkg/domain"
)

// Store ingests, serves, and deletes uploaded file blobs, keeping each
// blob's on-disk path bound to a File hash record in objects.
type Store struct {
	objects *objectstore.Repository
	blobs   blobcore.Store
}

// New constructs a Store over an Object Repository and a blob backend.
func New(objects *objectstore.Repository, blobs blobcore.Store) *Store {
	return &Store{objects: objects, blobs: blobs}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilename strips path separators and anything outside a
// conservative allow-list, so the stored path can never escape its
// generated directory.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "blob"
	}
	return name
}

// Ingest stores one uploaded stream as a File owned by owner, under the
// given key ("submission", "solution", "script", "input", ...; see
// pkg/domain's FileKey* constants). It generates a UUID, writes the blob
// atomically at "<uuid>/<sanitized-filename>", and creates the File
// record. Returns the new File's UUID.
func (s *Store) Ingest(ctx context.Context, owner, key, filename string, r io.Reader) (string, error) {
	id := domain.NewID()
	storedPath := fmt.Sprintf("%s/%s", id, sanitizeFilename(filename))
	if _, err := s.blobs.Put(ctx, storedPath, r, blobcore.PutOptions{}); err != nil {
		return "", domain.NewError(domain.KindIOError, "filestore.Ingest", err)
	}
	fileID, err := s.objects.CreateWithID(ctx, domain.KindFile, id, domain.FileSchema, map[string]any{
		"key":   key,
		"name":  filename,
		"path":  storedPath,
		"owner": owner,
	})
	if err != nil {
		_, _ = s.blobs.Delete(ctx, storedPath)
		return "", err
	}
	return fileID, nil
}

// Open returns the blob bytes for a File record, identified by its UUID.
func (s *Store) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	record, err := s.objects.GetAll(ctx, domain.KindFile, fileID)
	if err != nil {
		return nil, err
	}
	storedPath, _ := record["path"].(string)
	_, rc, err := s.blobs.Get(ctx, storedPath)
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "filestore.Open", err)
	}
	return rc, nil
}

// Delete removes a File record and its backing blob, refusing while the
// file is referenced by any Test or Submission. Files and Reporters are
// global entities; referenced ones cannot be deleted.
func (s *Store) Delete(ctx context.Context, fileID string) error {
	inUse, err := s.referenced(ctx, fileID)
	if err != nil {
		return err
	}
	if inUse {
		return domain.NewError(domain.KindInUse, "filestore.Delete", fmt.Errorf("file %s is referenced", fileID))
	}
	record, err := s.objects.GetAll(ctx, domain.KindFile, fileID)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, domain.KindFile, fileID); err != nil {
		return err
	}
	storedPath, _ := record["path"].(string)
	if _, err := s.blobs.Delete(ctx, storedPath); err != nil {
		return domain.NewError(domain.KindIOError, "filestore.Delete", err)
	}
	return nil
}

// referenced reports whether fileID appears in any Test's or Submission's
// files reference set.
func (s *Store) referenced(ctx context.Context, fileID string) (bool, error) {
	for _, kind := range []domain.Kind{domain.KindTest, domain.KindSubmission} {
		ids, err := s.objects.List(ctx, kind)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			members, err := s.objects.References(kind, id, domain.RefFiles).List(ctx)
			if err != nil {
				return false, err
			}
			for _, m := range members {
				if m == fileID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
