package filestore

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"gradecore/pkg/domain"
)

// IngestZip expands a zip archive into one File per entry (directories are
// skipped), each keyed "from_<archiveName>" so graders can recognize a
// whole upload as a bundle. Entries with absolute paths or ".." traversal
// segments are rejected outright; the archive is read via r (an
// io.ReaderAt, e.g. a file opened for random access or bytes.Reader) and
// size is its total byte length.
func (s *Store) IngestZip(ctx context.Context, owner, archiveName string, r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "filestore.IngestZip", err)
	}
	key := "from_" + sanitizeFilename(archiveName)

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := validateZipEntryName(entry.Name); err != nil {
			return nil, domain.NewError(domain.KindSchemaViolation, "filestore.IngestZip", err)
		}
	}

	var ids []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, domain.NewError(domain.KindIOError, "filestore.IngestZip", err)
		}
		id, err := s.Ingest(ctx, owner, key, entry.Name, rc)
		closeErr := rc.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, domain.NewError(domain.KindIOError, "filestore.IngestZip", closeErr)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validateZipEntryName rejects absolute paths and ".." traversal segments,
// the two shapes a malicious archive uses to write outside its own
// directory once extracted.
func validateZipEntryName(name string) error {
	clean := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(clean, "/") {
		return fmt.Errorf("zip entry %q has an absolute path", name)
	}
	for _, segment := range strings.Split(clean, "/") {
		if segment == ".." {
			return fmt.Errorf("zip entry %q traverses outside the archive", name)
		}
	}
	return nil
}
