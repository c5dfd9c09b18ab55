package filestore

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	blobmemory "gradecore/internal/infra/blob/memory"
	kvmemory "gradecore/internal/infra/kv/memory"
	"gradecore/internal/objectstore"
	"gradecore/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	objects := objectstore.New(kvmemory.New(), nil)
	return New(objects, blobmemory.New())
}

func TestIngestAndOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Ingest(ctx, "owner-1", domain.FileKeySubmission, "../../etc/add.py", strings.NewReader("print(1)"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	rc, err := s.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "print(1)" {
		t.Fatalf("unexpected body: %q", body)
	}

	record, err := s.objects.GetAll(ctx, domain.KindFile, id)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if record["name"] != "../../etc/add.py" {
		t.Fatalf("expected original name preserved, got %v", record["name"])
	}
	path, _ := record["path"].(string)
	if strings.Contains(path, "..") || strings.HasPrefix(path, "/") {
		t.Fatalf("stored path escaped sandbox: %q", path)
	}
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fileID, err := s.Ingest(ctx, "owner-1", domain.FileKeyScript, "grade.py", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	testID, err := s.objects.Create(ctx, domain.KindTest, domain.TestSchema, map[string]any{
		"name": "t1", "tester": domain.TesterScript, "maxscore": 10.0,
		"path_script": "", "owner": "owner-1", "assignment": domain.NewID(),
	})
	if err != nil {
		t.Fatalf("Create test: %v", err)
	}
	if err := s.objects.References(domain.KindTest, testID, domain.RefFiles).Add(ctx, domain.KindFile, fileID); err != nil {
		t.Fatalf("Add reference: %v", err)
	}

	if err := s.Delete(ctx, fileID); !domain.Is(err, domain.KindInUse) {
		t.Fatalf("expected InUse, got %v", err)
	}

	if err := s.objects.References(domain.KindTest, testID, domain.RefFiles).Remove(ctx, fileID); err != nil {
		t.Fatalf("Remove reference: %v", err)
	}
	if err := s.Delete(ctx, fileID); err != nil {
		t.Fatalf("Delete after unreferenced: %v", err)
	}
	if _, err := s.objects.GetAll(ctx, domain.KindFile, fileID); !domain.Is(err, domain.KindObjectDNE) {
		t.Fatalf("expected record gone, got %v", err)
	}
}

func buildZip(t *testing.T, files map[string]string) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	data := buf.Bytes()
	return bytes.NewReader(data)
}

func TestIngestZipExpandsEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	zr := buildZip(t, map[string]string{
		"input1.txt": "1 2",
		"input2.txt": "3 4",
	})
	ids, err := s.IngestZip(ctx, "owner-1", "inputs.zip", zr, zr.Size())
	if err != nil {
		t.Fatalf("IngestZip: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 files, got %d", len(ids))
	}
	for _, id := range ids {
		record, err := s.objects.GetAll(ctx, domain.KindFile, id)
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		if record["key"] != "from_inputs.zip" {
			t.Fatalf("unexpected key: %v", record["key"])
		}
	}
}

func TestIngestZipRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	zr := buildZip(t, map[string]string{"../escape.txt": "bad"})
	if _, err := s.IngestZip(ctx, "owner-1", "evil.zip", zr, zr.Size()); !domain.Is(err, domain.KindSchemaViolation) {
		t.Fatalf("expected SchemaViolation for traversal entry, got %v", err)
	}
}

func TestIngestZipRejectsAbsolutePath(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	zr := buildZip(t, map[string]string{"/etc/passwd": "bad"})
	if _, err := s.IngestZip(ctx, "owner-1", "evil.zip", zr, zr.Size()); !domain.Is(err, domain.KindSchemaViolation) {
		t.Fatalf("expected SchemaViolation for absolute entry, got %v", err)
	}
}
