package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"gradecore/internal/infra/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := s.Put(ctx, "a1b2/submission.py", strings.NewReader("print(1)"), core.PutOptions{ContentType: "text/x-python"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	info, rc, err := s.Get(ctx, "a1b2/submission.py")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "print(1)" {
		t.Fatalf("unexpected body: %q", body)
	}
	if info.Size != int64(len("print(1)")) {
		t.Fatalf("unexpected size: %d", info.Size)
	}
}

func TestPutRejectsTraversalKey(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Put(ctx, "../escape", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := s.Put(ctx, "/absolute", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected absolute key to be rejected")
	}
}

func TestDeleteThenGetMisses(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	existed, err := s.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("Delete: existed=%v err=%v", existed, err)
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Fatalf("expected Get to fail after Delete")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, k := range []string{"run1/a", "run1/b", "run2/a"} {
		if _, err := s.Put(ctx, k, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("Put %s: %v", k, err)
		}
	}
	infos, err := s.List(ctx, "run1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(infos))
	}
}

func TestDriverIdentifier(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverFilesystem {
		t.Fatalf("expected DriverFilesystem")
	}
}
