package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"gradecore/internal/infra/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()

	if _, err := s.Put(ctx, "files/abc/solution.py", strings.NewReader("print(2)"), core.PutOptions{ContentType: "text/x-python"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	info, rc, err := s.Get(ctx, "files/abc/solution.py")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "print(2)" {
		t.Fatalf("unexpected body: %q", body)
	}
	if info.ContentType != "text/x-python" {
		t.Fatalf("unexpected content type: %q", info.ContentType)
	}
}

func TestHeadMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if _, err := s.Head(ctx, "missing"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestDeleteRemovesObject(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Fatalf("expected Get to fail after Delete")
	}
}

func TestListReturnsPutObjects(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	for _, k := range []string{"run1/a", "run1/b"} {
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
	if NewMockForTests().Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3")
	}
}
