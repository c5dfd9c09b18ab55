package objectstore

import (
	"context"
	"testing"

	"gradecore/internal/infra/kv/memory"
	"gradecore/pkg/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return New(memory.New(), nil)
}

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.Create(ctx, domain.KindFile, domain.FileSchema, map[string]any{
		"key":   "submission",
		"name":  "add_good.py",
		"path":  "/files/add_good.py",
		"owner": "owner-uuid",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	record, err := repo.GetAll(ctx, domain.KindFile, id)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if record["uuid"] != id {
		t.Fatalf("uuid mismatch: %v", record["uuid"])
	}
	if record["created_time"] == "" || record["modified_time"] == "" {
		t.Fatalf("expected timestamps to be stamped: %+v", record)
	}
	if record["name"] != "add_good.py" {
		t.Fatalf("name mismatch: %+v", record)
	}
}

func TestCreateRejectsSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Create(ctx, domain.KindFile, domain.FileSchema, map[string]any{
		"key": "submission",
	}); err == nil || !domain.Is(err, domain.KindSchemaViolation) {
		t.Fatalf("expected SchemaViolation, got %v", err)
	}

	if _, err := repo.Create(ctx, domain.KindFile, domain.FileSchema, map[string]any{
		"key": "submission", "name": "a", "path": "/a", "owner": "o", "extra": "nope",
	}); err == nil || !domain.Is(err, domain.KindSchemaViolation) {
		t.Fatalf("expected SchemaViolation for unexpected field, got %v", err)
	}
}

func TestGetMissingIsObjectDNE(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.GetAll(ctx, domain.KindFile, domain.NewID()); !domain.Is(err, domain.KindObjectDNE) {
		t.Fatalf("expected ObjectDNE, got %v", err)
	}
}

func TestUpdateSubsetOfSchema(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, err := repo.Create(ctx, domain.KindAssignment, domain.AssignmentSchema, map[string]any{
		"name": "hw1", "owner": "owner-uuid",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Update(ctx, domain.KindAssignment, id, map[string]any{"name": "hw1-renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	record, err := repo.GetAll(ctx, domain.KindAssignment, id)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if record["name"] != "hw1-renamed" {
		t.Fatalf("update did not apply: %+v", record)
	}
	if err := repo.Update(ctx, domain.KindAssignment, id, map[string]any{"bogus": 1}); err == nil {
		t.Fatalf("expected error updating unknown field")
	}
}

func TestListExcludesReferenceSetKeys(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id, err := repo.Create(ctx, domain.KindTest, domain.TestSchema, map[string]any{
		"name": "t1", "tester": domain.TesterNull, "maxscore": 10.0,
		"path_script": "", "owner": "owner-uuid", "assignment": domain.NewID(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fileID := domain.NewID()
	if err := repo.put(ctx, domain.KindFile, fileID, map[string]any{"uuid": fileID}); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	if err := repo.References(domain.KindTest, id, domain.RefFiles).Add(ctx, domain.KindFile, fileID); err != nil {
		t.Fatalf("Add reference: %v", err)
	}

	ids, err := repo.List(ctx, domain.KindTest)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected single test id %s, got %v", id, ids)
	}
}

func TestReferenceSetAddRemoveList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	testID := domain.NewID()
	fileA := domain.NewID()
	fileB := domain.NewID()
	for _, id := range []string{fileA, fileB} {
		if err := repo.put(ctx, domain.KindFile, id, map[string]any{"uuid": id}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	rs := repo.References(domain.KindTest, testID, domain.RefFiles)
	if err := rs.Add(ctx, domain.KindFile, fileA, fileB); err != nil {
		t.Fatalf("Add: %v", err)
	}
	list, err := rs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 members, got %v", list)
	}
	if err := rs.Remove(ctx, fileA); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	list, err = rs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0] != fileB {
		t.Fatalf("expected only fileB remaining, got %v", list)
	}
}

func TestReferenceSetRejectsMalformedUUID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rs := repo.References(domain.KindTest, domain.NewID(), domain.RefFiles)
	if err := rs.Add(ctx, domain.KindFile, "not-a-uuid"); !domain.Is(err, domain.KindBadUUID) {
		t.Fatalf("expected BadUUID, got %v", err)
	}
}

func TestReferenceSetRejectsStaleReference(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rs := repo.References(domain.KindTest, domain.NewID(), domain.RefFiles)
	if err := rs.Add(ctx, domain.KindFile, domain.NewID()); !domain.Is(err, domain.KindObjectDNE) {
		t.Fatalf("expected ObjectDNE for stale reference, got %v", err)
	}
}
