// Package objectstore implements the Object Repository (C1): typed hash
// records and reference sets over a kv.Store backend.
package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gradecore/internal/infra/kv"
	"gradecore/pkg/domain"
)

// Repository provides hash-record and reference-set primitives over a
// kv.Store. It is the sole primitive layer other components build on; it
// knows nothing about Assignments, Tests, or Runs specifically.
type Repository struct {
	backend kv.Store
	clock   domain.Clock
}

// New constructs a Repository over backend. clock defaults to the system
// clock when nil.
func New(backend kv.Store, clock domain.Clock) *Repository {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Repository{backend: backend, clock: clock}
}

// Close releases the backing kv.Store.
func (r *Repository) Close() error { return r.backend.Close() }

// Decode unmarshals a hash record, as returned by GetAll, into a typed
// value via its json tags, so callers work with domain.Test/Run/Submission/...
// values instead of repeating field-by-field type assertions against a
// map[string]any.
func Decode[T any](record map[string]any) (T, error) {
	var v T
	raw, err := json.Marshal(record)
	if err != nil {
		return v, domain.NewError(domain.KindIOError, "objectstore.Decode", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, domain.NewError(domain.KindIOError, "objectstore.Decode", err)
	}
	return v, nil
}

// GetTyped fetches and decodes a record in one call.
func GetTyped[T any](ctx context.Context, r *Repository, kind domain.Kind, id string) (T, error) {
	var zero T
	record, err := r.GetAll(ctx, kind, id)
	if err != nil {
		return zero, err
	}
	return Decode[T](record)
}

func stringSet(fields []string) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// Create stores a new hash record of kind with a UUID generated here. data
// must have exactly schema's keys (the "record's key-set equals its
// declared schema exactly on creation" invariant); created_time,
// modified_time, and uuid are stamped automatically and are not part of
// schema. Returns the generated UUID.
func (r *Repository) Create(ctx context.Context, kind domain.Kind, schema []string, data map[string]any) (string, error) {
	return r.CreateWithID(ctx, kind, domain.NewID(), schema, data)
}

// CreateWithID is Create with a caller-supplied UUID, for components (the
// File Store, C2) that must know a record's id before the record exists —
// e.g. to address a blob by the same id it will later be filed under.
func (r *Repository) CreateWithID(ctx context.Context, kind domain.Kind, id string, schema []string, data map[string]any) (string, error) {
	want := stringSet(schema)
	if len(data) != len(want) {
		return "", domain.NewError(domain.KindSchemaViolation, "objectstore.Create", fmt.Errorf("expected %d fields, got %d", len(want), len(data)))
	}
	for k := range data {
		if _, ok := want[k]; !ok {
			return "", domain.NewError(domain.KindSchemaViolation, "objectstore.Create", fmt.Errorf("unexpected field %q", k))
		}
	}
	for k := range want {
		if _, ok := data[k]; !ok {
			return "", domain.NewError(domain.KindSchemaViolation, "objectstore.Create", fmt.Errorf("missing required field %q", k))
		}
	}

	now := domain.StampUnix(r.clock.Now())
	record := make(map[string]any, len(data)+3)
	for k, v := range data {
		record[k] = v
	}
	record["uuid"] = id
	record["created_time"] = now
	record["modified_time"] = now

	if err := r.put(ctx, kind, id, record); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) put(ctx context.Context, kind domain.Kind, id string, record map[string]any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return domain.NewError(domain.KindIOError, "objectstore.put", err)
	}
	if err := r.backend.Put(ctx, domain.RecordKey(kind, id), raw); err != nil {
		return domain.NewError(domain.KindIOError, "objectstore.put", err)
	}
	return nil
}

// GetAll returns every field of the record, including uuid/created_time/
// modified_time, or ObjectDNE if it does not exist.
func (r *Repository) GetAll(ctx context.Context, kind domain.Kind, id string) (map[string]any, error) {
	raw, err := r.backend.Get(ctx, domain.RecordKey(kind, id))
	if err == kv.ErrNotFound {
		return nil, domain.ObjectDNE("objectstore.GetAll", kind, id)
	}
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "objectstore.GetAll", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, domain.NewError(domain.KindIOError, "objectstore.GetAll", err)
	}
	return record, nil
}

// GetField returns a single field's value.
func (r *Repository) GetField(ctx context.Context, kind domain.Kind, id, field string) (any, error) {
	record, err := r.GetAll(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return record[field], nil
}

// SetField writes a single field's value and stamps modified_time.
func (r *Repository) SetField(ctx context.Context, kind domain.Kind, id, field string, value any) error {
	return r.Update(ctx, kind, id, map[string]any{field: value})
}

// Update merges partial into the existing record. partial's keys must be a
// subset of the record's non-bookkeeping fields; modified_time is stamped.
func (r *Repository) Update(ctx context.Context, kind domain.Kind, id string, partial map[string]any) error {
	record, err := r.GetAll(ctx, kind, id)
	if err != nil {
		return err
	}
	for k := range partial {
		if k == "uuid" || k == "created_time" || k == "modified_time" {
			return domain.NewError(domain.KindSchemaViolation, "objectstore.Update", fmt.Errorf("field %q is not updatable", k))
		}
		if _, ok := record[k]; !ok {
			return domain.NewError(domain.KindSchemaViolation, "objectstore.Update", fmt.Errorf("unknown field %q", k))
		}
	}
	for k, v := range partial {
		record[k] = v
	}
	record["modified_time"] = domain.StampUnix(r.clock.Now())
	return r.put(ctx, kind, id, record)
}

// Delete removes the hash record. Callers are responsible for
// deleting a record's reference sets first and for cross-entity reference
// checks (e.g. InUse).
func (r *Repository) Delete(ctx context.Context, kind domain.Kind, id string) error {
	if err := r.backend.Delete(ctx, domain.RecordKey(kind, id)); err != nil {
		return domain.NewError(domain.KindIOError, "objectstore.Delete", err)
	}
	return nil
}

// Exists reports whether a record of kind/id is present.
func (r *Repository) Exists(ctx context.Context, kind domain.Kind, id string) (bool, error) {
	_, err := r.GetAll(ctx, kind, id)
	if err != nil {
		if domain.Is(err, domain.KindObjectDNE) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns every record UUID of kind, in lexicographic order. It scans
// "{kind}:" and excludes reference-set keys (which carry a trailing
// ":{field}" segment).
func (r *Repository) List(ctx context.Context, kind domain.Kind) ([]string, error) {
	prefix := string(kind) + ":"
	keys, err := r.backend.Scan(ctx, prefix)
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "objectstore.List", err)
	}
	var ids []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, ":") {
			continue // reference-set key, not a hash record
		}
		ids = append(ids, rest)
	}
	sort.Strings(ids)
	return ids, nil
}
