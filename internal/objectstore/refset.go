package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gradecore/internal/infra/kv"
	"gradecore/pkg/domain"
)

// References returns a handle onto the reference set stored at
// "{kind}:{id}:{field}". The set holds well-formed UUID strings naming
// records of some expected kind; Add checks that expectation when given a
// non-empty expectKind.
func (r *Repository) References(kind domain.Kind, id, field string) *ReferenceSet {
	return &ReferenceSet{repo: r, key: domain.ReferenceSetKey(kind, id, field)}
}

// ReferenceSet is an unordered set of UUID strings.
type ReferenceSet struct {
	repo *Repository
	key  string
}

func (rs *ReferenceSet) load(ctx context.Context) (map[string]struct{}, error) {
	raw, err := rs.repo.backend.Get(ctx, rs.key)
	if err == kv.ErrNotFound {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.KindIOError, "objectstore.ReferenceSet", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, domain.NewError(domain.KindIOError, "objectstore.ReferenceSet", err)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (rs *ReferenceSet) save(ctx context.Context, set map[string]struct{}) error {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raw, err := json.Marshal(ids)
	if err != nil {
		return domain.NewError(domain.KindIOError, "objectstore.ReferenceSet", err)
	}
	if err := rs.repo.backend.Put(ctx, rs.key, raw); err != nil {
		return domain.NewError(domain.KindIOError, "objectstore.ReferenceSet", err)
	}
	return nil
}

// Add sanitizes each id as a well-formed UUID, optionally verifies it
// resolves to an existing record of expectKind (pass "" to skip the check),
// and atomically adds it to the set.
func (rs *ReferenceSet) Add(ctx context.Context, expectKind domain.Kind, ids ...string) error {
	for _, id := range ids {
		if !domain.ValidUUID(id) {
			return domain.NewError(domain.KindBadUUID, "objectstore.ReferenceSet.Add", fmt.Errorf("%q is not a uuid", id))
		}
		if expectKind != "" {
			ok, err := rs.repo.Exists(ctx, expectKind, id)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ObjectDNE("objectstore.ReferenceSet.Add", expectKind, id)
			}
		}
	}
	set, err := rs.load(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return rs.save(ctx, set)
}

// Remove atomically removes ids from the set; absent ids are ignored.
func (rs *ReferenceSet) Remove(ctx context.Context, ids ...string) error {
	set, err := rs.load(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(set, id)
	}
	return rs.save(ctx, set)
}

// List returns the set's members in lexicographic order.
func (rs *ReferenceSet) List(ctx context.Context) ([]string, error) {
	set, err := rs.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Delete removes the entire reference set key.
func (rs *ReferenceSet) Delete(ctx context.Context) error {
	if err := rs.repo.backend.Delete(ctx, rs.key); err != nil {
		return domain.NewError(domain.KindIOError, "objectstore.ReferenceSet.Delete", err)
	}
	return nil
}
