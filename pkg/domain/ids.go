// Package domain defines the shared entity types, identifiers, and error
// taxonomy used across gradecore's Run Execution Engine: the Object
// Repository, File Store, Tester Registry, Sandbox Executor, Graders,
// Reporters, Run Engine, and Worker Pool all exchange these types without
// depending on one another's internal packages.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind namespaces a UUID and its backing records by entity type. UUIDs are
// globally unique across kinds; the kind prefix only labels the namespace a
// record lives in within the Object Repository's key space.
type Kind string

// Supported entity kinds. These are the namespace prefixes used for Object
// Repository keys ("{kind}:{uuid}") and reference-set keys
// ("{kind}:{uuid}:{field}").
const (
	KindUser       Kind = "user"
	KindFile       Kind = "file"
	KindReporter   Kind = "reporter"
	KindAssignment Kind = "assignment"
	KindTest       Kind = "test"
	KindSubmission Kind = "submission"
	KindRun        Kind = "run"
)

// NewID generates a fresh version-4 UUID string. No kind is encoded into
// the returned string (UUIDs from different kinds share
// one global value space, per the Object Repository's uniqueness invariant);
// callers namespace by kind when forming storage keys.
func NewID() string {
	return uuid.New().String()
}

// ValidUUID reports whether s parses as a well-formed UUID, the sanitation
// rule the Object Repository applies before storing any reference-set
// element or record identifier.
func ValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// RecordKey returns the Object Repository hash-record key for kind/id.
func RecordKey(kind Kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// ReferenceSetKey returns the Object Repository reference-set key for
// kind/id/field.
func ReferenceSetKey(kind Kind, id, field string) string {
	return fmt.Sprintf("%s:%s:%s", kind, id, field)
}
