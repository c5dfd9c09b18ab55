package domain

// TesterKind identifies a registered grading strategy (Tester Registry, C3).
type TesterKind string

const (
	TesterScript TesterKind = "script"
	TesterIO     TesterKind = "io"
	TesterNull   TesterKind = "null"
)

// ReporterMod identifies a registered reporter backend (C6).
type ReporterMod string

const (
	ReporterNull   ReporterMod = "null"
	ReporterMoodle ReporterMod = "moodle"
)

// RunStatus is a Run's position in its one-way state machine.
type RunStatus string

const (
	RunQueued                RunStatus = "queued"
	RunRunning               RunStatus = "running"
	RunComplete              RunStatus = "complete"
	RunCompleteError         RunStatus = "complete-error"
	RunCompleteExceptionRun  RunStatus = "complete-exception-run"
	RunCompleteExceptionEval RunStatus = "complete-exception-eval"
)

// IsTerminal reports whether status is any complete-* state.
func (s RunStatus) IsTerminal() bool {
	return len(s) >= len("complete") && s[:len("complete")] == "complete"
}

// Base carries the identity and bookkeeping fields every Object Repository
// hash record declares: a UUID, an owner, and Unix-seconds,
// string-encoded creation/modification timestamps.
type Base struct {
	UUID         string `json:"uuid"`
	Owner        string `json:"owner"`
	CreatedTime  string `json:"created_time"`
	ModifiedTime string `json:"modified_time"`
}

// User is an opaque identity handed in by the external auth module. The
// core reads it but never creates or mutates it.
type User struct {
	UUID     string `json:"uuid"`
	AuthMod  string `json:"authmod"`
	MoodleID string `json:"moodle_id,omitempty"`
}

// File describes an uploaded blob's metadata; Path addresses the blob in
// the File Store (C2).
type File struct {
	Base
	Key  string `json:"key"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileSchema is File's declared field set for Object Repository creation,
// excluding the Base timestamp fields the repository stamps automatically.
var FileSchema = []string{"key", "name", "path", "owner"}

// Reporter configures one grade-reporting backend. Mod-specific keys are
// carried in Extra and read by the reporter registered for Mod; the
// reporter registry does not validate them.
type Reporter struct {
	Base
	Mod   ReporterMod       `json:"mod"`
	Times int               `json:"times"`
	Extra map[string]string `json:"extra,omitempty"`
}

// ReporterSchema is Reporter's declared field set.
var ReporterSchema = []string{"mod", "owner", "times", "extra"}

// Moodle-specific Reporter.Extra keys.
const (
	MoodleAsnID          = "moodle_asn_id"
	MoodleRespectDueDate = "moodle_respect_duedate"
	MoodleOnlyHigher     = "moodle_only_higher"
	MoodlePrereqID       = "moodle_prereq_id"
	MoodlePrereqMin      = "moodle_prereq_min"
)

// Assignment is a coursework container owning Tests and Submissions.
type Assignment struct {
	Base
	Name string `json:"name"`
}

// AssignmentSchema is Assignment's declared field set.
var AssignmentSchema = []string{"name", "owner"}

// Test binds a tester kind, a max score, optional grader script path, and
// two reference sets: Files (available in the sandbox) and Reporters
// (notified on completion).
type Test struct {
	Base
	Name        string     `json:"name"`
	Tester      TesterKind `json:"tester"`
	MaxScore    float64    `json:"maxscore"`
	PathScript  string     `json:"path_script"`
	Assignment  string     `json:"assignment"`
}

// TestSchema is Test's declared field set.
var TestSchema = []string{"name", "tester", "maxscore", "path_script", "owner", "assignment"}

// Submission is a student's upload for an Assignment, referencing uploaded
// Files by UUID in its Files reference set.
type Submission struct {
	Base
	Assignment string `json:"assignment"`
}

// SubmissionSchema is Submission's declared field set.
var SubmissionSchema = []string{"owner", "assignment"}

// Run is one execution of one Test against one Submission.
type Run struct {
	Base
	Test       string    `json:"test"`
	Submission string    `json:"submission"`
	Status     RunStatus `json:"status"`
	RetCode    int       `json:"retcode"`
	Score      float64   `json:"score"`
	Output     string    `json:"output"`
	Attempt    int       `json:"attempt"`
}

// RunSchema is Run's declared field set.
var RunSchema = []string{"test", "submission", "status", "retcode", "score", "output", "owner", "attempt"}

// Reference-set field names used against Test and Submission records.
const (
	RefFiles     = "files"
	RefReporters = "reporters"
)

// File.Key conventions recognized by the graders.
const (
	FileKeyScript     = "script"
	FileKeySolution   = "solution"
	FileKeySubmission = "submission"
	FileKeyInput      = "input"
	FileKeyArgs       = "args"
	FileKeyStdin      = "stdin"
)
