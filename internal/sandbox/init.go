package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// initArg is the magic first argument that tells the gradecore binary it
// is running as a sandbox child rather than as the server: re-exec with a
// recognizable argv[0]/argv[1] mirrors the container-shim pattern of
// launching the same binary in a restricted child role instead of a
// second real executable.
const initArg = "__gradecore_sandbox_init__"

const (
	envLimitCPU   = "GRADECORE_SANDBOX_LIMIT_CPU_SECONDS"
	envLimitMem   = "GRADECORE_SANDBOX_LIMIT_MEM_BYTES"
	envLimitProcs = "GRADECORE_SANDBOX_LIMIT_MAX_PROCS"
	envLimitFDs   = "GRADECORE_SANDBOX_LIMIT_MAX_FDS"
)

// MaybeRunInit checks whether the current process was launched as a
// sandbox child (os.Args[1] == initArg) and, if so, applies the resource
// limits carried in its environment via Setrlimit and then exec's the
// real target command, replacing the current process image so the target
// runs as the leader of its own process group with no surviving Go runtime.
// It never returns when it was launched as a sandbox child: success exits
// the process by replacing its image, failure calls os.Exit(127). Callers
// (cmd/gradecore-worker's main) invoke this before anything else runs.
func MaybeRunInit() {
	if len(os.Args) < 2 || os.Args[1] != initArg {
		return
	}
	if err := runInit(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "sandbox init:", err)
		os.Exit(127)
	}
}

func runInit(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no target command")
	}
	if err := applyRlimits(); err != nil {
		return err
	}
	target, err := exec.LookPath(argv[0])
	if err != nil {
		return err
	}
	return unix.Exec(target, argv, buildRealEnv())
}

// applyRlimits reads the limit env vars set by childEnv and applies each
// present one via Setrlimit, setting both soft and hard limits so the
// sandboxed program cannot raise its own ceiling.
func applyRlimits() error {
	if v, ok := lookupUint(envLimitCPU); ok {
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("setrlimit CPU: %w", err)
		}
	}
	if v, ok := lookupUint(envLimitMem); ok {
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("setrlimit AS: %w", err)
		}
	}
	if v, ok := lookupUint(envLimitProcs); ok {
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("setrlimit NPROC: %w", err)
		}
	}
	if v, ok := lookupUint(envLimitFDs); ok {
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			return fmt.Errorf("setrlimit NOFILE: %w", err)
		}
	}
	return nil
}

func lookupUint(key string) (uint64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// buildRealEnv strips the sandbox-init-only limit variables back out so
// the graded program's own environment matches the allow-list the
// executor promises (PATH, HOME, LANG), not gradecore's internal
// bookkeeping.
func buildRealEnv() []string {
	out := make([]string, 0, len(os.Environ()))
	for _, kv := range os.Environ() {
		if isLimitVar(kv) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func isLimitVar(kv string) bool {
	for _, prefix := range []string{envLimitCPU, envLimitMem, envLimitProcs, envLimitFDs} {
		if len(kv) > len(prefix) && kv[:len(prefix)+1] == prefix+"=" {
			return true
		}
	}
	return false
}
