package sandbox

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

// TestMain lets this test binary also act as its own sandbox-init child:
// Executor.Run re-execs os.Executable(), which under `go test` is this
// compiled test binary, so it must understand initArg the same way the
// real gradecore binary does via sandbox.MaybeRunInit.
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == initArg {
		if err := runInit(os.Args[2:]); err != nil {
			os.Exit(127)
		}
		return
	}
	os.Exit(m.Run())
}

func TestRunCapturesStdout(t *testing.T) {
	ctx := context.Background()
	ex := New()
	res, err := ex.Run(ctx, []string{"/bin/echo", "hello"}, t.TempDir(), nil, Limits{Wall: 5 * time.Second})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RetCode != 0 {
		t.Fatalf("expected retcode 0, got %d", res.RetCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Fatalf("unexpected stdout: %q", res.Stdout)
	}
}

func TestRunWallClockTimeout(t *testing.T) {
	ctx := context.Background()
	ex := New()
	res, err := ex.Run(ctx, []string{"/bin/sleep", "5"}, t.TempDir(), nil, Limits{Wall: 200 * time.Millisecond})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Fatalf("expected TimedOut")
	}
	if res.RetCode != wallTimeoutRetCode {
		t.Fatalf("expected retcode %d, got %d", wallTimeoutRetCode, res.RetCode)
	}
	if res.KilledByLimit != LimitWall {
		t.Fatalf("expected LimitWall, got %v", res.KilledByLimit)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	ctx := context.Background()
	ex := New()
	res, err := ex.Run(ctx, []string{"/bin/sh", "-c", "exit 7"}, t.TempDir(), nil, Limits{Wall: 5 * time.Second})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RetCode != 7 {
		t.Fatalf("expected retcode 7, got %d", res.RetCode)
	}
}

func TestOutputCapTruncates(t *testing.T) {
	ctx := context.Background()
	ex := New()
	res, err := ex.Run(ctx, []string{"/bin/sh", "-c", "printf 'abcdefghij'"}, t.TempDir(), nil, Limits{Wall: 5 * time.Second, OutputCap: 4})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.StdoutTruncated {
		t.Fatalf("expected stdout truncation flag")
	}
	if len(res.Stdout) != 4 {
		t.Fatalf("expected 4 captured bytes, got %d", len(res.Stdout))
	}
}

func TestUnresolvableTargetExitsNonZero(t *testing.T) {
	ctx := context.Background()
	ex := New()
	res, err := ex.Run(ctx, []string{"/no/such/binary"}, t.TempDir(), nil, Limits{Wall: 5 * time.Second})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RetCode == 0 {
		t.Fatalf("expected a non-zero retcode for an unresolvable target")
	}
}
