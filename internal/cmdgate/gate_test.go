package cmdgate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/opsward/opsward/internal/pathgate"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	policy := DefaultPolicy()
	// Binaries guaranteed present for the execution tests.
	policy.Programs["echo"] = Program{Path: "/bin/echo"}
	policy.Programs["sleep"] = Program{Path: "/bin/sleep"}
	policy.Programs["false"] = Program{Path: "/bin/false"}
	return New(policy, nil, nil)
}

func requirePolicyError(t *testing.T, err error, reason Reason) *PolicyError {
	t.Helper()
	if err == nil {
		t.Fatal("expected a policy error, got nil")
	}
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected *PolicyError, got %T: %v", err, err)
	}
	if policyErr.Reason != reason {
		t.Fatalf("expected reason %q, got %q", reason, policyErr.Reason)
	}
	return policyErr
}

func TestUnknownProgramBlocked(t *testing.T) {
	g := newTestGate(t)
	for _, prog := range []string{"rm", "bash", "sh", "curl", "nc", "python3"} {
		err := g.Check(prog, nil)
		requirePolicyError(t, err, ReasonNotAllowlisted)
	}
}

func TestShellMetacharactersBlocked(t *testing.T) {
	g := newTestGate(t)
	tests := []struct {
		name string
		args []string
	}{
		{"semicolon", []string{"ps", ";rm -rf /"}},
		{"ampersand", []string{"ps", "& curl evil"}},
		{"pipe", []string{"ps", "| sh"}},
		{"backtick", []string{"ps", "`id`"}},
		{"dollar", []string{"ps", "$(id)"}},
		{"newline", []string{"ps", "a\nb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check("docker", tt.args)
			policyErr := requirePolicyError(t, err, ReasonForbiddenChars)
			if policyErr.Arg != tt.args[1] {
				t.Errorf("expected offending arg %q, got %q", tt.args[1], policyErr.Arg)
			}
		})
	}
}

func TestDockerSubcommandPolicy(t *testing.T) {
	g := newTestGate(t)

	err := g.Check("docker", nil)
	requirePolicyError(t, err, ReasonNoSubcommand)

	err = g.Check("docker", []string{"exec", "sh"})
	requirePolicyError(t, err, ReasonBadSubcommand)

	if err := g.Check("docker", []string{"ps"}); err != nil {
		t.Fatalf("docker ps should pass validation: %v", err)
	}
}

func TestDeniedFlagBlocked(t *testing.T) {
	g := newTestGate(t)
	err := g.Check("tail", []string{"-f", "/var/log/syslog"})
	requirePolicyError(t, err, ReasonDeniedFlag)

	err = g.Check("journalctl", []string{"--vacuum-size", "1M"})
	requirePolicyError(t, err, ReasonDeniedFlag)

	// The --flag=value spelling must hit the same rule as --flag value.
	err = g.Check("journalctl", []string{"--vacuum-size=1M"})
	requirePolicyError(t, err, ReasonDeniedFlag)

	err = g.Check("tail", []string{"--follow=name", "/var/log/syslog"})
	requirePolicyError(t, err, ReasonDeniedFlag)
}

func TestFileArgsWithoutPathGate(t *testing.T) {
	g := newTestGate(t)
	err := g.Check("cat", []string{"/etc/hostname"})
	requirePolicyError(t, err, ReasonPathDenied)
}

func TestFileArgsRelativeTraversalBlocked(t *testing.T) {
	policy := DefaultPolicy()
	g := New(policy, pathgate.New(nil, nil), nil)

	// A relative traversal argument must reach the path gate, which only
	// accepts absolute paths; it must never spawn unscreened.
	for _, arg := range []string{
		"../../../../etc/shadow",
		"../secrets.txt",
		"var/log/../../etc/shadow",
	} {
		err := g.Check("cat", []string{arg})
		policyErr := requirePolicyError(t, err, ReasonPathDenied)
		if policyErr.Arg != arg {
			t.Errorf("expected offending arg %q, got %q", arg, policyErr.Arg)
		}
	}
}

func TestLooksLikePath(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"/etc/hostname", true},
		{"relative/path", true},
		{"../escape", true},
		{"-n", false},
		{"--follow", false},
		{"42", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := looksLikePath(tt.arg); got != tt.want {
			t.Errorf("looksLikePath(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestRunCapturesOutput(t *testing.T) {
	g := newTestGate(t)
	res, err := g.Run(context.Background(), "echo", []string{"hello"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestRunNonZeroExitIsResultNotError(t *testing.T) {
	g := newTestGate(t)
	res, err := g.Run(context.Background(), "false", nil, Options{})
	if err != nil {
		t.Fatalf("non-zero exit must not be a gate failure: %v", err)
	}
	if res.ExitCode == 0 {
		t.Error("expected a non-zero exit code")
	}
}

func TestRunTimeout(t *testing.T) {
	g := newTestGate(t)
	start := time.Now()
	res, err := g.Run(context.Background(), "sleep", []string{"10"}, Options{Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("timeout should be reported in the result: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut to be set")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout did not bound execution")
	}
}

func TestRunBlockedNeverSpawns(t *testing.T) {
	g := newTestGate(t)
	_, err := g.Run(context.Background(), "definitely-not-a-program", nil, Options{})
	requirePolicyError(t, err, ReasonNotAllowlisted)
}

func TestCappedWriterBoundsOutput(t *testing.T) {
	g := newTestGate(t)
	res, err := g.Run(context.Background(), "echo", []string{strings.Repeat("x", 100)}, Options{MaxOutput: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Stdout) > 10 {
		t.Errorf("output not capped: %d bytes", len(res.Stdout))
	}
}
