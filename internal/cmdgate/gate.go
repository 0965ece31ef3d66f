// Package cmdgate validates and executes external programs against a static
// allowlist. Validation is pure and synchronous; spawning is the only side
// effect and always uses an argument vector, never a shell.
package cmdgate

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/opsward/opsward/internal/pathgate"
)

// Reason identifies which policy rule rejected a command.
type Reason string

const (
	ReasonNotAllowlisted  Reason = "not in allowlist"
	ReasonForbiddenChars  Reason = "forbidden characters"
	ReasonNoSubcommand    Reason = "requires a subcommand"
	ReasonBadSubcommand   Reason = "subcommand not allowed"
	ReasonDeniedFlag      Reason = "flag not allowed"
	ReasonPathDenied      Reason = "path argument denied"
)

// PolicyError is returned when a command fails validation. It is always a
// hard rejection, produced before any process is spawned.
type PolicyError struct {
	Program string
	Arg     string
	Reason  Reason
	Detail  string
}

func (e *PolicyError) Error() string {
	msg := fmt.Sprintf("command %q blocked: %s", e.Program, e.Reason)
	if e.Arg != "" {
		msg += fmt.Sprintf(" (argument %q)", e.Arg)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// forbiddenChars are shell metacharacters rejected in every argument token.
// Commands are spawned without a shell, so these have no legitimate use.
const forbiddenChars = ";&|`$\n"

// Gate validates commands against a Policy and executes the ones that pass.
type Gate struct {
	policy *Policy
	paths  *pathgate.Gate
	log    *zap.Logger
}

// New creates a Gate. paths may be nil when no program in the policy has
// FileArgs set; FileArgs programs are then rejected outright.
func New(policy *Policy, paths *pathgate.Gate, log *zap.Logger) *Gate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{policy: policy, paths: paths, log: log}
}

// Check validates a command invocation without executing it. A nil return
// means every policy rule passed. Each rule short-circuits on failure.
func (g *Gate) Check(program string, args []string) error {
	prog, ok := g.policy.Programs[program]
	if !ok {
		return &PolicyError{Program: program, Reason: ReasonNotAllowlisted}
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, forbiddenChars) {
			return &PolicyError{Program: program, Arg: arg, Reason: ReasonForbiddenChars}
		}
	}

	if len(prog.Subcommands) > 0 {
		if len(args) == 0 {
			return &PolicyError{Program: program, Reason: ReasonNoSubcommand}
		}
		if !contains(prog.Subcommands, args[0]) {
			return &PolicyError{Program: program, Arg: args[0], Reason: ReasonBadSubcommand}
		}
	}

	for _, denied := range prog.DeniedFlags {
		for _, arg := range args {
			// Both spellings: "--flag value" and "--flag=value".
			if arg == denied || strings.HasPrefix(arg, denied+"=") {
				return &PolicyError{Program: program, Arg: arg, Reason: ReasonDeniedFlag}
			}
		}
	}

	if prog.FileArgs {
		for _, arg := range args {
			if !looksLikePath(arg) {
				continue
			}
			if g.paths == nil {
				return &PolicyError{Program: program, Arg: arg, Reason: ReasonPathDenied, Detail: "no path policy configured"}
			}
			if _, err := g.paths.Check(arg); err != nil {
				return &PolicyError{Program: program, Arg: arg, Reason: ReasonPathDenied, Detail: err.Error()}
			}
		}
	}

	return nil
}

// looksLikePath reports whether an argument should be screened as a file
// path: not a flag, not purely numeric. Relative forms are screened too;
// the path gate requires absolute paths, so a traversal argument fails
// there rather than slipping past the screen.
func looksLikePath(arg string) bool {
	if arg == "" || strings.HasPrefix(arg, "-") {
		return false
	}
	if _, err := strconv.Atoi(arg); err == nil {
		return false
	}
	return true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
