// Package pathgate validates file paths before they are opened. A path is
// readable only if its symlink-resolved form sits under an allowed prefix,
// under no unsafe prefix, and contains no sensitive substring; the same
// screen is applied to the pre-resolution path so normalization tricks
// cannot slip a traversal through.
package pathgate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Reason identifies which rule denied a path.
type Reason string

const (
	ReasonNotAbsolute     Reason = "path must be absolute"
	ReasonSensitive       Reason = "sensitive pattern"
	ReasonUnsafePrefix    Reason = "unsafe directory"
	ReasonOutsideAllowed  Reason = "outside allowed directories"
	ReasonTraversal       Reason = "parent traversal not permitted"
	ReasonSystemDirectory Reason = "system directory"
	ReasonBinary          Reason = "binary content"
	ReasonExtension       Reason = "file type not allowed"
)

// DeniedError reports a path-policy rejection.
type DeniedError struct {
	Path   string
	Reason Reason
	Match  string
}

func (e *DeniedError) Error() string {
	if e.Match != "" {
		return fmt.Sprintf("access to %q denied: %s (%s)", e.Path, e.Reason, e.Match)
	}
	return fmt.Sprintf("access to %q denied: %s", e.Path, e.Reason)
}

// CheckResult carries the resolved path of an accepted check.
type CheckResult struct {
	// RealPath is the symlink-resolved absolute path, or the lexically
	// normalized path when the target does not exist yet.
	RealPath string
}

// Gate applies a Policy to candidate paths.
type Gate struct {
	policy *Policy
	log    *zap.Logger
}

func New(policy *Policy, log *zap.Logger) *Gate {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{policy: policy, log: log}
}

// Check validates a path against the policy. Both the logical (lexically
// normalized) and real (symlink-resolved) forms are screened for sensitive
// substrings; prefix rules apply to the real form.
func (g *Gate) Check(path string) (*CheckResult, error) {
	if !filepath.IsAbs(path) {
		return nil, &DeniedError{Path: path, Reason: ReasonNotAbsolute}
	}

	logical := filepath.Clean(path)

	real, err := filepath.EvalSymlinks(logical)
	if err != nil {
		// Target may not exist yet (existence probing); fall back to the
		// logical form so prefix screening still applies.
		if os.IsNotExist(err) {
			real = logical
		} else {
			return nil, fmt.Errorf("resolve %q: %w", logical, err)
		}
	}

	for _, form := range []string{logical, real} {
		if match := g.sensitiveMatch(form); match != "" {
			g.deny(path, ReasonSensitive, match)
			return nil, &DeniedError{Path: path, Reason: ReasonSensitive, Match: match}
		}
	}

	for _, unsafe := range g.policy.UnsafePrefixes {
		if underPrefix(real, unsafe) {
			g.deny(path, ReasonUnsafePrefix, unsafe)
			return nil, &DeniedError{Path: path, Reason: ReasonUnsafePrefix, Match: unsafe}
		}
	}

	for _, allowed := range g.policy.AllowedPrefixes {
		if underPrefix(real, allowed) {
			return &CheckResult{RealPath: real}, nil
		}
	}

	g.deny(path, ReasonOutsideAllowed, "")
	return nil, &DeniedError{Path: path, Reason: ReasonOutsideAllowed}
}

func (g *Gate) sensitiveMatch(path string) string {
	lower := strings.ToLower(path)
	for _, s := range g.policy.SensitiveSubstrings {
		if strings.Contains(lower, strings.ToLower(s)) {
			return s
		}
	}
	return ""
}

func (g *Gate) deny(path string, reason Reason, match string) {
	g.log.Warn("path denied",
		zap.String("path", path),
		zap.String("reason", string(reason)),
		zap.String("match", match))
}

// underPrefix reports whether path equals prefix or is nested under it.
// Pure string prefixing would let /optx match /opt.
func underPrefix(path, prefix string) bool {
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}
