package pathgate

import (
	"path/filepath"
	"strings"
)

// systemRoots are never served as context directories, independent of the
// configured policy.
var systemRoots = []string{"/proc", "/sys", "/dev", "/boot", "/root", "/run"}

// CheckContextDir validates a directory from which conversation context is
// loaded. Stricter than Check: any ".." segment is rejected outright (even
// ones that would normalize away) and OS system roots are blocked.
func (g *Gate) CheckContextDir(dir string) (*CheckResult, error) {
	for _, seg := range strings.Split(dir, string(filepath.Separator)) {
		if seg == ".." {
			return nil, &DeniedError{Path: dir, Reason: ReasonTraversal}
		}
	}

	res, err := g.Check(dir)
	if err != nil {
		return nil, err
	}

	for _, root := range systemRoots {
		if underPrefix(res.RealPath, root) {
			return nil, &DeniedError{Path: dir, Reason: ReasonSystemDirectory, Match: root}
		}
	}
	return res, nil
}
