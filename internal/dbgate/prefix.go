package dbgate

import (
	"fmt"
	"regexp"
	"strings"
)

// Prefix is a validated plugin table-namespace prefix. Only NewPrefix can
// construct one, so holding a Prefix is proof the name passed validation.
type Prefix struct {
	value string
}

var pluginNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NewPrefix derives the table prefix for a plugin: plugin_<name>_.
func NewPrefix(pluginName string) (Prefix, error) {
	if !pluginNameRe.MatchString(pluginName) {
		return Prefix{}, fmt.Errorf("invalid plugin name %q for table prefix", pluginName)
	}
	return Prefix{value: "plugin_" + pluginName + "_"}, nil
}

func (p Prefix) String() string { return p.value }

// Owns reports whether a table identifier is inside this prefix's namespace.
func (p Prefix) Owns(table string) bool {
	return strings.HasPrefix(strings.ToLower(table), p.value)
}

// pluginOwner extracts the owning plugin name from a plugin_<name>_* table
// identifier, or "" if the table is not plugin-namespaced. The name is cut
// at the first underscore, so for underscore-bearing plugin names this is
// only the first segment; Handle.ownerOf consults the loaded-plugin set
// for the exact name when one is available.
func pluginOwner(table string) string {
	lower := strings.ToLower(table)
	rest, ok := strings.CutPrefix(lower, "plugin_")
	if !ok {
		return ""
	}
	name, _, ok := strings.Cut(rest, "_")
	if !ok {
		return ""
	}
	return name
}
