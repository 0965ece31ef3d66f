package plugin

import (
	"fmt"
	"regexp"

	"github.com/opsward/opsward/sdk/pluginsdk"
)

// Tool names: 3-50 characters, lowercase, letter first, then
// letters/digits/underscore.
var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{2,49}$`)

// validate runs the static checks on a parsed record. No hook executes for
// a record that fails here.
func validate(p pluginsdk.Plugin) error {
	if p.Name == "" {
		return fmt.Errorf("plugin name must be non-empty")
	}
	if p.Version == "" {
		return fmt.Errorf("plugin %q: version must be non-empty", p.Name)
	}

	seen := make(map[string]bool)
	for _, tool := range p.Tools {
		name := tool.Spec.Name
		if !toolNameRe.MatchString(name) {
			return fmt.Errorf("plugin %q: tool name %q must be 3-50 lowercase characters starting with a letter", p.Name, name)
		}
		if seen[name] {
			return fmt.Errorf("plugin %q: duplicate tool name %q", p.Name, name)
		}
		seen[name] = true
		if tool.Execute == nil {
			return fmt.Errorf("plugin %q: tool %q has no execute handler", p.Name, name)
		}
	}

	return nil
}
