package cmdgate

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Program describes one allowlisted external program and its refinement rules.
type Program struct {
	// Path is the absolute executable path spawned for this program.
	Path string `yaml:"path"`
	// Subcommands, when non-empty, requires args[0] to be one of these.
	Subcommands []string `yaml:"subcommands,omitempty"`
	// DeniedFlags rejects any argument exactly matching one of these tokens.
	DeniedFlags []string `yaml:"denied_flags,omitempty"`
	// FileArgs marks programs whose arguments may be file paths; those
	// arguments are screened by the path gate before execution.
	FileArgs bool `yaml:"file_args,omitempty"`
}

// Policy is the static command allowlist. A program absent from the table is
// never executable.
type Policy struct {
	Programs map[string]Program `yaml:"programs"`
}

// DefaultPolicy returns the built-in read-only inspection allowlist.
func DefaultPolicy() *Policy {
	return &Policy{Programs: map[string]Program{
		"docker": {
			Path:        "/usr/bin/docker",
			Subcommands: []string{"ps", "inspect", "logs", "network", "images", "version", "info"},
		},
		"systemctl": {
			Path:        "/usr/bin/systemctl",
			Subcommands: []string{"status", "list-units", "list-timers", "is-active"},
		},
		"journalctl": {
			Path:        "/usr/bin/journalctl",
			DeniedFlags: []string{"--vacuum-size", "--vacuum-time", "--vacuum-files", "--rotate", "--flush"},
		},
		"ps":     {Path: "/usr/bin/ps"},
		"df":     {Path: "/usr/bin/df"},
		"free":   {Path: "/usr/bin/free"},
		"uptime": {Path: "/usr/bin/uptime"},
		"uname":  {Path: "/usr/bin/uname"},
		"cat":    {Path: "/usr/bin/cat", FileArgs: true},
		"head":   {Path: "/usr/bin/head", FileArgs: true},
		"tail":   {Path: "/usr/bin/tail", FileArgs: true, DeniedFlags: []string{"-f", "--follow"}},
		"ls":     {Path: "/usr/bin/ls", FileArgs: true},
	}}
}

// LoadPolicy reads a command policy from a YAML file. Falls back to the
// built-in defaults if the path is empty or the file does not exist.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultPolicy(), nil
		}
		path = filepath.Join(home, ".opsward", "commands.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPolicy(), nil
		}
		return nil, err
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.Programs == nil {
		p.Programs = map[string]Program{}
	}
	return &p, nil
}
