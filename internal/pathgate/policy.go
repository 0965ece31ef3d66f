package pathgate

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Policy is the static file-access policy.
type Policy struct {
	// AllowedPrefixes are directories under which reads are permitted.
	AllowedPrefixes []string `yaml:"allowed_prefixes"`
	// UnsafePrefixes are always denied, even when nested under an allowed
	// prefix.
	UnsafePrefixes []string `yaml:"unsafe_prefixes"`
	// SensitiveSubstrings deny a path regardless of location,
	// case-insensitively.
	SensitiveSubstrings []string `yaml:"sensitive_substrings"`
}

// DefaultPolicy covers the host inspection surface: service trees and logs,
// with credential material screened out.
func DefaultPolicy() *Policy {
	return &Policy{
		AllowedPrefixes: []string{"/opt", "/var/log", "/etc", "/tmp", "/srv"},
		UnsafePrefixes: []string{
			"/etc/shadow",
			"/etc/gshadow",
			"/etc/sudoers",
			"/etc/sudoers.d",
			"/etc/ssl/private",
			"/var/log/private",
		},
		SensitiveSubstrings: []string{
			"id_rsa",
			"id_ed25519",
			"id_ecdsa",
			".ssh",
			".pem",
			".key",
			".p12",
			".pfx",
			".htpasswd",
			".netrc",
			".env",
			".npmrc",
			".aws/credentials",
			".kube/config",
			"credentials",
			"secret",
			"shadow",
			"token",
		},
	}
}

// LoadPolicy reads a path policy from a YAML file, defaulting when the path
// is empty or the file does not exist.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultPolicy(), nil
		}
		path = filepath.Join(home, ".opsward", "paths.yaml")
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
	return &p, nil
}
