// Package plugin loads, validates, and tears down extension modules. Each
// candidate is parsed into a typed record and exhaustively validated before
// any lifecycle hook executes; a plugin is registered as a whole or not at
// all.
package plugin

import (
	"fmt"

	"github.com/opsward/opsward/sdk/pluginsdk"
)

// State tracks a candidate through the load pipeline.
type State string

const (
	StateDiscovered   State = "discovered"
	StateValidated    State = "validated"
	StateInitializing State = "initializing"
	StateLoaded       State = "loaded"
	StateDestroyed    State = "destroyed"
	StateRejected     State = "rejected"
)

// LoadError reports why a single plugin did not load. It is caught
// per-plugin and never aborts the host: one bad extension must not block
// the others.
type LoadError struct {
	Path  string
	State State
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %s rejected at %s: %v", e.Path, e.State, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Record is a validated plugin plus its load-time metadata.
type Record struct {
	Plugin pluginsdk.Plugin
	Path   string
	State  State
}
