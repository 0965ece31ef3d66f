// Package pluginsdk defines the shape an opsward extension must export.
// A plugin is a single Go source file, interpreted at load time, declaring
// a top-level variable
//
//	var Plugin = pluginsdk.Plugin{...}
//
// Anything else is rejected during validation, before Init ever runs.
package pluginsdk

import "context"

// Plugin is the record a plugin module exports.
type Plugin struct {
	// Name and Version are required, non-empty.
	Name        string
	Version     string
	Description string

	// Tools the plugin contributes to the assistant's catalog.
	Tools []Tool

	// Init is called once after validation, before any tool is exposed,
	// under the host's load deadline. Optional.
	Init func(ctx context.Context, host *Host) error

	// Destroy is called at unload, best-effort, under the same deadline.
	// Optional.
	Destroy func(ctx context.Context) error

	// Help entries shown by the chat help command. Optional.
	Help []HelpEntry
}

// ToolSpec describes a tool to the LLM tool-calling loop.
type ToolSpec struct {
	// Name is 3-50 characters, lowercase, starting with a letter,
	// letters/digits/underscore only.
	Name        string
	Description string
	// InputSchema is a JSON-Schema-shaped map describing the arguments.
	InputSchema map[string]any
}

// Tool pairs a spec with its handler.
type Tool struct {
	Spec    ToolSpec
	Execute func(ctx context.Context, args map[string]any) (string, error)
}

// HelpEntry is one line of chat help.
type HelpEntry struct {
	Command     string
	Description string
}

// DB is the database capability a plugin receives: every statement is
// checked against the plugin's table namespace before it reaches the
// driver.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (rowsAffected int64, err error)
	QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// Host carries the sandboxed capabilities handed to Init. The shared
// connection, its pragmas, and the database file path are not exposed.
type Host struct {
	DB DB
}
