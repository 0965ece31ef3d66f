// Package tools assembles the assistant's tool catalog: the builtin gated
// operations plus every tool contributed by loaded plugins, with global
// name de-duplication, per-category rate limiting, and audit of each
// dispatch. The LLM tool-calling loop and the MCP server both consume this
// catalog; neither reaches a gate except through it.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/opsward/opsward/internal/audit"
	"github.com/opsward/opsward/internal/cmdgate"
	"github.com/opsward/opsward/internal/pathgate"
	"github.com/opsward/opsward/internal/plugin"
	"github.com/opsward/opsward/internal/ratelimit"
	"github.com/opsward/opsward/internal/redact"
	"github.com/opsward/opsward/sdk/pluginsdk"
)

// Tool is one dispatchable catalog entry. Owner is "" for builtins.
type Tool struct {
	Owner    string
	Spec     pluginsdk.ToolSpec
	Category string
	Execute  func(ctx context.Context, args map[string]any) (string, error)
}

// Catalog routes tool calls to gates and plugins.
type Catalog struct {
	commands *cmdgate.Gate
	paths    *pathgate.Gate
	limiter  *ratelimit.Limiter
	auditLog *audit.Log
	log      *zap.Logger
	tools    map[string]Tool
}

// New builds a catalog with the builtin tools registered.
func New(commands *cmdgate.Gate, paths *pathgate.Gate, limiter *ratelimit.Limiter, auditLog *audit.Log, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Catalog{
		commands: commands,
		paths:    paths,
		limiter:  limiter,
		auditLog: auditLog,
		log:      log.Named("tools"),
		tools:    make(map[string]Tool),
	}
	c.registerBuiltins()
	return c
}

// AddPluginTools registers the loaded plugins' tools. A name already taken
// (builtin or plugin) is an error; the registry enforces cross-plugin
// uniqueness, this double-checks against builtins.
func (c *Catalog) AddPluginTools(mgr *plugin.Manager) error {
	for _, owned := range mgr.Tools() {
		name := owned.Tool.Spec.Name
		if existing, taken := c.tools[name]; taken {
			return fmt.Errorf("tool %q from plugin %q collides with %s",
				name, owned.Owner, describeOwner(existing.Owner))
		}
		c.tools[name] = Tool{
			Owner:    owned.Owner,
			Spec:     owned.Tool.Spec,
			Category: "plugin",
			Execute:  owned.Tool.Execute,
		}
	}
	return nil
}

func describeOwner(owner string) string {
	if owner == "" {
		return "a builtin tool"
	}
	return fmt.Sprintf("plugin %q", owner)
}

// List returns the catalog sorted by name.
func (c *Catalog) List() []Tool {
	out := make([]Tool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spec.Name < out[j].Spec.Name })
	return out
}

// Dispatch runs a named tool. Rate limiting is applied per category before
// the tool executes; every call is audited.
func (c *Catalog) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := c.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}

	if c.limiter != nil {
		if allowed, _ := c.limiter.Allow(tool.Category); !allowed {
			c.record("tool", name, "deny", "rate limit exceeded")
			return "", fmt.Errorf("tool %q: rate limit exceeded for %s operations", name, tool.Category)
		}
	}

	out, err := tool.Execute(ctx, args)
	if err != nil {
		c.record("tool", name, "error", err.Error())
		return "", err
	}
	c.record("tool", name, "allow", "")
	return out, nil
}

func (c *Catalog) record(gate, subject, decision, reason string) {
	if c.auditLog == nil {
		return
	}
	if err := c.auditLog.Record(gate, subject, decision, reason); err != nil {
		c.log.Warn("audit write failed", zap.Error(err))
	}
}

func (c *Catalog) registerBuiltins() {
	c.tools["run_command"] = Tool{
		Category: "command",
		Spec: pluginsdk.ToolSpec{
			Name:        "run_command",
			Description: "Run an allowlisted inspection command on the host. Programs, subcommands, and flags outside the allowlist are rejected.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"program": map[string]any{"type": "string", "description": "program name, e.g. docker"},
					"args":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []any{"program"},
			},
		},
		Execute: c.execRunCommand,
	}

	c.tools["read_file"] = Tool{
		Category: "file",
		Spec: pluginsdk.ToolSpec{
			Name:        "read_file",
			Description: "Read a text file from an allowed directory. Output is size-capped and secret-shaped content is redacted.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":      map[string]any{"type": "string", "description": "absolute file path"},
					"max_lines": map[string]any{"type": "integer"},
				},
				"required": []any{"path"},
			},
		},
		Execute: c.execReadFile,
	}
}

func (c *Catalog) execRunCommand(ctx context.Context, args map[string]any) (string, error) {
	program, _ := args["program"].(string)
	if program == "" {
		return "", fmt.Errorf("run_command: program is required")
	}
	cmdArgs := stringSlice(args["args"])

	res, err := c.commands.Run(ctx, program, cmdArgs, cmdgate.Options{})
	if err != nil {
		c.record("command", program+" "+strings.Join(cmdArgs, " "), "deny", err.Error())
		return "", err
	}
	c.record("command", program+" "+strings.Join(cmdArgs, " "), "allow", "")

	out, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *Catalog) execReadFile(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		return "", fmt.Errorf("read_file: path is required")
	}
	limits := pathgate.Limits{}
	if n, ok := args["max_lines"].(float64); ok {
		limits.MaxLines = int(n)
	}

	content, err := c.paths.ReadFile(path, limits, redact.Redactor{})
	if err != nil {
		c.record("path", path, "deny", err.Error())
		return "", err
	}
	c.record("path", path, "allow", "")

	text := content.Text
	if content.Truncated {
		text += "\n[truncated]"
	}
	return text, nil
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
