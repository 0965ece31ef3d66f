package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsward/opsward/internal/cmdgate"
	"github.com/opsward/opsward/internal/pathgate"
	"github.com/opsward/opsward/internal/redact"
)

// ExecInput defines parameters for the opsward_exec tool.
type ExecInput struct {
	Program string   `json:"program" jsonschema:"program name from the command allowlist"`
	Args    []string `json:"args,omitempty" jsonschema:"command arguments"`
}

// ExecOutput contains the execution result or block details.
type ExecOutput struct {
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
	Blocked  bool   `json:"blocked,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ReadInput defines parameters for the opsward_read tool.
type ReadInput struct {
	Path     string `json:"path" jsonschema:"absolute file path"`
	MaxLines int    `json:"max_lines,omitempty" jsonschema:"maximum lines to return"`
}

// ReadOutput contains the (redacted) file content or block details.
type ReadOutput struct {
	Content   string `json:"content,omitempty"`
	RealPath  string `json:"real_path,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Blocked   bool   `json:"blocked,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// CheckPathInput defines parameters for the opsward_check_path tool.
type CheckPathInput struct {
	Path string `json:"path" jsonschema:"absolute path to check"`
}

// CheckPathOutput contains the dry-run decision.
type CheckPathOutput struct {
	Valid    bool   `json:"valid"`
	RealPath string `json:"real_path,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ToolsInput is empty.
type ToolsInput struct{}

// ToolsOutput lists the catalog.
type ToolsOutput struct {
	Tools []ToolItem `json:"tools"`
}

// ToolItem describes one catalog entry.
type ToolItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Plugin      string `json:"plugin,omitempty"`
}

func (s *Server) handleExec(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecInput) (*mcpsdk.CallToolResult, ExecOutput, error) {
	res, err := s.commands.Run(ctx, input.Program, input.Args, cmdgate.Options{})
	if err != nil {
		var policyErr *cmdgate.PolicyError
		if errors.As(err, &policyErr) {
			out := ExecOutput{Blocked: true, Reason: policyErr.Error()}
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		return nil, ExecOutput{}, err
	}
	return nil, ExecOutput{
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
	}, nil
}

func (s *Server) handleRead(ctx context.Context, req *mcpsdk.CallToolRequest, input ReadInput) (*mcpsdk.CallToolResult, ReadOutput, error) {
	content, err := s.paths.ReadFile(input.Path, pathgate.Limits{MaxLines: input.MaxLines}, redact.Redactor{})
	if err != nil {
		var denied *pathgate.DeniedError
		if errors.As(err, &denied) {
			out := ReadOutput{Blocked: true, Reason: denied.Error()}
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		return nil, ReadOutput{}, err
	}
	return nil, ReadOutput{
		Content:   content.Text,
		RealPath:  content.RealPath,
		Truncated: content.Truncated,
	}, nil
}

func (s *Server) handleCheckPath(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckPathInput) (*mcpsdk.CallToolResult, CheckPathOutput, error) {
	res, err := s.paths.Check(input.Path)
	if err != nil {
		var denied *pathgate.DeniedError
		if errors.As(err, &denied) {
			return nil, CheckPathOutput{Valid: false, Reason: denied.Error()}, nil
		}
		return nil, CheckPathOutput{}, err
	}
	return nil, CheckPathOutput{Valid: true, RealPath: res.RealPath}, nil
}

func (s *Server) handleTools(ctx context.Context, req *mcpsdk.CallToolRequest, input ToolsInput) (*mcpsdk.CallToolResult, ToolsOutput, error) {
	var out ToolsOutput
	for _, t := range s.catalog.List() {
		out.Tools = append(out.Tools, ToolItem{
			Name:        t.Spec.Name,
			Description: t.Spec.Description,
			Plugin:      t.Owner,
		})
	}
	return nil, out, nil
}
