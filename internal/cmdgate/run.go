package cmdgate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Options bounds a single execution.
type Options struct {
	// Timeout caps wall-clock runtime. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxOutput caps captured bytes per stream. Zero means DefaultMaxOutput.
	MaxOutput int64
}

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MiB per stream
)

// Result is the outcome of an executed command. A non-zero exit code is a
// normal result, not a gate failure; only policy violations are errors.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// Run validates the invocation and, if every rule passes, spawns the
// program's configured absolute path directly with the argument vector.
func (g *Gate) Run(ctx context.Context, program string, args []string, opts Options) (*Result, error) {
	if err := g.Check(program, args); err != nil {
		g.log.Warn("command blocked",
			zap.String("program", program),
			zap.Strings("args", args),
			zap.Error(err))
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOut := opts.MaxOutput
	if maxOut <= 0 {
		maxOut = DefaultMaxOutput
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prog := g.policy.Programs[program]
	cmd := exec.CommandContext(ctx, prog.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &cappedWriter{w: &stdout, limit: maxOut}
	cmd.Stderr = &cappedWriter{w: &stderr, limit: maxOut}

	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else if !res.TimedOut {
			return nil, err
		} else {
			res.ExitCode = -1
		}
	}

	g.log.Debug("command executed",
		zap.String("program", program),
		zap.Int("exit_code", res.ExitCode),
		zap.Bool("timed_out", res.TimedOut))
	return res, nil
}

// cappedWriter discards bytes past the limit so a chatty child cannot grow
// the buffer without bound.
type cappedWriter struct {
	w     io.Writer
	n     int64
	limit int64
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	if c.n >= c.limit {
		return len(p), nil
	}
	if c.n+int64(len(p)) > c.limit {
		keep := c.limit - c.n
		if _, err := c.w.Write(p[:keep]); err != nil {
			return 0, err
		}
		c.n = c.limit
		return len(p), nil
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
