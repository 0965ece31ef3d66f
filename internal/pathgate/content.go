package pathgate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// textExtensions is the closed set of extensions the read tool will open.
// Extensionless names (Makefile, Dockerfile, LICENSE) are allowed.
var textExtensions = map[string]bool{
	".txt":        true,
	".log":        true,
	".md":         true,
	".json":       true,
	".yaml":       true,
	".yml":        true,
	".toml":       true,
	".conf":       true,
	".cfg":        true,
	".ini":        true,
	".sh":         true,
	".service":    true,
	".socket":     true,
	".timer":      true,
	".properties": true,
	".xml":        true,
	".csv":        true,
	".go":         true,
	".py":         true,
	".js":         true,
	".sql":        true,
}

const sniffLen = 512

// CheckReadable applies the content rules: the extension must be on the
// text allowlist (or absent) and the first bytes must not contain NUL.
func (g *Gate) CheckReadable(realPath string) error {
	ext := strings.ToLower(filepath.Ext(realPath))
	if ext != "" && !textExtensions[ext] {
		return &DeniedError{Path: realPath, Reason: ReasonExtension, Match: ext}
	}

	f, err := os.Open(realPath)
	if err != nil {
		return fmt.Errorf("open %q: %w", realPath, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %q: %w", realPath, err)
	}
	if bytes.IndexByte(buf[:n], 0) >= 0 {
		return &DeniedError{Path: realPath, Reason: ReasonBinary}
	}
	return nil
}

// Limits caps how much of a file ReadFile returns.
type Limits struct {
	MaxBytes int64
	MaxLines int
}

const (
	DefaultMaxBytes = 64 << 10
	DefaultMaxLines = 400
)

// Content is a capped file read.
type Content struct {
	RealPath  string
	Text      string
	Truncated bool
}

// Redactor post-processes file content before it is returned to a caller.
type Redactor interface {
	Apply(text string) string
}

// ReadFile gates the path, applies the content rules, and returns at most
// Limits worth of text. When a redactor is set, secret-shaped substrings are
// replaced before the content leaves the gate.
func (g *Gate) ReadFile(path string, limits Limits, red Redactor) (*Content, error) {
	res, err := g.Check(path)
	if err != nil {
		return nil, err
	}
	if err := g.CheckReadable(res.RealPath); err != nil {
		return nil, err
	}

	maxBytes := limits.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	maxLines := limits.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	f, err := os.Open(res.RealPath)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", res.RealPath, err)
	}
	defer f.Close()

	var (
		b         strings.Builder
		lines     int
		truncated bool
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if lines >= maxLines || int64(b.Len()+len(line)+1) > maxBytes {
			truncated = true
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
		lines++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %q: %w", res.RealPath, err)
	}

	text := b.String()
	if red != nil {
		text = red.Apply(text)
	}
	return &Content{RealPath: res.RealPath, Text: text, Truncated: truncated}, nil
}
