// Package audit records every gate decision in an append-only JSONL log
// with SHA-256 hash chaining, so policy blocks can be reviewed after the
// fact and tampering is evident.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// genesisHash is the prev_hash of the first entry in a new log.
const genesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one gate decision.
type Entry struct {
	Timestamp string `json:"ts"`
	ID        string `json:"id"`
	Gate      string `json:"gate"`    // command | path | db | plugin
	Subject   string `json:"subject"` // program+args, path, table, plugin name
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	PrevHash  string `json:"prev_hash"`
}

// Log appends entries to a JSONL file; safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
}

// Open opens or creates the log, recovering the chain tail from an
// existing file.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := genesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var last []byte
		for scanner.Scan() {
			last = append(last[:0], scanner.Bytes()...)
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scan existing log: %w", err)
		}
		if len(last) > 0 {
			prevHash = hashLine(last)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	return &Log{file: file, prevHash: prevHash}, nil
}

// Record appends one decision.
func (l *Log) Record(gate, subject, decision, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ID:        uuid.NewString(),
		Gate:      gate,
		Subject:   subject,
		Decision:  decision,
		Reason:    reason,
		PrevHash:  l.prevHash,
	}
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	l.prevHash = hashLine(line)
	return nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Verify replays a log file and checks the hash chain. Returns the number
// of valid entries.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	prev := genesisHash
	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return count, fmt.Errorf("audit: entry %d malformed: %w", count+1, err)
		}
		if e.PrevHash != prev {
			return count, fmt.Errorf("audit: chain broken at entry %d", count+1)
		}
		prev = hashLine(line)
		count++
	}
	return count, scanner.Err()
}

func hashLine(line []byte) string {
	sum := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(sum[:])
}
