package common

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FixEntry records one applied auto-fix as a full before/after snapshot of the
// message text. Whole-text snapshots keep replay and undo trivial; message
// texts are small enough that log size is not a concern.
type FixEntry struct {
	Id     string    `json:"id"`
	Ts     time.Time `json:"ts"`
	File   string    `json:"file,omitempty"`
	Code   string    `json:"code"`
	Field  string    `json:"field,omitempty"`
	Line   int       `json:"line,omitempty"`
	Before string    `json:"before"`
	After  string    `json:"after"`
}

// FixLog provides append-only access to a JSONL audit log.
type FixLog struct {
	path string
	mu   sync.Mutex
}

// NewFixLog returns a FixLog that writes to the provided path.
func NewFixLog(path string) *FixLog {
	return &FixLog{path: path}
}

// Path returns the backing file path for the log.
func (l *FixLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a new entry to the audit log, one JSON object per line.
// A missing id or timestamp is filled in before writing.
func (l *FixLog) Append(entry FixEntry) error {
	if l == nil {
		return errors.New("nil fix log")
	}
	if entry.Code == "" {
		return errors.New("fix entry missing code")
	}
	if entry.Id == "" {
		entry.Id = uuid.NewString()
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(l.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// ReadFixLog loads every entry from the supplied JSONL file in append order.
func ReadFixLog(path string) ([]FixEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	// Entries embed whole message texts, which can exceed the default token
	// size once JSON-escaped.
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	var entries []FixEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry FixEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode fix entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
