package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileLog persists probe entries as a JSON array, keeping only the newest max entries.
type FileLog struct {
	path string
	max  int
	mu   sync.Mutex
}

// NewFileLog returns a log stored at path. maxEntries <= 0 means unbounded.
func NewFileLog(path string, maxEntries int) *FileLog {
	return &FileLog{path: path, max: maxEntries}
}

// Path returns the backing file.
func (l *FileLog) Path() string { return l.path }

// Append adds e, dropping the oldest entries beyond the cap, and rewrites the file.
func (l *FileLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking new entries.
		entries = nil
	}
	entries = append(entries, e)
	if l.max > 0 && len(entries) > l.max {
		entries = entries[len(entries)-l.max:]
	}
	if writeErr := l.write(entries); writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fmt.Errorf("discarded unreadable log: %w", err)
	}
	return nil
}

// Read returns every stored entry, oldest first. A missing file is an empty log.
func (l *FileLog) Read() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *FileLog) read() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read monitor log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode monitor log: %w", err)
	}
	return entries, nil
}

func (l *FileLog) write(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create monitor log dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode monitor log: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write monitor log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace monitor log: %w", err)
	}
	return nil
}
