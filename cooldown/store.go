// Package cooldown enforces the minimum interval between emitted suggestions.
//
// The store holds a single global record: the unix timestamp of the last
// suggestion. Reads fail open (a corrupt or missing record means "no prior
// suggestion") so that a damaged file can never permanently silence the
// system; writes go through a temp file and rename so a partial write can
// never leave an unreadable record behind.
package cooldown

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store answers whether a suggestion may fire now and records when one did.
type Store interface {
	// IsCoolingDown reports whether the cooldown period is still running at now.
	IsCoolingDown(now time.Time) bool

	// Record overwrites the last-suggestion timestamp with now.
	Record(now time.Time) error
}

// FileStore is the durable Store: one timestamp in one file.
type FileStore struct {
	path   string
	period time.Duration
}

// NewFileStore creates a file-backed store. The file is created lazily on
// the first Record; a store pointed at a nonexistent file simply reports
// no active cooldown.
func NewFileStore(path string, period time.Duration) *FileStore {
	return &FileStore{path: path, period: period}
}

// IsCoolingDown reads the record and compares against the period.
// Any read or parse failure is treated as "no prior suggestion".
func (s *FileStore) IsCoolingDown(now time.Time) bool {
	last, ok := s.load()
	if !ok {
		return false
	}
	return now.Sub(last) < s.period
}

// Record atomically overwrites the record with now.
func (s *FileStore) Record(now time.Time) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cooldown directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cooldown-*")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.WriteString(strconv.FormatInt(now.Unix(), 10))
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return fmt.Errorf("failed to write cooldown record: %w", werr)
		}
		return fmt.Errorf("failed to write cooldown record: %w", cerr)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cooldown record: %w", err)
	}
	return nil
}

// load returns the recorded timestamp, or ok=false when there is none
// (including every failure mode: the record is advisory, not critical).
func (s *FileStore) load() (time.Time, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// MemoryStore is an in-process Store for tests and for runs where the
// durable record is unavailable.
type MemoryStore struct {
	mu     sync.Mutex
	period time.Duration
	last   time.Time
	set    bool
}

// NewMemoryStore creates an in-memory store with the given period.
func NewMemoryStore(period time.Duration) *MemoryStore {
	return &MemoryStore{period: period}
}

// IsCoolingDown reports whether the period is still running at now.
func (m *MemoryStore) IsCoolingDown(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return false
	}
	return now.Sub(m.last) < m.period
}

// Record stores now as the last-suggestion time.
func (m *MemoryStore) Record(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = now
	m.set = true
	return nil
}

var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)
