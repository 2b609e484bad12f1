package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const (
	lockTimeout = 5 * time.Second
	fileMode    = 0644
	dirMode     = 0755
)

// reportFile represents the on-disk report format.
type reportFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

type jsonStore struct {
	path string
	mu   sync.RWMutex
}

// NewStore creates a new JSON-backed report store.
func NewStore(path string) *jsonStore {
	return &jsonStore{path: path}
}

func (s *jsonStore) Add(ctx context.Context, entry Entry) error {
	return s.withExclusiveLock(ctx, func(rf *reportFile) error {
		// Check for duplicate
		for _, e := range rf.Entries {
			if e.ID == entry.ID {
				return ErrAlreadyExists
			}
		}

		rf.Entries = append(rf.Entries, entry)
		return nil
	})
}

func (s *jsonStore) Get(ctx context.Context, id string) (*Entry, error) {
	var result *Entry

	err := s.withSharedLock(ctx, func(rf *reportFile) error {
		for i := range rf.Entries {
			if rf.Entries[i].ID == id {
				entry := rf.Entries[i]
				result = &entry
				return nil
			}
		}
		return ErrNotFound
	})

	return result, err
}

func (s *jsonStore) GetByName(ctx context.Context, name string) (*Entry, error) {
	var result *Entry

	err := s.withSharedLock(ctx, func(rf *reportFile) error {
		for i := range rf.Entries {
			if rf.Entries[i].Name == name {
				entry := rf.Entries[i]
				result = &entry
				return nil
			}
		}
		return ErrNotFound
	})

	return result, err
}

func (s *jsonStore) Update(ctx context.Context, entry Entry) error {
	return s.withExclusiveLock(ctx, func(rf *reportFile) error {
		for i := range rf.Entries {
			if rf.Entries[i].ID == entry.ID {
				rf.Entries[i] = entry
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *jsonStore) Remove(ctx context.Context, id string) error {
	return s.withExclusiveLock(ctx, func(rf *reportFile) error {
		for i := range rf.Entries {
			if rf.Entries[i].ID == id {
				rf.Entries = append(rf.Entries[:i], rf.Entries[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *jsonStore) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	var result []Entry

	err := s.withSharedLock(ctx, func(rf *reportFile) error {
		for _, e := range rf.Entries {
			if filter.RunID != "" && e.RunID != filter.RunID {
				continue
			}
			if filter.Group != "" && e.Group != filter.Group {
				continue
			}
			if filter.Host != "" && e.Host != filter.Host {
				continue
			}
			if filter.Status != "" && e.Status != filter.Status {
				continue
			}
			result = append(result, e)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// withSharedLock executes fn with a shared (read) lock.
func (s *jsonStore) withSharedLock(ctx context.Context, fn func(*reportFile) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rf, file, err := s.openAndLock(ctx, false)
	if err != nil {
		return err
	}
	defer s.unlockAndClose(file)

	return fn(rf)
}

// withExclusiveLock executes fn with an exclusive (write) lock.
// Changes made by fn are persisted to disk.
func (s *jsonStore) withExclusiveLock(ctx context.Context, fn func(*reportFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, file, err := s.openAndLock(ctx, true)
	if err != nil {
		return err
	}
	defer s.unlockAndClose(file)

	if err := fn(rf); err != nil {
		return err
	}

	return s.save(rf)
}

// openAndLock opens the report file and acquires a lock.
func (s *jsonStore) openAndLock(ctx context.Context, exclusive bool) (*reportFile, *os.File, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return nil, nil, fmt.Errorf("create report directory: %w", err)
	}

	// Open or create file
	file, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, fileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("open report file: %w", err)
	}

	// Acquire lock with timeout
	lockType := syscall.LOCK_SH
	if exclusive {
		lockType = syscall.LOCK_EX
	}

	if err := s.acquireLock(ctx, file, lockType); err != nil {
		file.Close()
		return nil, nil, err
	}

	// Load report file
	rf, err := s.load(file)
	if err != nil {
		s.unlockAndClose(file)
		return nil, nil, err
	}

	return rf, file, nil
}

// acquireLock attempts to acquire a file lock with timeout.
func (s *jsonStore) acquireLock(ctx context.Context, file *os.File, lockType int) error {
	deadline := time.Now().Add(lockTimeout)

	for {
		// Check context
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Try non-blocking lock
		err := syscall.Flock(int(file.Fd()), lockType|syscall.LOCK_NB)
		if err == nil {
			return nil
		}

		if err != syscall.EWOULDBLOCK {
			return fmt.Errorf("acquire file lock: %w", err)
		}

		// Check timeout
		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		// Wait and retry
		time.Sleep(10 * time.Millisecond)
	}
}

// unlockAndClose releases the lock and closes the file.
func (s *jsonStore) unlockAndClose(file *os.File) {
	syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	file.Close()
}

// load reads and parses the report file.
func (s *jsonStore) load(file *os.File) (*reportFile, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat report file: %w", err)
	}

	// Empty file - return default
	if info.Size() == 0 {
		return &reportFile{Version: 1, Entries: []Entry{}}, nil
	}

	// Seek to beginning
	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("seek report file: %w", err)
	}

	var rf reportFile
	if err := json.NewDecoder(file).Decode(&rf); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return &rf, nil
}

// save writes the report file to disk atomically.
func (s *jsonStore) save(rf *reportFile) error {
	rf.Version = 1

	// Write to temp file
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "reports-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up on error
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rf); err != nil {
		tmp.Close()
		return fmt.Errorf("encode report file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename report file: %w", err)
	}

	tmpPath = "" // Prevent cleanup
	return nil
}
