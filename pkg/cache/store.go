package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrCacheMiss indicates no record exists for the key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCorruptRecord indicates a stored record failed to deserialize or
	// carries an unknown schema version. The store removes the bad entry,
	// so a retry sees a plain miss instead of a sticky failure.
	ErrCorruptRecord = errors.New("corrupt cache record")
)

// Store maps cache keys to serialized records on durable storage.
//
// Implementations own the serialized bytes exclusively; the facade only ever
// holds a transient in-memory view for the duration of one call.
type Store interface {
	// Get returns the record for key, ErrCacheMiss if absent, or
	// ErrCorruptRecord if the stored bytes fail to deserialize.
	Get(ctx context.Context, key Key) (*Record, error)

	// Put durably writes the record, overwriting any existing one.
	Put(ctx context.Context, key Key, rec *Record) error

	// Delete removes the record if present. Absence is not an error.
	Delete(ctx context.Context, key Key) error

	// Clear deletes records older than olderThan and returns the count
	// deleted. A non-positive olderThan deletes everything.
	Clear(ctx context.Context, olderThan time.Duration) (int, error)

	// Stats returns the record count and total stored bytes.
	Stats(ctx context.Context) (count int, sizeBytes int64, err error)

	// Location describes where records live, for diagnostics.
	Location() string
}

const fileExt = ".json"

// FileStore persists one JSON file per cache key inside a directory.
// It assumes a single-writer process: concurrent processes sharing a
// directory get last-write-wins semantics with no locking.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store rooted at dir, creating the
// directory if absent.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With().Str("component", "file-store").Logger(),
	}, nil
}

func (s *FileStore) path(key Key) string {
	return filepath.Join(s.dir, string(key)+fileExt)
}

// Get loads a record from disk. Corrupt or partially written files are
// removed and reported as ErrCorruptRecord so callers degrade to a miss.
func (s *FileStore) Get(_ context.Context, key Key) (*Record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		storeErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.discardCorrupt(key, err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Version != SchemaVersion {
		s.discardCorrupt(key, fmt.Errorf("schema version %d", rec.Version))
		return nil, fmt.Errorf("%w: unknown schema version %d", ErrCorruptRecord, rec.Version)
	}

	return &rec, nil
}

func (s *FileStore) discardCorrupt(key Key, cause error) {
	storeErrors.WithLabelValues("get").Inc()
	s.logger.Warn().
		Err(cause).
		Str("key", string(key)).
		Msg("Removing corrupt cache record")
	_ = os.Remove(s.path(key))
}

// Put serializes the record and writes it via a temp file plus rename, so a
// reader never sees a half-written file as a valid record.
func (s *FileStore) Put(_ context.Context, key Key, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("cache record cannot be nil")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("rename cache file: %w", err)
	}

	return nil
}

// Delete removes the record file. Missing files are a no-op.
func (s *FileStore) Delete(_ context.Context, key Key) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		storeErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("delete cache file: %w", err)
	}
	return nil
}

// Clear removes record files, optionally only those older than olderThan.
// Age filtering needs the stored timestamp, so filtered sweeps deserialize
// each candidate; files that fail to decode are removed as corrupt.
func (s *FileStore) Clear(ctx context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	cleared := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		if olderThan > 0 {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			var rec Record
			if err := json.Unmarshal(data, &rec); err == nil {
				if time.Since(rec.Timestamp) <= olderThan {
					continue
				}
			}
			// Undecodable files fall through and are swept.
		}

		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to remove cache file")
			continue
		}
		cleared++
	}

	return cleared, nil
}

// Stats counts record files and sums their sizes from directory metadata,
// without deserializing any record.
func (s *FileStore) Stats(_ context.Context) (int, int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read cache dir: %w", err)
	}

	count := 0
	var size int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		size += info.Size()
	}

	return count, size, nil
}

// Location returns the store directory.
func (s *FileStore) Location() string {
	return s.dir
}
