package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	DefaultDirMode  = 0o750
	DefaultFileMode = 0o600
)

// FileStore writes the state as a JSON file guarded by a lock file, so
// several processes can share one estimates file.
type FileStore struct {
	path        string
	lockTimeout time.Duration
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("snapshot file path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileStore{path: path, lockTimeout: 10 * time.Second}, nil
}

// Path returns the data file location.
func (f *FileStore) Path() string { return f.path }

// SetLockTimeout sets the lock timeout (useful for testing)
func (f *FileStore) SetLockTimeout(timeout time.Duration) {
	f.lockTimeout = timeout
}

func (f *FileStore) Load(ctx context.Context) (State, error) {
	var state State
	err := f.withLock(ctx, func() error {
		data, err := os.ReadFile(f.path)
		if errors.Is(err, os.ErrNotExist) {
			state = Empty()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		state, err = decode(data)
		return err
	})
	return state, err
}

func (f *FileStore) Save(ctx context.Context, state State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	return f.withLock(ctx, func() error {
		return atomicWriteFile(f.path, data, DefaultFileMode)
	})
}

func (f *FileStore) Close() error { return nil }

func (f *FileStore) withLock(ctx context.Context, fn func() error) error {
	fileLock := flock.New(f.path + ".lock")

	ctx, cancel := context.WithTimeout(ctx, f.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire snapshot lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("snapshot lock not acquired within %v", f.lockTimeout)
	}
	defer func() { _ = fileLock.Unlock() }()

	return fn()
}

// atomicWriteFile writes data to a file atomically using temp file + rename
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".tmp-estimates-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	tempFile = nil

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
