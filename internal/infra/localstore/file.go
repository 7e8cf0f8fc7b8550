// Package localstore keeps the client core's durable key/value state
// (theme, identity, token, call history) across process restarts.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 20 * time.Millisecond

// File stores every key in one JSON object on disk. A sibling .lock file
// serializes writers across processes; writes go through a temp file and
// a rename so readers never see a half-written file.
type File struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFile returns a store backed by path. The directory is created on demand.
func NewFile(path string) *File {
	return &File{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := f.withLock(ctx, func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		v, ok = data[key]
		return nil
	})
	return v, ok, err
}

func (f *File) Set(ctx context.Context, key, value string) error {
	return f.withLock(ctx, func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		data[key] = value
		return f.write(data)
	})
}

func (f *File) Delete(ctx context.Context, key string) error {
	return f.withLock(ctx, func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		if _, ok := data[key]; !ok {
			return nil
		}
		delete(data, key)
		return f.write(data)
	})
}

func (f *File) withLock(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("localstore: create dir: %w", err)
	}
	locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("localstore: lock %s: %w", f.path, err)
	}
	if !locked {
		return fmt.Errorf("localstore: lock %s: not acquired", f.path)
	}
	defer f.lock.Unlock()
	return fn()
}

// read loads the map. A missing file is empty; an unparsable one is
// treated as empty too so a damaged file never blocks startup.
func (f *File) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", f.path, err)
	}
	data := map[string]string{}
	if len(raw) == 0 || json.Unmarshal(raw, &data) != nil {
		return map[string]string{}, nil
	}
	return data, nil
}

func (f *File) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("localstore: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("localstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("localstore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("localstore: rename: %w", err)
	}
	return nil
}
