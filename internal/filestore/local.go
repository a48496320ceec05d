package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xxxsen/pdfqa/internal/config"
)

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(cfg config.FileStoreConfig) (Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return NewLocal(cfg.Dir), nil
}

func NewLocal(dir string) Store {
	return &localStore{dir: dir}
}

func (s *localStore) Type() string {
	return "local"
}

// Save writes to a temp file in the target dir and renames it over key, so a
// reader never observes a half-written file.
func (s *localStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	_ = ctx
	_ = size
	if !validKey(key) {
		return fmt.Errorf("invalid file key")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+key+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(s.dir, key))
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	if !validKey(key) {
		return nil, fmt.Errorf("invalid file key")
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return f, err
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	if !validKey(key) {
		return fmt.Errorf("invalid file key")
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return err
}
