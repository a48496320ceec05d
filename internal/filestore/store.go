package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xxxsen/pdfqa/internal/config"
)

// ErrNotExist is returned by Open and Delete for unknown keys.
var ErrNotExist = errors.New("file not exist")

type Store interface {
	Type() string
	Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Factory func(cfg config.FileStoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.FileStoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("file store type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported file store type: %s", cfg.Type)
	}
	return factory(cfg)
}

func SaveBytes(ctx context.Context, s Store, key string, data []byte) error {
	return s.Save(ctx, key, bytes.NewReader(data), int64(len(data)))
}

func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func validKey(key string) bool {
	return key != "" && !strings.Contains(key, "/") && !strings.Contains(key, "\\") && key != "." && key != ".."
}
