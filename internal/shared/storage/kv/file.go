package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"research-backend/internal/shared/util"
)

// FileStore keeps one file per slot under baseDir/<namespace>/<key>.json.
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore constructs a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.slotPath(namespace, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv file read: %w", err)
	}
	return data, nil
}

// Put writes to a temp file and renames it over the slot so readers never see a partial value.
func (s *FileStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.slotPath(namespace, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("kv file mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".slot-*")
	if err != nil {
		return fmt.Errorf("kv file temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("kv file write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("kv file close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("kv file rename: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.slotPath(namespace, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("kv file delete: %w", err)
	}
	return nil
}

func (s *FileStore) slotPath(namespace, key string) (string, error) {
	ns, err := util.SanitizeFileName(strings.ReplaceAll(namespace, ":", "_"))
	if err != nil {
		return "", fmt.Errorf("kv namespace: %w", err)
	}
	name, err := util.SanitizeFileName(key)
	if err != nil {
		return "", fmt.Errorf("kv key: %w", err)
	}
	return filepath.Join(s.baseDir, ns, name+".json"), nil
}
