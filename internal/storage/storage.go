// Package storage provides file-based JSON storage for saved forum sessions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("not found")
)

// Storage provides file-based JSON storage. Files are written with 0600
// permissions since they hold session cookies.
type Storage struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*FileLock
}

// New creates a new Storage instance rooted at basePath.
func New(basePath string) *Storage {
	return &Storage{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

// escapeSegment keeps user-supplied keys (forum usernames) inside basePath.
func escapeSegment(s string) string {
	s = url.PathEscape(s)
	if s == "." || s == ".." {
		s = strings.ReplaceAll(s, ".", "%2E")
	}
	return s
}

func (s *Storage) pathToDir(path []string) string {
	parts := make([]string, 0, len(path)+1)
	parts = append(parts, s.basePath)
	for _, p := range path {
		parts = append(parts, escapeSegment(p))
	}
	return filepath.Join(parts...)
}

func (s *Storage) pathToFile(path []string) string {
	return s.pathToDir(path) + ".json"
}

// Get retrieves a value from storage.
func (s *Storage) Get(ctx context.Context, path []string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.pathToFile(path))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// Put stores a value with file locking; the write is a temp file plus rename.
func (s *Storage) Put(ctx context.Context, path []string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath := s.pathToFile(path)

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Delete removes a value. Deleting a missing value is not an error.
func (s *Storage) Delete(ctx context.Context, path []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath := s.pathToFile(path)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns the keys stored directly under path, unescaped.
func (s *Storage) List(ctx context.Context, path []string) ([]string, error) {
	var items []string
	err := s.walk(ctx, path, func(key string, _ string) error {
		items = append(items, key)
		return nil
	})
	if items == nil {
		items = []string{}
	}
	return items, err
}

// Scan iterates over all values under path.
func (s *Storage) Scan(ctx context.Context, path []string, fn func(key string, data json.RawMessage) error) error {
	return s.walk(ctx, path, func(key string, file string) error {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil // skip unreadable entries
		}
		return fn(key, json.RawMessage(data))
	})
}

func (s *Storage) walk(ctx context.Context, path []string, fn func(key, file string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dirPath := s.pathToDir(path)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		if err := fn(key, filepath.Join(dirPath, name)); err != nil {
			return err
		}
	}
	return nil
}

// Exists checks if a path exists.
func (s *Storage) Exists(ctx context.Context, path []string) bool {
	_, err := os.Stat(s.pathToFile(path))
	return err == nil
}

func (s *Storage) getLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}
	return lock
}
