package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/biblioteca/backend/internal/application/document"
	"go.uber.org/zap"
)

var _ document.Store = (*FileSystemDocumentStore)(nil)

// ErrInvalidKey is returned for keys that would resolve outside the base directory
var ErrInvalidKey = errors.New("invalid storage key")

// FileSystemDocumentStore keeps documents under a local directory.
// Keys map to relative paths, so "sales/<id>/invoice.pdf" lands in
// {base}/sales/<id>/invoice.pdf.
type FileSystemDocumentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileSystemDocumentStore creates the base directory if needed
func NewFileSystemDocumentStore(baseDir string, logger *zap.Logger) (*FileSystemDocumentStore, error) {
	if baseDir == "" {
		return nil, errors.New("storage base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", abs, err)
	}
	return &FileSystemDocumentStore{baseDir: abs, logger: logger}, nil
}

// Put writes the document atomically by renaming a temp file into place
func (s *FileSystemDocumentStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to store document: %w", err)
	}

	s.logger.Debug("Document stored", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

// Open returns the stored file
func (s *FileSystemDocumentStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, document.ErrObjectMissing
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return f, nil
}

// Exists reports whether a file is stored under key
func (s *FileSystemDocumentStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat document: %w", err)
	}
	return !info.IsDir(), nil
}

// BaseDir returns the absolute root directory of the store
func (s *FileSystemDocumentStore) BaseDir() string {
	return s.baseDir
}

func (s *FileSystemDocumentStore) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) || strings.HasPrefix(key, "/") || containsDotDot(key) {
		s.logger.Warn("Blocked storage key", zap.String("key", key))
		return "", ErrInvalidKey
	}
	full := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if !strings.HasPrefix(full, s.baseDir+string(filepath.Separator)) {
		s.logger.Warn("Path escape attempt blocked", zap.String("key", key), zap.String("path", full))
		return "", ErrInvalidKey
	}
	return full, nil
}

func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return slices.Contains(parts, "..")
}
