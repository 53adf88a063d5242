package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

func (ls *LocalStorage) OpenFrame(dataDir string, frame int) (io.ReadCloser, error) {
	return ls.OpenFile(FramePath(dataDir, frame))
}

// OpenFile opens a file below the storage root. Absolute paths are accepted
// when they already point inside the root, as task paths usually do.
func (ls *LocalStorage) OpenFile(path string) (io.ReadCloser, error) {
	cleanPath := filepath.Clean(filepath.FromSlash(path))
	if rel, err := filepath.Rel(ls.basePath, cleanPath); err == nil && filepath.IsAbs(cleanPath) && !strings.HasPrefix(rel, "..") {
		cleanPath = rel
	}
	if filepath.IsAbs(cleanPath) {
		cleanPath = strings.TrimPrefix(cleanPath, string(filepath.Separator))
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return nil, ErrInvalidPath
	}

	file, err := os.Open(filepath.Join(ls.basePath, cleanPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFrameNotFound, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}
