package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSlot keeps the value in a JSON file named after the key.
type FileSlot struct {
	path string
}

// NewFileSlot returns the slot for key inside dir. The directory is created if it is missing.
func NewFileSlot(dir string, key string) (*FileSlot, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return nil, fmt.Errorf("invalid slot key %q", key)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}
	return &FileSlot{path: filepath.Join(dir, key+".json")}, nil
}

// Path returns the location of the file.
func (s *FileSlot) Path() string {
	return s.path
}

func (s *FileSlot) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path) // nosemgrep
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	return data, nil
}

// Write replaces the file atomically: the data goes into a temporary file next to the target
// which is then renamed over it.
func (s *FileSlot) Write(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not write %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("could not write %s: %w", s.path, err)
	}
	return nil
}
