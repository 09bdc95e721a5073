package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to name under dir, creating parent directories,
// and returns the full path. name must be local to dir.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	if !filepath.IsLocal(name) {
		t.Fatalf("WriteFile: %q is not local to the test directory", name)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// ReadFile returns the contents of path as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(b)
}

// MustExist fails the test unless path exists.
func MustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
}

// MustNotExist fails the test unless path is absent.
func MustNotExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	switch {
	case err == nil:
		t.Fatalf("expected %s to not exist", path)
	case !errors.Is(err, fs.ErrNotExist):
		t.Fatalf("stat %s: %v", path, err)
	}
}
