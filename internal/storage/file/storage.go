package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/yexiu0529666/gobang/internal/storage"
)

// Storage keeps the token in a mode-0600 file, the default backend for
// interactive CLI use.
type Storage struct {
	path string
}

// New creates a file-backed token storage at the given path
func New(path string) *Storage {
	return &Storage{path: path}
}

// Ensure Storage implements the interface
var _ storage.TokenStorage = (*Storage)(nil)

// DefaultPath returns the conventional token file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gobang/token"
	}
	return filepath.Join(home, ".gobang", "token")
}

// Load returns the stored token, or "" if the file does not exist
func (s *Storage) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token, creating the parent directory if needed
func (s *Storage) Save(_ context.Context, token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0600)
}

// Clear removes the token file
func (s *Storage) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
