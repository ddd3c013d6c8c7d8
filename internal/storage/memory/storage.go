package memory

import (
	"context"
	"sync"

	"github.com/yexiu0529666/gobang/internal/storage"
)

// Storage is an in-memory token storage for tests
type Storage struct {
	mu    sync.Mutex
	token string
}

// New creates an empty in-memory token storage
func New() *Storage {
	return &Storage{}
}

// Ensure Storage implements the interface
var _ storage.TokenStorage = (*Storage)(nil)

func (s *Storage) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *Storage) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
