package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ierr "github.com/streambill/streambill/internal/errors"
)

// Store persists opaque panel session blobs (serialized cookies) across
// process restarts, keyed by panel identity, so a warm session is reused
// instead of logging in on every call. Implementations do not need to be
// safe against concurrent writers for the same key: two provisioning tasks
// racing on one panel at worst cost an extra login.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// SanitizeKey turns a panel URL into a filesystem-safe session key.
func SanitizeKey(panelURL string) string {
	replacer := strings.NewReplacer("://", "_", "/", "_", ":", "_", "@", "_")
	return replacer.Replace(strings.TrimRight(panelURL, "/"))
}

// FileStore keeps one file per panel under a configured directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Cannot create session directory %s", dir).
			Mark(ierr.ErrInternal)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".session")
}

func (s *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	return blob, nil
}

func (s *FileStore) Save(_ context.Context, key string, blob []byte) error {
	if err := os.WriteFile(s.path(key), blob, 0o600); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return ierr.WithError(err).Mark(ierr.ErrInternal)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if blob, ok := s.blobs[key]; ok {
		out := make([]byte, len(blob))
		copy(out, blob)
		return out, nil
	}
	return nil, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(blob))
	copy(out, blob)
	s.blobs[key] = out
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
