package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthFileName is the auth store's file inside the state directory.
const AuthFileName = "auth.yaml"

type authFile struct {
	Token     string    `yaml:"token"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// AuthStore keeps the backend API token on disk between runs.
type AuthStore struct {
	mu    sync.RWMutex
	path  string
	token string
}

// NewAuthStore returns a store backed by dir/auth.yaml. Nothing is read
// until Load.
func NewAuthStore(dir string) *AuthStore {
	return &AuthStore{path: filepath.Join(dir, AuthFileName)}
}

// Path is the backing file.
func (s *AuthStore) Path() string {
	return s.path
}

// Load reads the persisted token. A missing file leaves the store empty.
func (s *AuthStore) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read auth store: %w", err)
	}

	var f authFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse auth store %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.token = f.Token
	s.mu.Unlock()
	return nil
}

// Token returns the current token, "" when logged out.
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores token and persists it.
func (s *AuthStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(authFile{Token: token, UpdatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	s.token = token
	return nil
}

// Clear forgets the token and removes the backing file.
func (s *AuthStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove auth store: %w", err)
	}
	s.token = ""
	return nil
}

func (s *AuthStore) write(f authFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode auth store: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated store.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".auth-*.yaml")
	if err != nil {
		return fmt.Errorf("write auth store: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write auth store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write auth store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write auth store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write auth store: %w", err)
	}
	return nil
}
