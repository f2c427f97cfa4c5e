// Package session keeps the console access token and cached login info.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Info is the cached login state.
type Info struct {
	Token    string `toml:"token"`
	Username string `toml:"username"`
}

// Store is a concurrency-safe token store, optionally persisted to a TOML file.
type Store struct {
	mu   sync.RWMutex
	info Info
	path string
}

// NewMemoryStore returns a Store that is never written to disk.
func NewMemoryStore() *Store {
	return &Store{}
}

// Open loads the store from path. A missing file yields an empty store that
// will be created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &s.info); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", path, err)
	}
	return s, nil
}

// Token returns the current access token, possibly empty.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Token, nil
}

// Username returns the cached user name.
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Username
}

// SetLogin records a successful login. An empty username is taken from the
// token claims when the token is a JWT.
func (s *Store) SetLogin(token, username string) error {
	if username == "" {
		if claims, err := DecodeClaims(token); err == nil {
			username = claims.Username
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = Info{Token: token, Username: username}
	return s.saveLocked()
}

// ResetLoginInfo clears the token and cached user info.
func (s *Store) ResetLoginInfo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = Info{}
	// In-memory state wins if the file cannot be written.
	_ = s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := toml.Marshal(s.info)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", s.path, err)
	}
	return nil
}
