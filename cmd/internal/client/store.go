package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	authv1 "projectmanager/shared/contracts/auth/v1"
)

// Session is the locally held credential set.
// RefreshToken is set in body transport mode; RefreshCookie holds the refresh
// cookie value in cookie transport mode so it outlives the cookie jar.
type Session struct {
	UserID        string     `json:"userId"`
	Email         string     `json:"email"`
	AccessToken   string     `json:"accessToken"`
	AccessExpiry  time.Time  `json:"accessExpiryUtc"`
	RefreshToken  string     `json:"refreshToken,omitempty"`
	RefreshExpiry *time.Time `json:"refreshExpiryUtc,omitempty"`
	RefreshCookie string     `json:"refreshCookie,omitempty"`
}

func sessionFromResponse(r authv1.SessionResponse) Session {
	return Session{
		UserID:        r.UserID,
		Email:         r.Email,
		AccessToken:   r.AccessToken,
		AccessExpiry:  r.AccessExpiryUtc,
		RefreshToken:  r.RefreshToken,
		RefreshExpiry: r.RefreshExpiryUtc,
	}
}

// TokenStore persists the current Session. Save replaces it entirely.
type TokenStore interface {
	Load() (Session, bool, error)
	Save(Session) error
	Clear() error
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu   sync.RWMutex
	sess Session
	ok   bool
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load() (Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sess, m.ok, nil
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess, m.ok = s, true
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess, m.ok = Session{}, false
	return nil
}

// FileStore keeps the Session as JSON in a single 0600 file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

// DefaultSessionPath is <user config dir>/projectmanager/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "projectmanager", "session.json"), nil
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load() (Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, false, fmt.Errorf("session file %s: %w", f.path, err)
	}
	return s, s.AccessToken != "", nil
}

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	// Write-then-rename so a crash never leaves a truncated file.
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
