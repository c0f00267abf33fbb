// Package auth provides the signed-in identity of the taskboard client.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidEmail is returned by Login for an unusable address.
var ErrInvalidEmail = errors.New("invalid email address")

// User represents the authenticated user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session represents an authentication session.
type Session struct {
	User       User  `json:"user"`
	SignedInAt int64 `json:"signed_in_at"`
}

// Credentials stores the complete auth credentials.
type Credentials struct {
	Session   Session `json:"session"`
	CreatedAt int64   `json:"created_at"`
}

// Manager handles authentication operations.
type Manager struct {
	configDir   string
	credentials *Credentials
	mu          sync.RWMutex

	listenMu sync.Mutex
	onChange []func(ownerID string)
}

// NewManager creates an auth manager that keeps credentials in configDir.
func NewManager(configDir string) (*Manager, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configDir: configDir}

	// Try to load existing credentials
	_ = m.loadCredentials()

	return m, nil
}

// OwnerFor derives the stable owner id for an email address.
func OwnerFor(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email)))).String()
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.OwnerID() != ""
}

// User returns the current user, or nil when signed out.
func (m *Manager) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credentials == nil {
		return nil
	}
	u := m.credentials.Session.User
	return &u
}

// OwnerID returns the signed-in owner id, or "" when signed out.
func (m *Manager) OwnerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credentials == nil {
		return ""
	}
	return m.credentials.Session.User.ID
}

// OnChange registers fn to be called with the new owner id after every
// sign-in or sign-out.
func (m *Manager) OnChange(fn func(ownerID string)) {
	m.listenMu.Lock()
	m.onChange = append(m.onChange, fn)
	m.listenMu.Unlock()
}

// Login signs in as email. The username defaults to the local part.
func (m *Manager) Login(email, username string) (*Session, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	email = strings.ToLower(addr.Address)
	if username = strings.TrimSpace(username); username == "" {
		username = email[:strings.Index(email, "@")]
	}

	now := time.Now()
	creds := &Credentials{
		Session: Session{
			User:       User{ID: OwnerFor(email), Email: email, Username: username},
			SignedInAt: now.Unix(),
		},
		CreatedAt: now.Unix(),
	}

	m.mu.Lock()
	prev := m.credentials
	m.credentials = creds
	m.mu.Unlock()

	if err := m.saveCredentials(); err != nil {
		m.mu.Lock()
		m.credentials = prev
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	m.notify(creds.Session.User.ID)
	session := creds.Session
	return &session, nil
}

// Logout clears the current session.
func (m *Manager) Logout() error {
	m.mu.Lock()
	wasSignedIn := m.credentials != nil
	m.credentials = nil
	m.mu.Unlock()

	if err := os.Remove(m.credentialsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	if wasSignedIn {
		m.notify("")
	}
	return nil
}

func (m *Manager) notify(ownerID string) {
	m.listenMu.Lock()
	defer m.listenMu.Unlock()
	for _, fn := range m.onChange {
		fn(ownerID)
	}
}

// credentialsPath returns the path to the credentials file.
func (m *Manager) credentialsPath() string {
	return filepath.Join(m.configDir, "credentials.json")
}

// loadCredentials loads credentials from disk.
func (m *Manager) loadCredentials() error {
	data, err := os.ReadFile(m.credentialsPath())
	if err != nil {
		return err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}
	if creds.Session.User.ID == "" {
		return fmt.Errorf("credentials have no user id")
	}

	m.mu.Lock()
	m.credentials = &creds
	m.mu.Unlock()

	return nil
}

// saveCredentials saves credentials to disk.
func (m *Manager) saveCredentials() error {
	m.mu.RLock()
	creds := m.credentials
	m.mu.RUnlock()

	if creds == nil {
		return nil
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.credentialsPath(), data, 0600)
}
