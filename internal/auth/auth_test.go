package auth

import (
	"errors"
	"testing"
)

func TestLoginLogout(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if m.IsAuthenticated() {
		t.Fatal("Fresh manager should be signed out")
	}

	var seen []string
	m.OnChange(func(owner string) { seen = append(seen, owner) })

	s, err := m.Login("  Ada@Example.com ", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if s.User.Email != "ada@example.com" || s.User.Username != "ada" {
		t.Errorf("Unexpected user %+v", s.User)
	}
	if s.User.ID != OwnerFor("ada@example.com") {
		t.Errorf("Owner id should be derived from the email")
	}
	if m.OwnerID() != s.User.ID {
		t.Errorf("Expected owner %s, got %s", s.User.ID, m.OwnerID())
	}

	// Credentials survive a restart.
	again, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if again.OwnerID() != s.User.ID {
		t.Errorf("Expected persisted owner %s, got %q", s.User.ID, again.OwnerID())
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if m.User() != nil {
		t.Error("Expected no user after logout")
	}
	if err := m.Logout(); err != nil {
		t.Fatalf("Second logout failed: %v", err)
	}

	if len(seen) != 2 || seen[0] != s.User.ID || seen[1] != "" {
		t.Errorf("Expected sign-in then sign-out transitions, got %v", seen)
	}

	fresh, _ := NewManager(dir)
	if fresh.IsAuthenticated() {
		t.Error("Logout should remove persisted credentials")
	}
}

func TestLoginRejectsBadEmail(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := m.Login("not-an-email", "x"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}
}

func TestOwnerForIsStable(t *testing.T) {
	if OwnerFor("a@b.co") != OwnerFor(" A@B.CO ") {
		t.Error("Owner id should ignore case and surrounding space")
	}
	if OwnerFor("a@b.co") == OwnerFor("c@b.co") {
		t.Error("Different emails should map to different owners")
	}
}
