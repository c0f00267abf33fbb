package localstore

import (
	"context"
	"strings"
	"time"

	"github.com/fentz26/taskboard/internal/models"
)

// Preferences loads an owner's preferences; missing preferences are empty.
func (s *Store) Preferences(ctx context.Context, ownerID string) (models.Preferences, error) {
	var p models.Preferences
	if _, err := s.Get(ctx, PreferencesKey(ownerID), &p); err != nil {
		return models.Preferences{}, err
	}
	return p, nil
}

// SavePreferences validates and stores p for ownerID.
func (s *Store) SavePreferences(ctx context.Context, ownerID string, p models.Preferences) error {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Timezone = strings.TrimSpace(p.Timezone)
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return models.Invalid("timezone", "unknown timezone %q", p.Timezone)
		}
	}
	return s.Put(ctx, PreferencesKey(ownerID), p)
}

// Location returns the time zone of p, or time.Local when unset or unknown.
func Location(p models.Preferences) *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
