// Package session wires the client side together for one signed-in user:
// the live snapshot, the mutation gateway, the session timer and local
// preferences. The CLI and the TUI both run on top of a Session.
package session

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fentz26/taskboard/internal/auth"
	"github.com/fentz26/taskboard/internal/config"
	"github.com/fentz26/taskboard/internal/gateway"
	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/localstore"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/remote"
	"github.com/fentz26/taskboard/internal/stats"
	"github.com/fentz26/taskboard/internal/timer"
)

// Session is the client runtime.
type Session struct {
	cfg   *config.Config
	clock models.Clock

	Remote  *remote.Client
	Store   *livestore.Store
	Gateway *gateway.Gateway
	Auth    *auth.Manager
	Local   *localstore.Store

	cache stats.Cache

	mu     sync.Mutex
	owner  string
	prefs  models.Preferences
	loc    *time.Location
	tlog   *timer.Log
	timer  *timer.Timer
	onTick []func(time.Duration)
}

// Open builds a session from cfg and starts syncing the signed-in user's
// tasks, if any.
func Open(cfg *config.Config) (*Session, error) {
	local, err := localstore.Open(cfg.Client.LocalDB)
	if err != nil {
		return nil, err
	}
	// Credentials live next to the local database.
	authMgr, err := auth.NewManager(filepath.Dir(cfg.Client.LocalDB))
	if err != nil {
		local.Close()
		return nil, err
	}

	rc := remote.New(cfg.Client.API, cfg.Client.Timeout, cfg.Client.PollWait)
	ls := livestore.New(rc, livestore.Options{RetryInterval: cfg.Client.RetryInterval})

	s := &Session{
		cfg:    cfg,
		clock:  models.RealClock{},
		Remote: rc,
		Store:  ls,
		Auth:   authMgr,
		Local:  local,
		loc:    cfg.Location(),
	}
	s.Gateway = gateway.New(rc, rc, ls, gateway.Options{Clock: s.clock, Location: s.loc})

	authMgr.OnChange(s.switchOwner)
	s.switchOwner(authMgr.OwnerID())
	return s, nil
}

// switchOwner points every per-user component at ownerID.
func (s *Session) switchOwner(ownerID string) {
	ctx := context.Background()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Close()
		s.timer, s.tlog = nil, nil
	}
	s.owner = ownerID
	s.prefs = models.Preferences{}
	s.loc = s.cfg.Location()

	if ownerID != "" {
		if p, err := s.Local.Preferences(ctx, ownerID); err != nil {
			log.Printf("session: loading preferences: %v", err)
		} else {
			s.prefs = p
			if p.Timezone != "" {
				s.loc = localstore.Location(p)
			}
		}

		tlog, err := timer.OpenLog(ctx, s.Local, ownerID)
		if err != nil {
			log.Printf("session: opening time log: %v", err)
		} else {
			s.tlog = tlog
			s.timer = timer.New(s.clock, tlog, s.title, timer.Options{
				TickInterval: s.cfg.Timer.TickInterval,
				MinSave:      s.cfg.Timer.MinSave,
			})
			for _, fn := range s.onTick {
				s.timer.OnTick(fn)
			}
		}
	}
	loc := s.loc
	s.mu.Unlock()

	s.Gateway.SetLocation(loc)
	s.Store.SetOwner(ownerID)
}

func (s *Session) title(taskID string) (string, bool) {
	t, ok := s.Store.Current().Get(taskID)
	return t.Content, ok
}

// OwnerID returns the signed-in owner, or "".
func (s *Session) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Location returns the zone that decides "today".
func (s *Session) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// Today returns the current calendar day in the user's zone.
func (s *Session) Today() models.Date {
	return models.Today(s.clock, s.Location())
}

// Dashboard returns the aggregates of the current snapshot.
func (s *Session) Dashboard() stats.Dashboard {
	return s.cache.Get(s.Store.Current(), s.Today())
}

// Timer returns the signed-in user's timer, or nil when signed out.
func (s *Session) Timer() *timer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// TimeLog returns the signed-in user's time log, or nil when signed out.
func (s *Session) TimeLog() *timer.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tlog
}

// OnTimerTick registers fn on the current timer and every later one.
func (s *Session) OnTimerTick(fn func(time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = append(s.onTick, fn)
	if s.timer != nil {
		s.timer.OnTick(fn)
	}
}

// Preferences returns the signed-in user's preferences.
func (s *Session) Preferences() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SavePreferences stores p and applies its timezone.
func (s *Session) SavePreferences(ctx context.Context, p models.Preferences) error {
	owner := s.OwnerID()
	if owner == "" {
		return models.Invalid("owner", "sign in first")
	}
	if err := s.Local.SavePreferences(ctx, owner, p); err != nil {
		return err
	}
	p, err := s.Local.Preferences(ctx, owner)
	if err != nil {
		return fmt.Errorf("reloading preferences: %w", err)
	}

	loc := s.cfg.Location()
	if p.Timezone != "" {
		loc = localstore.Location(p)
	}
	s.mu.Lock()
	s.prefs = p
	s.loc = loc
	s.mu.Unlock()
	s.Gateway.SetLocation(loc)
	return nil
}

// WaitLoaded blocks until the first full state has arrived. It fails fast
// when nobody is signed in.
func (s *Session) WaitLoaded(ctx context.Context) (livestore.Snapshot, error) {
	if s.OwnerID() == "" {
		return livestore.Snapshot{}, models.Invalid("owner", "sign in first (taskboard login <email>)")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 1)
	remove := s.Store.OnSyncError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	defer remove()
	if err := s.Store.LastError(); err != nil && !s.Store.Current().Loaded() {
		return s.Store.Current(), err
	}

	done := make(chan struct{})
	var snap livestore.Snapshot
	var err error
	go func() {
		snap, err = s.Store.WaitLoaded(ctx)
		close(done)
	}()

	select {
	case <-done:
		return snap, err
	case syncErr := <-errs:
		cancel()
		<-done
		if snap.Loaded() {
			return snap, nil
		}
		return snap, syncErr
	}
}

// Close stops the timer and the feed and closes local storage.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Close()
	}
	s.mu.Unlock()
	s.Store.Dispose()
	return s.Local.Close()
}
