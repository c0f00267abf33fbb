package session

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/taskboard/internal/api"
	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/config"
	"github.com/fentz26/taskboard/internal/gateway"
	"github.com/fentz26/taskboard/internal/livestore"
	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/store"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "server.db"))
	require.NoError(t, err)
	svc := api.NewService(st, audit.NewRecorder(st))
	svc.SetPollInterval(10 * time.Millisecond)
	srv := httptest.NewServer(api.NewServer(svc, "").Handler())

	cfg := config.DefaultConfig()
	cfg.Client.API = srv.URL
	cfg.Client.PollWait = 200 * time.Millisecond
	cfg.Client.RetryInterval = 50 * time.Millisecond
	cfg.Client.LocalDB = filepath.Join(dir, "client", "local.db")
	cfg.Timezone = "UTC"

	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
		srv.Close()
		st.Close()
	})
	return s
}

func TestSession_SignedOut(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, "", s.OwnerID())
	assert.Nil(t, s.Timer())
	_, err := s.WaitLoaded(context.Background())
	assert.True(t, models.IsValidation(err))
	assert.True(t, models.IsValidation(s.SavePreferences(context.Background(), models.Preferences{DisplayName: "x"})))
}

func TestSession_LoginSyncsAndTracksTime(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Auth.Login("ada@example.com", "")
	require.NoError(t, err)
	require.NotEmpty(t, s.OwnerID())
	require.NotNil(t, s.Timer())

	snap, err := s.WaitLoaded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, s.OwnerID(), snap.OwnerID())

	id, err := s.Gateway.CreateTask(ctx, gateway.Draft{Content: "Write docs", Project: "Apollo"})
	require.NoError(t, err)
	for {
		if _, ok := s.Store.Current().Get(id); ok {
			break
		}
		_, err := s.Store.WaitForRevision(ctx, s.Store.Current().Revision()+1)
		require.NoError(t, err)
	}

	dash := s.Dashboard()
	assert.Equal(t, 1, dash.Summary.Total)
	assert.Equal(t, 1, dash.Day.TodayTasks)
	assert.Equal(t, "Apollo", dash.Projects[0].Name)

	tm := s.Timer()
	require.True(t, tm.SelectTask(id))
	require.NoError(t, tm.Start())
}

func TestSession_PreferencesChangeToday(t *testing.T) {
	s := newTestSession(t)
	_, err := s.Auth.Login("ada@example.com", "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.SavePreferences(ctx, models.Preferences{DisplayName: " Ada ", Timezone: "Pacific/Kiritimati"}))
	assert.Equal(t, "Ada", s.Preferences().DisplayName)
	assert.Equal(t, "Pacific/Kiritimati", s.Location().String())

	assert.True(t, models.IsValidation(s.SavePreferences(ctx, models.Preferences{Timezone: "Nowhere/Land"})))
	assert.Equal(t, "Pacific/Kiritimati", s.Location().String(), "a rejected timezone changes nothing")

	// Preferences are per owner and come back on the next sign-in.
	require.NoError(t, s.Auth.Logout())
	assert.Equal(t, "UTC", s.Location().String())
	assert.Nil(t, s.Timer())

	_, err = s.Auth.Login("ada@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Ada", s.Preferences().DisplayName)
}

func TestSession_LogoutClearsSnapshot(t *testing.T) {
	s := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Auth.Login("ada@example.com", "")
	require.NoError(t, err)
	_, err = s.WaitLoaded(ctx)
	require.NoError(t, err)

	changes := make(chan livestore.Snapshot, 8)
	s.Store.OnChange(func(snap livestore.Snapshot) { changes <- snap })
	require.NoError(t, s.Auth.Logout())

	select {
	case snap := <-changes:
		assert.Equal(t, "", snap.OwnerID())
		assert.False(t, snap.Loaded())
	case <-ctx.Done():
		t.Fatal("expected a cleared snapshot")
	}
}
