package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

func writeFixture(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func newTestSessionRepo(t *testing.T) *SessionRepository {
	t.Helper()

	config := viper.New()
	config.Set("sessions.path", filepath.Join(t.TempDir(), "sessions.toml"))

	repo, err := NewSessionRepository(config)
	require.NoError(t, err)
	return repo
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestSessionRepo(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := domain.NewSession("sess-1", "p-1", "camp-1", start)
	session.MarkRunning()
	session.AppendPhases(
		domain.PhaseRecord{Phase: domain.PhaseCleanup, Outcome: domain.PhaseOK, Duration: 2 * time.Second},
		domain.PhaseRecord{Phase: domain.PhaseBackup, Outcome: domain.PhaseFailed, Detail: "pull failed"},
	)
	session.Degraded = true
	session.Complete(start.Add(90 * time.Second))

	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestSessionRepositoryGetByIDNotFound(t *testing.T) {
	t.Parallel()

	repo := newTestSessionRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepositorySaveUpdatesInPlace(t *testing.T) {
	t.Parallel()

	repo := newTestSessionRepo(t)

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := domain.NewSession("sess-1", "p-1", "", start)
	require.NoError(t, repo.Save(context.Background(), session))

	session.Fail(start.Add(time.Minute), "ban detected")
	require.NoError(t, repo.Save(context.Background(), session))

	got, err := repo.GetByID(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionFailed, got.Status)
	assert.Equal(t, "ban detected", got.FailureReason)

	all, err := repo.ListByPersona(context.Background(), "p-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListByPersonaSortsNewestFirstAndLimits(t *testing.T) {
	t.Parallel()

	repo := newTestSessionRepo(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		session := domain.NewSession(
			domain.SessionID("sess-"+string(rune('a'+i))), "p-1", "", start.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Save(context.Background(), session))
	}
	other := domain.NewSession("sess-other", "p-2", "", start)
	require.NoError(t, repo.Save(context.Background(), other))

	sessions, err := repo.ListByPersona(context.Background(), "p-1", 3)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.Equal(t, domain.SessionID("sess-e"), sessions[0].ID)
	assert.Equal(t, domain.SessionID("sess-d"), sessions[1].ID)
	assert.Equal(t, domain.SessionID("sess-c"), sessions[2].ID)
}
