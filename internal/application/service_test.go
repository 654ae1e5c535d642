package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

func newTestService(personas ...domain.Persona) (*Service, *memPersonaRepo, *memSessionRepo) {
	repo := newMemPersonaRepo(personas...)
	sessions := newMemSessionRepo()
	svc := NewService(repo, sessions, newMemArchiveStore(), newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	return svc, repo, sessions
}

func TestCreatePersonaAssignsDefaults(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	persona, err := svc.CreatePersona(context.Background(), CreatePersona{
		Name:     "alpha",
		Identity: domain.DeviceIdentity{AndroidID: "0123456789abcdef"},
		Tags:     []string{" naver ", "naver"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, persona.ID)
	assert.Equal(t, domain.InitialTrustScore, persona.TrustScore)
	assert.Equal(t, domain.StatusIdle, persona.Status)
	assert.Equal(t, []string{"naver"}, persona.Tags)
	assert.False(t, persona.CreatedAt.IsZero())
}

func TestCreatePersonaRejectsInvalidAndroidID(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	_, err := svc.CreatePersona(context.Background(), CreatePersona{
		Name:     "alpha",
		Identity: domain.DeviceIdentity{AndroidID: "not-hex"},
	})
	require.Error(t, err)
}

func TestCreatePersonaRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(poolPersona("p-1", "alpha", 50))

	_, err := svc.CreatePersona(context.Background(), CreatePersona{
		Name:     "alpha",
		Identity: domain.DeviceIdentity{AndroidID: "0123456789abcdef"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")
}

func TestListPersonasSortsByTrustThenName(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(
		poolPersona("p-1", "bravo", 50),
		poolPersona("p-2", "alpha", 50),
		poolPersona("p-3", "charlie", 90),
	)

	personas, err := svc.ListPersonas(context.Background(), ports.PersonaFilter{})
	require.NoError(t, err)
	require.Len(t, personas, 3)

	assert.Equal(t, "charlie", personas[0].Name)
	assert.Equal(t, "alpha", personas[1].Name)
	assert.Equal(t, "bravo", personas[2].Name)
}

func TestRetirePersonaRemovesFromSelection(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestService(poolPersona("p-1", "alpha", 50))

	retired, err := svc.RetirePersona(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetired, retired.Status)

	_, err = repo.ClaimEligible(context.Background(), ports.ClaimConstraints{Now: time.Now()})
	require.ErrorIs(t, err, domain.ErrNoEligiblePersona)
}

func TestSessionHistoryDefaultsLimit(t *testing.T) {
	t.Parallel()

	svc, _, sessions := newTestService(poolPersona("p-1", "alpha", 50))

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		session := domain.NewSession(
			domain.SessionID("sess-"+string(rune('a'+i))), "p-1", "", start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, sessions.Save(context.Background(), session))
	}

	history, err := svc.SessionHistory(context.Background(), "p-1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 10)
}

func TestArchiveInfoRejectsUnknownApp(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	_, err := svc.ArchiveInfo(context.Background(), "p-1", "tiktok")
	require.ErrorIs(t, err, domain.ErrUnknownApp)
}
