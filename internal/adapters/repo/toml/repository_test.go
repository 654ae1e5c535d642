package toml

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	config := viper.New()
	config.Set("personas.path", filepath.Join(t.TempDir(), "personas.toml"))

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo
}

func storedPersona(id, name string, trust int) domain.Persona {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Persona{
		ID:         domain.PersonaID(id),
		Name:       name,
		TrustScore: trust,
		Status:     domain.StatusIdle,
		Identity: domain.DeviceIdentity{
			AndroidID: "0123456789abcdef",
			Serial:    "R58M12ABCDE",
			Location:  &domain.GeoLocation{Lat: 37.5665, Lng: 126.978, Accuracy: 5, Altitude: 38},
		},
		Tags:      []string{"naver", "mobile"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)

	first := storedPersona("p-1", "alpha", 50)
	second := storedPersona("p-2", "bravo", 70)
	second.Identity.Location = nil

	require.NoError(t, repo.Save(context.Background(), first))
	require.NoError(t, repo.Save(context.Background(), second))

	got, err := repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = repo.GetByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Identity.Location)

	personas, err := repo.List(context.Background(), ports.PersonaFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.Persona{first, second}, personas)
}

func TestRepositorySaveUpdatesInPlace(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)

	persona := storedPersona("p-1", "alpha", 50)
	require.NoError(t, repo.Save(context.Background(), persona))

	persona.TrustScore = 80
	persona.Status = domain.StatusCoolingDown
	require.NoError(t, repo.Save(context.Background(), persona))

	personas, err := repo.List(context.Background(), ports.PersonaFilter{})
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, 80, personas[0].TrustScore)
	assert.Equal(t, domain.StatusCoolingDown, personas[0].Status)
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestRepositoryListFilters(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)

	idle := storedPersona("p-1", "alpha", 30)
	banned := storedPersona("p-2", "bravo", 90)
	banned.Status = domain.StatusBanned

	require.NoError(t, repo.Save(context.Background(), idle))
	require.NoError(t, repo.Save(context.Background(), banned))

	onlyBanned, err := repo.List(context.Background(), ports.PersonaFilter{Status: domain.StatusBanned})
	require.NoError(t, err)
	require.Len(t, onlyBanned, 1)
	assert.Equal(t, domain.PersonaID("p-2"), onlyBanned[0].ID)

	trusted, err := repo.List(context.Background(), ports.PersonaFilter{MinTrust: 50})
	require.NoError(t, err)
	require.Len(t, trusted, 1)
	assert.Equal(t, domain.PersonaID("p-2"), trusted[0].ID)
}

func TestClaimEligiblePrefersTrustThenLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := storedPersona("p-old", "older", 70)
	older.LastUsedAt = now.Add(-48 * time.Hour)
	newer := storedPersona("p-new", "newer", 70)
	newer.LastUsedAt = now.Add(-1 * time.Hour)
	weak := storedPersona("p-weak", "weak", 90)
	weak.Status = domain.StatusCoolingDown
	weak.CooldownUntil = now.Add(time.Hour)

	for _, persona := range []domain.Persona{older, newer, weak} {
		require.NoError(t, repo.Save(context.Background(), persona))
	}

	claimed, err := repo.ClaimEligible(context.Background(), ports.ClaimConstraints{Now: now})
	require.NoError(t, err)
	assert.Equal(t, domain.PersonaID("p-old"), claimed.ID, "equal trust breaks ties by least recently used")
	assert.Equal(t, domain.StatusActive, claimed.Status)

	// The claim must be durable, not just in-memory.
	stored, err := repo.GetByID(context.Background(), claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)
}

func TestClaimEligibleNoCandidate(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	now := time.Now()

	active := storedPersona("p-1", "alpha", 50)
	active.Status = domain.StatusActive
	require.NoError(t, repo.Save(context.Background(), active))

	_, err := repo.ClaimEligible(context.Background(), ports.ClaimConstraints{Now: now})
	require.ErrorIs(t, err, domain.ErrNoEligiblePersona)
}

func TestClaimEligibleIsAtomicUnderConcurrency(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	now := time.Now()

	const personaCount = 4
	for i := 0; i < personaCount; i++ {
		require.NoError(t, repo.Save(context.Background(),
			storedPersona("p-"+strconv.Itoa(i), "persona-"+strconv.Itoa(i), 50)))
	}

	var mu sync.Mutex
	claimed := map[domain.PersonaID]int{}
	var wg sync.WaitGroup

	for i := 0; i < personaCount*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			persona, err := repo.ClaimEligible(context.Background(), ports.ClaimConstraints{Now: now})
			if err != nil {
				return
			}
			mu.Lock()
			claimed[persona.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, personaCount)
	for id, count := range claimed {
		assert.Equal(t, 1, count, "persona %s claimed twice", id)
	}
}

func TestRepositoryRejectsUnknownSchemaVersion(t *testing.T) {
	t.Parallel()

	personasPath := filepath.Join(t.TempDir(), "personas.toml")
	config := viper.New()
	config.Set("personas.path", personasPath)

	repo, err := NewRepository(config)
	require.NoError(t, err)

	require.NoError(t, writeFixture(personasPath, "version = 99\n"))

	_, err = repo.List(context.Background(), ports.PersonaFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported personas schema version")
}
