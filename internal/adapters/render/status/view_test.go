package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

func TestRenderSinglePersona(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	output, err := Render([]domain.Persona{
		{
			ID:                 "p-1",
			Name:               "alpha",
			TrustScore:         75,
			Status:             domain.StatusIdle,
			Tags:               []string{"naver", "mobile"},
			TotalSessions:      4,
			SuccessfulSessions: 3,
			FailedSessions:     1,
		},
	}, now)

	require.NoError(t, err)
	assert.Contains(t, output, "personas: 1")
	assert.Contains(t, output, "alpha [naver, mobile]")
	assert.Contains(t, output, "75/100")
	assert.Contains(t, output, "3 ok / 1 failed")
	assert.Contains(t, output, "idle")
	assert.Contains(t, output, "[")
	assert.Contains(t, output, "]")
}

func TestRenderCooldownCountdown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	output, err := Render([]domain.Persona{
		{
			ID:            "p-1",
			Name:          "alpha",
			TrustScore:    60,
			Status:        domain.StatusCoolingDown,
			CooldownUntil: now.Add(25 * time.Minute),
		},
	}, now)

	require.NoError(t, err)
	assert.Contains(t, output, "cooling_down")
	assert.Contains(t, output, "ready in 25 min")
}

func TestRenderBannedPersonaShowsReason(t *testing.T) {
	output, err := Render([]domain.Persona{
		{
			ID:                "p-1",
			Name:              "alpha",
			Status:            domain.StatusBanned,
			LastFailureReason: "captcha wall",
		},
	}, time.Now())

	require.NoError(t, err)
	assert.Contains(t, output, "banned")
	assert.Contains(t, output, "reason: captcha wall")
}

func TestRenderEmptyPool(t *testing.T) {
	output, err := Render(nil, time.Now())

	require.NoError(t, err)
	assert.Contains(t, output, "personas: 0")
	assert.Contains(t, output, "No personas in the pool.")
}
