package toml

import (
	"time"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

type sessionsFileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

type sessionSchema struct {
	ID            string        `toml:"id"`
	PersonaID     string        `toml:"persona_id"`
	CampaignID    string        `toml:"campaign_id,omitempty"`
	Status        string        `toml:"status"`
	StartedAt     string        `toml:"started_at"`
	CompletedAt   string        `toml:"completed_at,omitempty"`
	DurationMs    int64         `toml:"duration_ms,omitempty"`
	Phases        []phaseSchema `toml:"phases,omitempty"`
	RetryCount    int           `toml:"retry_count,omitempty"`
	Degraded      bool          `toml:"degraded,omitempty"`
	FailureReason string        `toml:"failure_reason,omitempty"`
}

type phaseSchema struct {
	Phase      string `toml:"phase"`
	Outcome    string `toml:"outcome"`
	DurationMs int64  `toml:"duration_ms"`
	Detail     string `toml:"detail,omitempty"`
}

func sessionToSchema(s domain.Session) sessionSchema {
	phases := make([]phaseSchema, 0, len(s.Phases))
	for _, record := range s.Phases {
		phases = append(phases, phaseSchema{
			Phase:      string(record.Phase),
			Outcome:    string(record.Outcome),
			DurationMs: record.Duration.Milliseconds(),
			Detail:     record.Detail,
		})
	}

	return sessionSchema{
		ID:            string(s.ID),
		PersonaID:     string(s.PersonaID),
		CampaignID:    s.CampaignID,
		Status:        string(s.Status),
		StartedAt:     encodeTime(s.StartedAt),
		CompletedAt:   encodeTime(s.CompletedAt),
		DurationMs:    s.Duration.Milliseconds(),
		Phases:        phases,
		RetryCount:    s.RetryCount,
		Degraded:      s.Degraded,
		FailureReason: s.FailureReason,
	}
}

func sessionFromSchema(s sessionSchema) domain.Session {
	phases := make([]domain.PhaseRecord, 0, len(s.Phases))
	for _, record := range s.Phases {
		phases = append(phases, domain.PhaseRecord{
			Phase:    domain.TransferPhase(record.Phase),
			Outcome:  domain.PhaseOutcome(record.Outcome),
			Duration: time.Duration(record.DurationMs) * time.Millisecond,
			Detail:   record.Detail,
		})
	}
	if len(phases) == 0 {
		phases = nil
	}

	return domain.Session{
		ID:            domain.SessionID(s.ID),
		PersonaID:     domain.PersonaID(s.PersonaID),
		CampaignID:    s.CampaignID,
		Status:        domain.SessionStatus(s.Status),
		StartedAt:     decodeTime(s.StartedAt),
		CompletedAt:   decodeTime(s.CompletedAt),
		Duration:      time.Duration(s.DurationMs) * time.Millisecond,
		Phases:        phases,
		RetryCount:    s.RetryCount,
		Degraded:      s.Degraded,
		FailureReason: s.FailureReason,
	}
}
