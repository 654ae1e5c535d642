package toml

import (
	"fmt"
	"time"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

const schemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Personas []personaSchema `toml:"personas"`
}

type personaSchema struct {
	ID                  string          `toml:"id"`
	Name                string          `toml:"name"`
	TrustScore          int             `toml:"trust_score"`
	Status              string          `toml:"status"`
	AndroidID           string          `toml:"android_id"`
	Serial              string          `toml:"serial,omitempty"`
	Location            *locationSchema `toml:"location,omitempty"`
	Tags                []string        `toml:"tags,omitempty"`
	TotalSessions       int             `toml:"total_sessions"`
	SuccessfulSessions  int             `toml:"successful_sessions"`
	FailedSessions      int             `toml:"failed_sessions"`
	ConsecutiveFailures int             `toml:"consecutive_failures"`
	LastFailureReason   string          `toml:"last_failure_reason,omitempty"`
	CooldownUntil       string          `toml:"cooldown_until,omitempty"`
	LastUsedAt          string          `toml:"last_used_at,omitempty"`
	CreatedAt           string          `toml:"created_at"`
	UpdatedAt           string          `toml:"updated_at"`
}

type locationSchema struct {
	Lat      float64 `toml:"lat"`
	Lng      float64 `toml:"lng"`
	Accuracy float64 `toml:"accuracy,omitempty"`
	Altitude float64 `toml:"altitude,omitempty"`
}

func (f *fileSchema) validateVersion() error {
	if f.Version != 0 && f.Version != schemaVersion {
		return fmt.Errorf("unsupported personas schema version %d", f.Version)
	}
	return nil
}

func (f *fileSchema) applyDefaults() {
	f.Version = schemaVersion
}

func toSchema(p domain.Persona) personaSchema {
	var location *locationSchema
	if loc := p.Identity.Location; loc != nil {
		location = &locationSchema{
			Lat:      loc.Lat,
			Lng:      loc.Lng,
			Accuracy: loc.Accuracy,
			Altitude: loc.Altitude,
		}
	}

	return personaSchema{
		ID:                  string(p.ID),
		Name:                p.Name,
		TrustScore:          p.TrustScore,
		Status:              string(p.Status),
		AndroidID:           p.Identity.AndroidID,
		Serial:              p.Identity.Serial,
		Location:            location,
		Tags:                p.Tags,
		TotalSessions:       p.TotalSessions,
		SuccessfulSessions:  p.SuccessfulSessions,
		FailedSessions:      p.FailedSessions,
		ConsecutiveFailures: p.ConsecutiveFailures,
		LastFailureReason:   p.LastFailureReason,
		CooldownUntil:       encodeTime(p.CooldownUntil),
		LastUsedAt:          encodeTime(p.LastUsedAt),
		CreatedAt:           encodeTime(p.CreatedAt),
		UpdatedAt:           encodeTime(p.UpdatedAt),
	}
}

func fromSchema(s personaSchema) domain.Persona {
	var location *domain.GeoLocation
	if s.Location != nil {
		location = &domain.GeoLocation{
			Lat:      s.Location.Lat,
			Lng:      s.Location.Lng,
			Accuracy: s.Location.Accuracy,
			Altitude: s.Location.Altitude,
		}
	}

	return domain.Persona{
		ID:         domain.PersonaID(s.ID),
		Name:       s.Name,
		TrustScore: s.TrustScore,
		Status:     domain.PersonaStatus(s.Status),
		Identity: domain.DeviceIdentity{
			AndroidID: s.AndroidID,
			Serial:    s.Serial,
			Location:  location,
		},
		Tags:                s.Tags,
		TotalSessions:       s.TotalSessions,
		SuccessfulSessions:  s.SuccessfulSessions,
		FailedSessions:      s.FailedSessions,
		ConsecutiveFailures: s.ConsecutiveFailures,
		LastFailureReason:   s.LastFailureReason,
		CooldownUntil:       decodeTime(s.CooldownUntil),
		LastUsedAt:          decodeTime(s.LastUsedAt),
		CreatedAt:           decodeTime(s.CreatedAt),
		UpdatedAt:           decodeTime(s.UpdatedAt),
	}
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
