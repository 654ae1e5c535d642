package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type PersonaID string

type PersonaStatus string

const (
	StatusIdle        PersonaStatus = "idle"
	StatusActive      PersonaStatus = "active"
	StatusCoolingDown PersonaStatus = "cooling_down"
	StatusBanned      PersonaStatus = "banned"
	StatusRetired     PersonaStatus = "retired"
)

// BanThreshold is the number of consecutive session failures after which
// a persona is banned until an operator unbans it.
const BanThreshold = 3

// InitialTrustScore is assigned to operator-created personas before any
// session history exists.
const InitialTrustScore = 50

var androidIDPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

type GeoLocation struct {
	Lat      float64
	Lng      float64
	Accuracy float64
	Altitude float64
}

// DeviceIdentity holds the identity attributes applied to the device slot
// during the masking phase of an identity transfer.
type DeviceIdentity struct {
	AndroidID string
	Serial    string
	Location  *GeoLocation
}

type Persona struct {
	ID                  PersonaID
	Name                string
	TrustScore          int
	Status              PersonaStatus
	CooldownUntil       time.Time
	LastUsedAt          time.Time
	TotalSessions       int
	SuccessfulSessions  int
	FailedSessions      int
	ConsecutiveFailures int
	LastFailureReason   string
	Identity            DeviceIdentity
	Tags                []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p Persona) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !validStatus(p.Status) {
		return fmt.Errorf("unsupported status %q", p.Status)
	}
	if !androidIDPattern.MatchString(p.Identity.AndroidID) {
		return fmt.Errorf("android id must be 16 lowercase hex chars, got %q", p.Identity.AndroidID)
	}
	if p.TrustScore < 0 {
		return fmt.Errorf("trust score must not be negative")
	}
	if p.TotalSessions < 0 || p.SuccessfulSessions < 0 || p.FailedSessions < 0 || p.ConsecutiveFailures < 0 {
		return fmt.Errorf("session counters must not be negative")
	}
	if p.SuccessfulSessions+p.FailedSessions > p.TotalSessions {
		return fmt.Errorf("successful and failed sessions exceed total sessions")
	}

	return nil
}

func validStatus(status PersonaStatus) bool {
	switch status {
	case StatusIdle, StatusActive, StatusCoolingDown, StatusBanned, StatusRetired:
		return true
	}
	return false
}

func (p Persona) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EligibleAt reports whether the persona is a checkout candidate: idle,
// out of cooldown, trusted enough and carrying the requested tag.
func (p Persona) EligibleAt(now time.Time, minTrust int, tag string) bool {
	if p.Status != StatusIdle {
		return false
	}
	if !p.CooldownUntil.IsZero() && now.Before(p.CooldownUntil) {
		return false
	}
	if p.TrustScore < minTrust {
		return false
	}
	if tag != "" && !p.HasTag(tag) {
		return false
	}
	return true
}

func (p *Persona) MarkActive(now time.Time) {
	p.Status = StatusActive
	p.LastUsedAt = now
	p.UpdatedAt = now
}

// RecordSuccess applies a successful checkin: counters, recomputed trust
// and a cooldown window before the persona becomes eligible again.
func (p *Persona) RecordSuccess(now time.Time, cooldown time.Duration) {
	p.TotalSessions++
	p.SuccessfulSessions++
	p.ConsecutiveFailures = 0
	p.recomputeTrust()
	p.Status = StatusCoolingDown
	p.CooldownUntil = now.Add(cooldown)
	p.UpdatedAt = now
}

// RecordFailure applies a failed checkin. A failed persona goes straight
// back to idle with no cooldown; only the trust drop and the LRU ordering
// push it down the selection order. Three consecutive failures ban it.
func (p *Persona) RecordFailure(now time.Time, reason string) {
	p.TotalSessions++
	p.FailedSessions++
	p.ConsecutiveFailures++
	p.LastFailureReason = reason
	p.recomputeTrust()
	if p.ConsecutiveFailures >= BanThreshold {
		p.Status = StatusBanned
	} else {
		p.Status = StatusIdle
		p.CooldownUntil = time.Time{}
	}
	p.UpdatedAt = now
}

func (p *Persona) Ban(now time.Time, reason string) {
	p.Status = StatusBanned
	p.LastFailureReason = reason
	p.UpdatedAt = now
}

func (p *Persona) Unban(now time.Time) error {
	if p.Status != StatusBanned {
		return ErrPersonaNotBanned
	}
	p.Status = StatusIdle
	p.ConsecutiveFailures = 0
	p.CooldownUntil = time.Time{}
	p.UpdatedAt = now
	return nil
}

func (p *Persona) Retire(now time.Time) {
	p.Status = StatusRetired
	p.UpdatedAt = now
}

func (p *Persona) recomputeTrust() {
	if p.TotalSessions == 0 {
		return
	}
	p.TrustScore = 100 * p.SuccessfulSessions / p.TotalSessions
}

func (p *Persona) NormalizeTags() {
	if p == nil {
		return
	}

	tags := make([]string, 0, len(p.Tags))
	seen := make(map[string]struct{}, len(p.Tags))
	for _, tag := range p.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		tags = append(tags, trimmed)
	}

	p.Tags = tags
}
