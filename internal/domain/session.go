package domain

import "time"

type SessionID string

type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

type TransferPhase string

const (
	PhaseCleanup      TransferPhase = "cleanup"
	PhaseIdentityMask TransferPhase = "identity_mask"
	PhaseRestore      TransferPhase = "restore"
	PhaseLaunch       TransferPhase = "launch"
	PhaseBackup       TransferPhase = "backup"
)

type PhaseOutcome string

const (
	PhaseOK      PhaseOutcome = "ok"
	PhaseFailed  PhaseOutcome = "failed"
	PhaseSkipped PhaseOutcome = "skipped"
)

type PhaseRecord struct {
	Phase    TransferPhase
	Outcome  PhaseOutcome
	Duration time.Duration
	Detail   string
}

// Session is one checkout interval of a persona. It is created pending at
// checkout and mutated only by the execution that owns the checkout.
type Session struct {
	ID            SessionID
	PersonaID     PersonaID
	CampaignID    string
	Status        SessionStatus
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	Phases        []PhaseRecord
	RetryCount    int
	Degraded      bool
	FailureReason string
}

func NewSession(id SessionID, personaID PersonaID, campaignID string, now time.Time) Session {
	return Session{
		ID:         id,
		PersonaID:  personaID,
		CampaignID: campaignID,
		Status:     SessionPending,
		StartedAt:  now,
	}
}

func (s Session) Terminal() bool {
	switch s.Status {
	case SessionCompleted, SessionFailed, SessionCancelled:
		return true
	}
	return false
}

func (s *Session) MarkRunning() {
	if s.Status == SessionPending {
		s.Status = SessionRunning
	}
}

func (s *Session) AppendPhases(records ...PhaseRecord) {
	s.Phases = append(s.Phases, records...)
}

func (s *Session) Complete(now time.Time) {
	s.close(SessionCompleted, now)
}

func (s *Session) Fail(now time.Time, reason string) {
	s.FailureReason = reason
	s.close(SessionFailed, now)
}

func (s *Session) Cancel(now time.Time) {
	s.close(SessionCancelled, now)
}

func (s *Session) close(status SessionStatus, now time.Time) {
	s.Status = status
	s.CompletedAt = now
	s.Duration = now.Sub(s.StartedAt)
}
