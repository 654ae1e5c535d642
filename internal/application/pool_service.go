package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

const DefaultCooldown = 30 * time.Minute

// Constraints narrow checkout selection and carry per-checkout policy.
type Constraints struct {
	MinTrust   int
	Tag        string
	CampaignID string
	// Cooldown applied on a successful checkin; DefaultCooldown when zero.
	Cooldown time.Duration
	// Attempt is the zero-based checkout retry ordinal; it is recorded on
	// the session so history shows how many claims preceded the run.
	Attempt int
}

// Outcome is what the caller reports at checkin, including the phase log
// produced by the identity transfer around the automation task.
type Outcome struct {
	Success  bool
	Reason   string
	Phases   []domain.PhaseRecord
	Degraded bool
}

// Handle is the caller's proof of an exclusive checkout. Its context is
// cancelled when the persona is banned mid-session; the automation task
// must derive from it so a ban interrupts the task at the next safe point.
type Handle struct {
	persona  domain.Persona
	session  domain.Session
	cooldown time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	banned   bool
}

func (h *Handle) Persona() domain.Persona {
	return h.persona
}

func (h *Handle) SessionID() domain.SessionID {
	return h.session.ID
}

func (h *Handle) Context() context.Context {
	return h.ctx
}

// PoolService owns persona checkout and checkin. Its lock covers only the
// handle registry mutation; the atomic claim itself lives in the persona
// repository so checkout never holds a service-wide lock across I/O.
type PoolService struct {
	personas ports.PersonaRepository
	sessions ports.SessionRepository
	clock    ports.Clock

	mu   sync.Mutex
	open map[domain.SessionID]*Handle
}

func NewPoolService(personas ports.PersonaRepository, sessions ports.SessionRepository, clock ports.Clock) *PoolService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &PoolService{
		personas: personas,
		sessions: sessions,
		clock:    clock,
		open:     map[domain.SessionID]*Handle{},
	}
}

// Checkout atomically claims the best eligible persona and opens a
// pending session for it. Returns domain.ErrNoEligiblePersona immediately
// when nothing matches; it never queues.
func (s *PoolService) Checkout(ctx context.Context, constraints Constraints) (*Handle, error) {
	now := s.clock.Now()

	persona, err := s.personas.ClaimEligible(ctx, ports.ClaimConstraints{
		MinTrust: constraints.MinTrust,
		Tag:      constraints.Tag,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	session := domain.NewSession(domain.SessionID(uuid.NewString()), persona.ID, constraints.CampaignID, now)
	session.RetryCount = constraints.Attempt
	if err := s.sessions.Save(ctx, session); err != nil {
		// Claim succeeded but the session record did not; release the
		// persona so it is not leaked in active state.
		persona.Status = domain.StatusIdle
		if releaseErr := s.personas.Save(ctx, persona); releaseErr != nil {
			return nil, fmt.Errorf("save session and release claim: %w", releaseErr)
		}
		return nil, fmt.Errorf("save session: %w", err)
	}

	cooldown := constraints.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	hctx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		persona:  persona,
		session:  session,
		cooldown: cooldown,
		ctx:      hctx,
		cancel:   cancel,
	}

	s.mu.Lock()
	s.open[session.ID] = handle
	s.mu.Unlock()

	return handle, nil
}

// Begin marks the handle's session running and persists it, so session
// listings show work in flight between checkout and checkin.
func (s *PoolService) Begin(ctx context.Context, handle *Handle) error {
	if handle == nil {
		return domain.ErrInvalidCheckin
	}

	s.mu.Lock()
	closed := handle.closed
	s.mu.Unlock()
	if closed {
		return domain.ErrInvalidCheckin
	}

	session, err := s.sessions.GetByID(ctx, handle.session.ID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	session.MarkRunning()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// Checkin closes the handle and applies the outcome to the persona and
// its session. Once the outcome is persisted it is idempotent per handle:
// a second checkin returns domain.ErrInvalidCheckin and changes nothing.
// A store failure leaves the handle open so the same checkin can be
// retried; the outcome is never dropped over a transient write error.
func (s *PoolService) Checkin(ctx context.Context, handle *Handle, outcome Outcome) (domain.Session, error) {
	if handle == nil {
		return domain.Session{}, domain.ErrInvalidCheckin
	}

	s.mu.Lock()
	if handle.closed {
		s.mu.Unlock()
		return domain.Session{}, domain.ErrInvalidCheckin
	}
	handle.closed = true
	banned := handle.banned
	s.mu.Unlock()

	handle.cancel()

	session, err := s.persistOutcome(ctx, handle, outcome, banned)
	if err != nil {
		// Reopen the handle so the caller can retry once the store
		// recovers; the persona must not stay active with its outcome
		// unrecorded.
		s.mu.Lock()
		handle.closed = false
		s.mu.Unlock()
		return domain.Session{}, err
	}

	s.mu.Lock()
	delete(s.open, handle.session.ID)
	s.mu.Unlock()

	return session, nil
}

// persistOutcome writes the session and persona updates of a checkin.
// The session is written first; a retry after a partial failure finds it
// terminal and skips straight to the persona, so neither phases nor
// counters are ever applied twice.
func (s *PoolService) persistOutcome(ctx context.Context, handle *Handle, outcome Outcome, banned bool) (domain.Session, error) {
	now := s.clock.Now()

	session, err := s.sessions.GetByID(ctx, handle.session.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	if !session.Terminal() {
		session.AppendPhases(outcome.Phases...)
		if outcome.Degraded {
			session.Degraded = true
		}

		switch {
		case banned:
			// Ban already moved the persona to banned; the session only
			// records that the run was cut short after state write-back.
			session.Cancel(now)
		case outcome.Success:
			session.Complete(now)
		default:
			session.Fail(now, outcome.Reason)
		}

		if err := s.sessions.Save(ctx, session); err != nil {
			return domain.Session{}, fmt.Errorf("save session: %w", err)
		}
	}

	if banned {
		return session, nil
	}

	persona, err := s.personas.GetByID(ctx, handle.persona.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get persona: %w", err)
	}

	if outcome.Success {
		persona.RecordSuccess(now, handle.cooldown)
	} else {
		persona.RecordFailure(now, outcome.Reason)
	}

	if err := s.personas.Save(ctx, persona); err != nil {
		return domain.Session{}, fmt.Errorf("save persona: %w", err)
	}

	return session, nil
}

// Ban is an operator override. An in-flight checkout of the persona has
// its context cancelled so the automation stops at the next safe point;
// the session is marked cancelled by the checkin that follows phase 5.
func (s *PoolService) Ban(ctx context.Context, personaID domain.PersonaID, reason string) (domain.Persona, error) {
	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return domain.Persona{}, err
	}

	persona.Ban(s.clock.Now(), reason)
	if err := s.personas.Save(ctx, persona); err != nil {
		return domain.Persona{}, fmt.Errorf("save persona: %w", err)
	}

	s.mu.Lock()
	for _, handle := range s.open {
		if handle.persona.ID == personaID {
			handle.banned = true
			handle.cancel()
		}
	}
	s.mu.Unlock()

	return persona, nil
}

// Unban resets consecutive failures and returns the persona to idle.
func (s *PoolService) Unban(ctx context.Context, personaID domain.PersonaID) (domain.Persona, error) {
	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return domain.Persona{}, err
	}

	if err := persona.Unban(s.clock.Now()); err != nil {
		return domain.Persona{}, err
	}
	if err := s.personas.Save(ctx, persona); err != nil {
		return domain.Persona{}, fmt.Errorf("save persona: %w", err)
	}

	return persona, nil
}
