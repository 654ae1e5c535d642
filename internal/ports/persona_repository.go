package ports

import (
	"context"
	"time"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

// ClaimConstraints narrows the candidate set for an atomic claim.
type ClaimConstraints struct {
	MinTrust int
	Tag      string
	Now      time.Time
}

type PersonaFilter struct {
	Status   domain.PersonaStatus
	MinTrust int
}

type PersonaRepository interface {
	GetByID(ctx context.Context, id domain.PersonaID) (domain.Persona, error)
	List(ctx context.Context, filter PersonaFilter) ([]domain.Persona, error)
	Save(ctx context.Context, persona domain.Persona) error

	// ClaimEligible atomically selects the highest-trust eligible persona
	// (ties broken by least recently used), marks it active and persists
	// the claim in a single indivisible operation. Concurrent callers
	// never observe the same persona as claimable. Returns
	// domain.ErrNoEligiblePersona when nothing matches; it never blocks.
	ClaimEligible(ctx context.Context, claim ClaimConstraints) (domain.Persona, error)
}
