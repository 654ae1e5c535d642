package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

// Service covers the operator-facing persona lifecycle: creation,
// listing, retirement and history queries. All session-outcome mutation
// goes through the PoolService checkout protocol instead.
type Service struct {
	personas ports.PersonaRepository
	sessions ports.SessionRepository
	archive  ports.ArchiveStore
	clock    ports.Clock
}

func NewService(personas ports.PersonaRepository, sessions ports.SessionRepository, archive ports.ArchiveStore, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		personas: personas,
		sessions: sessions,
		archive:  archive,
		clock:    clock,
	}
}

type CreatePersona struct {
	Name     string
	Identity domain.DeviceIdentity
	Tags     []string
}

func (s *Service) CreatePersona(ctx context.Context, req CreatePersona) (domain.Persona, error) {
	now := s.clock.Now()

	persona := domain.Persona{
		ID:         domain.PersonaID(uuid.NewString()),
		Name:       req.Name,
		TrustScore: domain.InitialTrustScore,
		Status:     domain.StatusIdle,
		Identity:   req.Identity,
		Tags:       req.Tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	persona.NormalizeTags()

	if err := persona.Validate(); err != nil {
		return domain.Persona{}, err
	}

	existing, err := s.personas.List(ctx, ports.PersonaFilter{})
	if err != nil {
		return domain.Persona{}, fmt.Errorf("list personas: %w", err)
	}
	for _, other := range existing {
		if other.Name == persona.Name {
			return domain.Persona{}, fmt.Errorf("persona name %q already in use", persona.Name)
		}
	}

	if err := s.personas.Save(ctx, persona); err != nil {
		return domain.Persona{}, fmt.Errorf("save persona: %w", err)
	}

	return persona, nil
}

func (s *Service) GetPersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error) {
	return s.personas.GetByID(ctx, id)
}

func (s *Service) ListPersonas(ctx context.Context, filter ports.PersonaFilter) ([]domain.Persona, error) {
	personas, err := s.personas.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}

	sort.Slice(personas, func(i, j int) bool {
		if personas[i].TrustScore == personas[j].TrustScore {
			return personas[i].Name < personas[j].Name
		}
		return personas[i].TrustScore > personas[j].TrustScore
	})

	return personas, nil
}

// RetirePersona removes the persona from future selection permanently.
func (s *Service) RetirePersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error) {
	persona, err := s.personas.GetByID(ctx, id)
	if err != nil {
		return domain.Persona{}, err
	}

	persona.Retire(s.clock.Now())
	if err := s.personas.Save(ctx, persona); err != nil {
		return domain.Persona{}, fmt.Errorf("save persona: %w", err)
	}

	return persona, nil
}

func (s *Service) SessionHistory(ctx context.Context, personaID domain.PersonaID, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.sessions.ListByPersona(ctx, personaID, limit)
}

func (s *Service) ArchiveInfo(ctx context.Context, personaID domain.PersonaID, app string) ([]domain.ArchiveEntry, error) {
	if _, err := domain.AppProfileByName(app); err != nil {
		return nil, err
	}
	return s.archive.List(ctx, personaID, app)
}
