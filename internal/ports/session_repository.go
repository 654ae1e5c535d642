package ports

import (
	"context"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

type SessionRepository interface {
	GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error)
	ListByPersona(ctx context.Context, personaID domain.PersonaID, limit int) ([]domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
}
