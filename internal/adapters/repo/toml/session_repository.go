package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

const (
	sessionsPathKey     = "sessions.path"
	sessionsFileName    = "sessions.toml"
	sessionsTempPattern = ".sessions-*.toml.tmp"
)

// SessionRepository persists session records in a TOML file next to the
// personas store. Sessions are append-mostly; updates rewrite the whole
// file under the path lock like the persona store does.
type SessionRepository struct {
	sessionsPath string
	mu           *sync.RWMutex
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(cfg *viper.Viper) (*SessionRepository, error) {
	sessionsPath, err := resolveStorePath(cfg, sessionsPathKey, sessionsFileName)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{sessionsPath: sessionsPath, mu: lockForPath(sessionsPath)}, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Session{}, err
	}

	for _, entry := range file.Sessions {
		if entry.ID == string(id) {
			return sessionFromSchema(entry), nil
		}
	}

	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *SessionRepository) ListByPersona(ctx context.Context, personaID domain.PersonaID, limit int) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, 0, limit)
	for _, entry := range file.Sessions {
		if entry.PersonaID != string(personaID) {
			continue
		}
		sessions = append(sessions, sessionFromSchema(entry))
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

func (r *SessionRepository) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := sessionToSchema(session)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].ID == encoded.ID {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	file.Version = schemaVersion
	return atomicWriteTOML(r.sessionsPath, sessionsTempPattern, file)
}

func (r *SessionRepository) readSchema() (sessionsFileSchema, error) {
	data, err := os.ReadFile(r.sessionsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sessionsFileSchema{}, nil
		}
		return sessionsFileSchema{}, fmt.Errorf("read sessions file: %w", err)
	}

	var file sessionsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return sessionsFileSchema{}, fmt.Errorf("decode sessions file: %w", err)
	}
	if file.Version != 0 && file.Version != schemaVersion {
		return sessionsFileSchema{}, fmt.Errorf("unsupported sessions schema version %d", file.Version)
	}

	return file, nil
}
