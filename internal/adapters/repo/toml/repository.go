package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

const (
	configName       = "config"
	configType       = "toml"
	personasPathKey  = "personas.path"
	storeFileMode    = 0o600
	storeDirMode     = 0o700
	configDirName    = ".personapool"
	personasFileName = "personas.toml"
	tempFilePattern  = ".personas-*.toml.tmp"
)

// Repository persists personas in a single TOML file. All mutating
// operations, including the atomic claim, run under an exclusive lock on
// the file path, so two processes sharing the path still serialize
// through the same in-process lock registry.
type Repository struct {
	personasPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.PersonaRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	personasPath, err := resolveStorePath(cfg, personasPathKey, personasFileName)
	if err != nil {
		return nil, err
	}

	return &Repository{personasPath: personasPath, mu: lockForPath(personasPath)}, nil
}

func resolveStorePath(cfg *viper.Viper, pathKey, fileName string) (string, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDirName, fileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	cfg.SetDefault(pathKey, defaultPath)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return "", fmt.Errorf("read config file: %w", err)
		}
	}

	storePath := cfg.GetString(pathKey)
	if storePath == "" {
		return "", fmt.Errorf("%s is empty", pathKey)
	}

	absPath, err := filepath.Abs(storePath)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", pathKey, err)
	}

	return filepath.Clean(absPath), nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.PersonaID) (domain.Persona, error) {
	if err := ctx.Err(); err != nil {
		return domain.Persona{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Persona{}, err
	}

	for _, entry := range file.Personas {
		if entry.ID == string(id) {
			return fromSchema(entry), nil
		}
	}

	return domain.Persona{}, domain.ErrPersonaNotFound
}

func (r *Repository) List(ctx context.Context, filter ports.PersonaFilter) ([]domain.Persona, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	personas := make([]domain.Persona, 0, len(file.Personas))
	for _, entry := range file.Personas {
		persona := fromSchema(entry)
		if filter.Status != "" && persona.Status != filter.Status {
			continue
		}
		if persona.TrustScore < filter.MinTrust {
			continue
		}
		personas = append(personas, persona)
	}

	return personas, nil
}

func (r *Repository) Save(ctx context.Context, persona domain.Persona) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(persona)
	updated := false
	for i := range file.Personas {
		if file.Personas[i].ID == encoded.ID {
			file.Personas[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Personas = append(file.Personas, encoded)
	}

	return r.writeSchema(file)
}

// ClaimEligible is the pool's atomic claim: candidate selection and the
// idle→active transition happen under one exclusive lock and one
// atomic file replacement, so a concurrent claim can never pick the
// same persona.
func (r *Repository) ClaimEligible(ctx context.Context, claim ports.ClaimConstraints) (domain.Persona, error) {
	if err := ctx.Err(); err != nil {
		return domain.Persona{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Persona{}, err
	}

	best := -1
	var bestPersona domain.Persona
	for i, entry := range file.Personas {
		persona := fromSchema(entry)
		if !persona.EligibleAt(claim.Now, claim.MinTrust, claim.Tag) {
			continue
		}
		if best == -1 || betterCandidate(persona, bestPersona) {
			best = i
			bestPersona = persona
		}
	}

	if best == -1 {
		return domain.Persona{}, domain.ErrNoEligiblePersona
	}

	bestPersona.MarkActive(claim.Now)
	file.Personas[best] = toSchema(bestPersona)

	if err := r.writeSchema(file); err != nil {
		return domain.Persona{}, err
	}

	return bestPersona, nil
}

// betterCandidate orders by trust score descending, then least recently
// used (a zero LastUsedAt sorts first).
func betterCandidate(a, b domain.Persona) bool {
	if a.TrustScore != b.TrustScore {
		return a.TrustScore > b.TrustScore
	}
	return a.LastUsedAt.Before(b.LastUsedAt)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.personasPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read personas file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode personas file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()
	return atomicWriteTOML(r.personasPath, tempFilePattern, file)
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// atomicWriteTOML replaces the file via temp-file plus rename so readers
// never observe a partial write.
func atomicWriteTOML(path, tempPattern string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := toml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempPattern)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp store file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	cleanup = false

	if err := os.Chmod(path, storeFileMode); err != nil {
		return fmt.Errorf("chmod store file: %w", err)
	}

	return nil
}
