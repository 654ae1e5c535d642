package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	archivefs "github.com/bnema/persona-pool-cli/internal/adapters/archive/fs"
	"github.com/bnema/persona-pool-cli/internal/adapters/device/adb"
	statusadapter "github.com/bnema/persona-pool-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/persona-pool-cli/internal/adapters/repo/toml"
	"github.com/bnema/persona-pool-cli/internal/application"
	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/observability"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

const (
	archivePathKey        = "archive.path"
	archiveMaxVersionsKey = "archive.max_versions"
)

type app struct {
	service        *application.Service
	pool           *application.PoolService
	device         ports.DeviceChannel
	archive        ports.ArchiveStore
	newEngine      func(apps []domain.AppProfile) *application.TransferEngine
	statusRenderer func([]domain.Persona, time.Time) (string, error)
	log            zerolog.Logger
	now            func() time.Time
}

func wireApp() (*app, error) {
	log := observability.InitLogger("pp")

	cfg := viper.New()

	personaRepo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire persona repository: %w", err)
	}

	sessionRepo, err := tomlrepo.NewSessionRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetDefault(archivePathKey, envOrDefault("PP_ARCHIVE_DIR", filepath.Join(homeDir, ".personapool", "archives")))
	cfg.SetDefault(archiveMaxVersionsKey, domain.DefaultMaxArchiveVersions)

	archiveStore, err := archivefs.NewStore(cfg.GetString(archivePathKey), cfg.GetInt(archiveMaxVersionsKey))
	if err != nil {
		return nil, fmt.Errorf("wire archive store: %w", err)
	}

	clock := ports.SystemClock{}
	device := adb.NewChannel(os.Getenv("PP_DEVICE_SERIAL"), log)

	return &app{
		service: application.NewService(personaRepo, sessionRepo, archiveStore, clock),
		pool:    application.NewPoolService(personaRepo, sessionRepo, clock),
		device:  device,
		archive: archiveStore,
		newEngine: func(apps []domain.AppProfile) *application.TransferEngine {
			return application.NewTransferEngine(device, archiveStore, clock, application.TransferConfig{Apps: apps}, log)
		},
		statusRenderer: statusadapter.Render,
		log:            log,
		now:            time.Now,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
