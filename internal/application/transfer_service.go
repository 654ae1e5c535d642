package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

const (
	DefaultSettleInterval = 5 * time.Second
	defaultRemoteStaging  = "/data/local/tmp"
)

// PhaseError is a fatal identity-transfer failure carrying the phase it
// happened in.
type PhaseError struct {
	Phase domain.TransferPhase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("transfer phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

type TransferConfig struct {
	Apps           []domain.AppProfile
	SettleInterval time.Duration
	RemoteStaging  string
}

// TransferResult carries the ordered phase log of one transfer and
// whether the final backup degraded the session.
type TransferResult struct {
	Phases   []domain.PhaseRecord
	Degraded bool
}

// TransferEngine drives the five-phase identity transfer for one
// (persona, device) pairing: cleanup, identity mask, restore and launch
// ahead of the automation task, then an unconditional backup after it.
// One engine instance owns one device slot; the pool manager's checkout
// exclusivity guarantees no two transfers interleave on it.
type TransferEngine struct {
	device  ports.DeviceChannel
	archive ports.ArchiveStore
	clock   ports.Clock
	cfg     TransferConfig
	log     zerolog.Logger
}

func NewTransferEngine(device ports.DeviceChannel, archive ports.ArchiveStore, clock ports.Clock, cfg TransferConfig, log zerolog.Logger) *TransferEngine {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if len(cfg.Apps) == 0 {
		cfg.Apps = domain.DefaultApps()
	}
	if cfg.SettleInterval <= 0 {
		cfg.SettleInterval = DefaultSettleInterval
	}
	if cfg.RemoteStaging == "" {
		cfg.RemoteStaging = defaultRemoteStaging
	}

	return &TransferEngine{
		device:  device,
		archive: archive,
		clock:   clock,
		cfg:     cfg,
		log:     log,
	}
}

// Run executes phases 1-4, then the automation task, then phase 5. The
// backup phase runs exactly once for every run that reaches the task,
// regardless of how the task ends; only a failure in phases 1-4 skips it,
// since there is no session state to write back yet. A backup failure
// never overrides the task outcome; it is recorded as a degraded flag.
func (e *TransferEngine) Run(ctx context.Context, persona domain.Persona, task func(context.Context) error) (TransferResult, error) {
	var result TransferResult

	prepare := []struct {
		phase domain.TransferPhase
		fn    func(context.Context, domain.Persona) (string, error)
	}{
		{domain.PhaseCleanup, e.cleanup},
		{domain.PhaseIdentityMask, e.maskIdentity},
		{domain.PhaseRestore, e.restore},
		{domain.PhaseLaunch, e.launch},
	}

	for _, step := range prepare {
		record, err := e.runPhase(ctx, step.phase, persona, step.fn)
		result.Phases = append(result.Phases, record)
		if err != nil {
			return result, &PhaseError{Phase: step.phase, Err: err}
		}
	}

	taskErr := task(ctx)

	// Phase 5 must run even when the task failed or its context was
	// cancelled by a ban: the persona's state is written back no matter
	// what happened in between.
	backupRecord, backupErr := e.runPhase(context.WithoutCancel(ctx), domain.PhaseBackup, persona, e.backup)
	result.Phases = append(result.Phases, backupRecord)
	if backupErr != nil {
		result.Degraded = true
		e.log.Warn().Str("persona", string(persona.ID)).Err(backupErr).Msg("state backup failed, session degraded")
	}

	if taskErr != nil {
		return result, fmt.Errorf("automation task: %w", taskErr)
	}

	return result, nil
}

func (e *TransferEngine) runPhase(ctx context.Context, phase domain.TransferPhase, persona domain.Persona, fn func(context.Context, domain.Persona) (string, error)) (domain.PhaseRecord, error) {
	start := e.clock.Now()
	e.log.Info().Str("persona", persona.Name).Str("phase", string(phase)).Msg("transfer phase start")

	detail, err := fn(ctx, persona)
	record := domain.PhaseRecord{
		Phase:    phase,
		Duration: e.clock.Now().Sub(start),
		Detail:   detail,
	}

	if err != nil {
		record.Outcome = domain.PhaseFailed
		record.Detail = err.Error()
		return record, err
	}

	record.Outcome = domain.PhaseOK
	return record, nil
}

// cleanup force-stops each bound app and erases its local state.
func (e *TransferEngine) cleanup(ctx context.Context, _ domain.Persona) (string, error) {
	for _, app := range e.cfg.Apps {
		if _, err := e.device.RunCommand(ctx, "am force-stop "+app.Package); err != nil {
			return "", fmt.Errorf("force-stop %s: %w", app.Package, err)
		}
		out, err := e.device.RunCommand(ctx, "pm clear "+app.Package)
		if err != nil {
			return "", fmt.Errorf("clear %s: %w", app.Package, err)
		}
		if !strings.Contains(out, "Success") {
			return "", fmt.Errorf("clear %s: unexpected output %q", app.Package, out)
		}
	}
	return "", nil
}

// maskIdentity writes the persona's android id to the device and, when a
// location is bound, broadcasts it to the mock GPS provider. The id is
// read back to verify the write took.
func (e *TransferEngine) maskIdentity(ctx context.Context, persona domain.Persona) (string, error) {
	androidID := persona.Identity.AndroidID
	if _, err := e.device.RunCommand(ctx, "settings put secure android_id "+androidID); err != nil {
		return "", fmt.Errorf("set android id: %w", err)
	}

	current, err := e.device.RunCommand(ctx, "settings get secure android_id")
	if err != nil {
		return "", fmt.Errorf("verify android id: %w", err)
	}
	if strings.TrimSpace(current) != androidID {
		return "", fmt.Errorf("android id not applied: device reports %q", strings.TrimSpace(current))
	}

	if loc := persona.Identity.Location; loc != nil {
		cmd := fmt.Sprintf(
			"am broadcast -a com.fakegps.SET_LOCATION --ef lat %f --ef lng %f --ef accuracy %f --ef altitude %f",
			loc.Lat, loc.Lng, loc.Accuracy, loc.Altitude,
		)
		out, err := e.device.RunCommand(ctx, cmd)
		if err != nil {
			return "", fmt.Errorf("set mock location: %w", err)
		}
		if !strings.Contains(out, "Broadcast completed") {
			return "", fmt.Errorf("set mock location: unexpected output %q", out)
		}
	}

	return "", nil
}

// restore extracts the latest archived state of each bound app into its
// private storage. A missing entry is a cold start and is skipped; a
// failing extraction of an existing entry is fatal, never silently
// downgraded to a cold start.
func (e *TransferEngine) restore(ctx context.Context, persona domain.Persona) (string, error) {
	var details []string

	for _, app := range e.cfg.Apps {
		entry, err := e.archive.Latest(ctx, persona.ID, app.Name)
		if errors.Is(err, domain.ErrArchiveEntryNotFound) {
			details = append(details, app.Name+": cold start")
			continue
		}
		if err != nil {
			return "", fmt.Errorf("locate archive for %s: %w", app.Name, err)
		}

		if err := e.restoreEntry(ctx, app, entry); err != nil {
			return "", err
		}
		details = append(details, fmt.Sprintf("%s: restored v%d", app.Name, entry.Version))

		if ok := e.probeLoginState(ctx, app); !ok {
			e.log.Warn().Str("app", app.Name).Msg("critical files missing after restore")
		}
	}

	return strings.Join(details, "; "), nil
}

func (e *TransferEngine) restoreEntry(ctx context.Context, app domain.AppProfile, entry domain.ArchiveEntry) error {
	rc, err := e.archive.Open(ctx, entry)
	if err != nil {
		return fmt.Errorf("%w: open %s v%d: %v", domain.ErrArchiveCorrupt, app.Name, entry.Version, err)
	}
	defer rc.Close()

	local, err := os.CreateTemp("", "restore-*.tar")
	if err != nil {
		return fmt.Errorf("stage restore for %s: %w", app.Name, err)
	}
	defer os.Remove(local.Name())

	if _, err := io.Copy(local, rc); err != nil {
		local.Close()
		return fmt.Errorf("%w: read %s v%d: %v", domain.ErrArchiveCorrupt, app.Name, entry.Version, err)
	}
	if err := local.Close(); err != nil {
		return fmt.Errorf("stage restore for %s: %w", app.Name, err)
	}

	remote := path.Join(e.cfg.RemoteStaging, "restore-"+app.Name+".tar")
	if err := e.device.PushFile(ctx, local.Name(), remote); err != nil {
		return fmt.Errorf("push restore for %s: %w", app.Name, err)
	}

	if _, err := e.device.RunCommand(ctx, fmt.Sprintf("su -c 'tar -xf %s -C %s/'", remote, app.DataPath)); err != nil {
		return fmt.Errorf("%w: extract %s v%d: %v", domain.ErrArchiveCorrupt, app.Name, entry.Version, err)
	}

	uid, err := e.appUID(ctx, app.Package)
	if err != nil {
		return fmt.Errorf("resolve uid for %s: %w", app.Package, err)
	}
	owner := fmt.Sprintf("u0_a%d:u0_a%d", uid, uid)
	if _, err := e.device.RunCommand(ctx, fmt.Sprintf("su -c 'chown -R %s %s/'", owner, app.DataPath)); err != nil {
		return fmt.Errorf("repair ownership for %s: %w", app.Package, err)
	}

	_, _ = e.device.RunCommand(ctx, "rm -f "+remote)
	return nil
}

// launch starts each bound app and waits a settle interval for it to
// finish initializing.
func (e *TransferEngine) launch(ctx context.Context, _ domain.Persona) (string, error) {
	for _, app := range e.cfg.Apps {
		out, err := e.device.RunCommand(ctx, "am start -n "+app.LaunchComponent())
		if err != nil {
			return "", fmt.Errorf("start %s: %w", app.Package, err)
		}
		if strings.Contains(out, "Error") {
			return "", fmt.Errorf("start %s: %s", app.Package, strings.TrimSpace(out))
		}
	}

	select {
	case <-time.After(e.cfg.SettleInterval):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return "", nil
}

// backup archives each bound app's private storage, excluding its cache
// paths, and writes a new versioned entry. Per-app failures are collected
// rather than aborting: every surviving app still gets its state saved.
func (e *TransferEngine) backup(ctx context.Context, persona domain.Persona) (string, error) {
	var details []string
	var errs []error

	for _, app := range e.cfg.Apps {
		entry, err := e.backupApp(ctx, persona, app)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", app.Name, err))
			continue
		}
		details = append(details, fmt.Sprintf("%s: v%d (%d bytes)", app.Name, entry.Version, entry.SizeBytes))
	}

	if len(errs) > 0 {
		return strings.Join(details, "; "), errors.Join(errs...)
	}
	return strings.Join(details, "; "), nil
}

func (e *TransferEngine) backupApp(ctx context.Context, persona domain.Persona, app domain.AppProfile) (domain.ArchiveEntry, error) {
	if _, err := e.device.RunCommand(ctx, "am force-stop "+app.Package); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("force-stop: %w", err)
	}

	var excludes strings.Builder
	for _, pattern := range app.ExcludeFromBackup {
		fmt.Fprintf(&excludes, "--exclude='%s' ", pattern)
	}

	remote := path.Join(e.cfg.RemoteStaging, "backup-"+app.Name+".tar")
	cmd := fmt.Sprintf("su -c 'tar -cf %s %s-C %s/ .'", remote, excludes.String(), app.DataPath)
	if _, err := e.device.RunCommand(ctx, cmd); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("archive app data: %w", err)
	}

	local, err := os.CreateTemp("", "backup-*.tar")
	if err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("stage backup: %w", err)
	}
	localPath := local.Name()
	local.Close()
	defer os.Remove(localPath)

	if err := e.device.PullFile(ctx, remote, localPath); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("pull backup: %w", err)
	}
	_, _ = e.device.RunCommand(ctx, "rm -f "+remote)

	f, err := os.Open(localPath)
	if err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("open staged backup: %w", err)
	}
	defer f.Close()

	entry, err := e.archive.Write(ctx, persona.ID, app.Name, f)
	if err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("write archive entry: %w", err)
	}

	return entry, nil
}

// probeLoginState checks the app's critical files exist after a restore.
// Purely diagnostic; a missing cookie file is logged, not fatal.
func (e *TransferEngine) probeLoginState(ctx context.Context, app domain.AppProfile) bool {
	for _, file := range app.CriticalFiles {
		full := path.Join(app.DataPath, file)
		out, err := e.device.RunCommand(ctx, fmt.Sprintf("su -c 'test -e %s && echo exists'", full))
		if err != nil || !strings.Contains(out, "exists") {
			return false
		}
	}
	return true
}

var (
	packageUIDPattern = regexp.MustCompile(`uid:(\d+)`)
	dumpsysUIDPattern = regexp.MustCompile(`userId=(\d+)`)
)

// appUID resolves the app's sandbox uid (the n in u0_a{n}).
func (e *TransferEngine) appUID(ctx context.Context, pkg string) (int, error) {
	out, err := e.device.RunCommand(ctx, "cmd package list packages -U | grep "+pkg)
	if err == nil {
		if m := packageUIDPattern.FindStringSubmatch(out); m != nil {
			uid, _ := strconv.Atoi(m[1])
			return uid - 10000, nil
		}
	}

	out, err = e.device.RunCommand(ctx, "dumpsys package "+pkg+" | grep userId")
	if err != nil {
		return 0, err
	}
	if m := dumpsysUIDPattern.FindStringSubmatch(out); m != nil {
		uid, _ := strconv.Atoi(m[1])
		return uid - 10000, nil
	}

	return 0, fmt.Errorf("uid not found for %s", pkg)
}
