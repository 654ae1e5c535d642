package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memPersonaRepo struct {
	mu       sync.Mutex
	personas map[domain.PersonaID]domain.Persona
	saveErr  error
}

var _ ports.PersonaRepository = (*memPersonaRepo)(nil)

func newMemPersonaRepo(personas ...domain.Persona) *memPersonaRepo {
	repo := &memPersonaRepo{personas: map[domain.PersonaID]domain.Persona{}}
	for _, persona := range personas {
		repo.personas[persona.ID] = persona
	}
	return repo
}

func (r *memPersonaRepo) GetByID(_ context.Context, id domain.PersonaID) (domain.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	persona, ok := r.personas[id]
	if !ok {
		return domain.Persona{}, domain.ErrPersonaNotFound
	}
	return persona, nil
}

func (r *memPersonaRepo) List(_ context.Context, filter ports.PersonaFilter) ([]domain.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Persona
	for _, persona := range r.personas {
		if filter.Status != "" && persona.Status != filter.Status {
			continue
		}
		if persona.TrustScore < filter.MinTrust {
			continue
		}
		out = append(out, persona)
	}
	return out, nil
}

func (r *memPersonaRepo) Save(_ context.Context, persona domain.Persona) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.personas[persona.ID] = persona
	return nil
}

func (r *memPersonaRepo) ClaimEligible(_ context.Context, claim ports.ClaimConstraints) (domain.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best domain.Persona
	found := false
	for _, persona := range r.personas {
		if !persona.EligibleAt(claim.Now, claim.MinTrust, claim.Tag) {
			continue
		}
		if !found || persona.TrustScore > best.TrustScore {
			best = persona
			found = true
		}
	}

	if !found {
		return domain.Persona{}, domain.ErrNoEligiblePersona
	}

	best.MarkActive(claim.Now)
	r.personas[best.ID] = best
	return best, nil
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
	saveErr  error
}

var _ ports.SessionRepository = (*memSessionRepo)(nil)

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[domain.SessionID]domain.Session{}}
}

func (r *memSessionRepo) GetByID(_ context.Context, id domain.SessionID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *memSessionRepo) ListByPersona(_ context.Context, personaID domain.PersonaID, limit int) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Session
	for _, session := range r.sessions {
		if session.PersonaID == personaID {
			out = append(out, session)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSessionRepo) Save(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.sessions[session.ID] = session
	return nil
}

type archiveKey struct {
	personaID domain.PersonaID
	app       string
}

type memArchiveStore struct {
	mu       sync.Mutex
	blobs    map[archiveKey][][]byte
	writeErr error
	openErr  error
}

var _ ports.ArchiveStore = (*memArchiveStore)(nil)

func newMemArchiveStore() *memArchiveStore {
	return &memArchiveStore{blobs: map[archiveKey][][]byte{}}
}

func (s *memArchiveStore) seed(personaID domain.PersonaID, app string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := archiveKey{personaID: personaID, app: app}
	s.blobs[key] = append(s.blobs[key], content)
}

func (s *memArchiveStore) Write(_ context.Context, personaID domain.PersonaID, app string, r io.Reader) (domain.ArchiveEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return domain.ArchiveEntry{}, s.writeErr
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return domain.ArchiveEntry{}, err
	}

	key := archiveKey{personaID: personaID, app: app}
	s.blobs[key] = append(s.blobs[key], content)

	return domain.ArchiveEntry{
		PersonaID: personaID,
		App:       app,
		Version:   len(s.blobs[key]),
		SizeBytes: int64(len(content)),
	}, nil
}

func (s *memArchiveStore) Latest(_ context.Context, personaID domain.PersonaID, app string) (domain.ArchiveEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := archiveKey{personaID: personaID, app: app}
	versions := s.blobs[key]
	if len(versions) == 0 {
		return domain.ArchiveEntry{}, domain.ErrArchiveEntryNotFound
	}

	return domain.ArchiveEntry{
		PersonaID: personaID,
		App:       app,
		Version:   len(versions),
		SizeBytes: int64(len(versions[len(versions)-1])),
	}, nil
}

func (s *memArchiveStore) List(_ context.Context, personaID domain.PersonaID, app string) ([]domain.ArchiveEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := archiveKey{personaID: personaID, app: app}
	entries := make([]domain.ArchiveEntry, 0, len(s.blobs[key]))
	for i, blob := range s.blobs[key] {
		entries = append(entries, domain.ArchiveEntry{
			PersonaID: personaID,
			App:       app,
			Version:   i + 1,
			SizeBytes: int64(len(blob)),
		})
	}
	return entries, nil
}

func (s *memArchiveStore) Open(_ context.Context, entry domain.ArchiveEntry) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openErr != nil {
		return nil, s.openErr
	}

	key := archiveKey{personaID: entry.PersonaID, app: entry.App}
	versions := s.blobs[key]
	if entry.Version < 1 || entry.Version > len(versions) {
		return nil, domain.ErrArchiveEntryNotFound
	}

	return io.NopCloser(bytes.NewReader(versions[entry.Version-1])), nil
}

// fakeDevice replays scripted responses keyed by command substring and
// records every call in order.
type fakeDevice struct {
	mu        sync.Mutex
	responses map[string]string
	failOn    map[string]error
	calls     []string
}

var _ ports.DeviceChannel = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		responses: map[string]string{
			"pm clear":            "Success",
			"settings get secure": "", // overridden per test
			"am broadcast":        "Broadcast completed: result=0",
			"cmd package list":    "package:com.nhn.android.search uid:10234",
			"am start":            "Starting: Intent",
			"su -c 'test -e":      "exists",
			"su -c 'tar":          "",
			"settings put secure": "",
			"am force-stop":       "",
			"rm -f":               "",
			"dumpsys package":     "userId=10234",
			"su -c 'chown":        "",
		},
	}
}

func (d *fakeDevice) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) callLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDevice) callsMatching(substr string) []string {
	var out []string
	for _, call := range d.callLog() {
		if strings.Contains(call, substr) {
			out = append(out, call)
		}
	}
	return out
}

func (d *fakeDevice) setResponse(substr, out string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[substr] = out
}

func (d *fakeDevice) failCommand(substr string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn == nil {
		d.failOn = map[string]error{}
	}
	d.failOn[substr] = err
}

func (d *fakeDevice) SendInput(ctx context.Context, event ports.InputEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record(fmt.Sprintf("input %s", event.Kind))
	return nil
}

func (d *fakeDevice) RunCommand(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.record(cmd)

	d.mu.Lock()
	defer d.mu.Unlock()

	for substr, err := range d.failOn {
		if strings.Contains(cmd, substr) {
			return "", err
		}
	}
	for substr, out := range d.responses {
		if strings.Contains(cmd, substr) {
			return out, nil
		}
	}
	return "", nil
}

func (d *fakeDevice) PushFile(ctx context.Context, local, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record("push " + remote)
	return nil
}

func (d *fakeDevice) PullFile(ctx context.Context, remote, local string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.record("pull " + remote)
	return nil
}

func (d *fakeDevice) ReadProperty(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.record("getprop " + key)
	return "", nil
}
