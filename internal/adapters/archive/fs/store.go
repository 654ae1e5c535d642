// Package fs stores persona app backups as gzip-compressed tar archives
// on the local filesystem, one directory per (persona, app) pair with
// monotonically increasing version numbers.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

var archiveNamePattern = regexp.MustCompile(`^backup_v(\d+)\.tar\.gz$`)

const (
	archiveDirMode  = 0o700
	archiveFileMode = 0o600
)

type Store struct {
	root        string
	maxVersions int
}

var _ ports.ArchiveStore = (*Store)(nil)

func NewStore(root string, maxVersions int) (*Store, error) {
	if root == "" {
		return nil, errors.New("archive root is empty")
	}
	if maxVersions <= 0 {
		maxVersions = domain.DefaultMaxArchiveVersions
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve archive root: %w", err)
	}

	return &Store{root: filepath.Clean(absRoot), maxVersions: maxVersions}, nil
}

func (s *Store) pairDir(personaID domain.PersonaID, app string) string {
	return filepath.Join(s.root, string(personaID), app)
}

// Write compresses the tar stream into backup_v<N>.tar.gz where N is one
// above the highest existing version. Version numbers keep growing after
// pruning so a restored entry is always the newest by number.
func (s *Store) Write(ctx context.Context, personaID domain.PersonaID, app string, r io.Reader) (domain.ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArchiveEntry{}, err
	}

	dir := s.pairDir(personaID, app)
	if err := os.MkdirAll(dir, archiveDirMode); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("create archive directory: %w", err)
	}

	entries, err := s.scan(personaID, app)
	if err != nil {
		return domain.ArchiveEntry{}, err
	}

	version := 1
	if len(entries) > 0 {
		version = entries[len(entries)-1].Version + 1
	}

	finalPath := filepath.Join(dir, fmt.Sprintf("backup_v%d.tar.gz", version))

	tempFile, err := os.CreateTemp(dir, ".backup-*.tar.gz.tmp")
	if err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("create temp archive: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	gzw := gzip.NewWriter(tempFile)
	if _, err := io.Copy(gzw, r); err != nil {
		_ = gzw.Close()
		_ = tempFile.Close()
		return domain.ArchiveEntry{}, fmt.Errorf("compress archive: %w", err)
	}
	if err := gzw.Close(); err != nil {
		_ = tempFile.Close()
		return domain.ArchiveEntry{}, fmt.Errorf("finish archive: %w", err)
	}
	if err := tempFile.Chmod(archiveFileMode); err != nil {
		_ = tempFile.Close()
		return domain.ArchiveEntry{}, fmt.Errorf("chmod temp archive: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("close temp archive: %w", err)
	}
	if err := os.Rename(tempName, finalPath); err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("replace archive: %w", err)
	}
	cleanup = false

	info, err := os.Stat(finalPath)
	if err != nil {
		return domain.ArchiveEntry{}, fmt.Errorf("stat archive: %w", err)
	}

	entry := domain.ArchiveEntry{
		PersonaID: personaID,
		App:       app,
		Version:   version,
		Path:      finalPath,
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
	}

	entries = append(entries, entry)
	if err := s.prune(entries); err != nil {
		return domain.ArchiveEntry{}, err
	}

	return entry, nil
}

func (s *Store) Latest(ctx context.Context, personaID domain.PersonaID, app string) (domain.ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArchiveEntry{}, err
	}

	entries, err := s.scan(personaID, app)
	if err != nil {
		return domain.ArchiveEntry{}, err
	}
	if len(entries) == 0 {
		return domain.ArchiveEntry{}, domain.ErrArchiveEntryNotFound
	}

	return entries[len(entries)-1], nil
}

func (s *Store) List(ctx context.Context, personaID domain.PersonaID, app string) ([]domain.ArchiveEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.scan(personaID, app)
}

// Open decompresses the entry. A gzip header or checksum failure means
// the archive is unusable, which maps to domain.ErrArchiveCorrupt so the
// transfer engine treats it as fatal rather than a cold start.
func (s *Store) Open(ctx context.Context, entry domain.ArchiveEntry) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(entry.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrArchiveEntryNotFound
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}

	gzr, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}

	return &gzipReadCloser{gzr: gzr, file: file}, nil
}

type gzipReadCloser struct {
	gzr  *gzip.Reader
	file *os.File
}

func (rc *gzipReadCloser) Read(p []byte) (int, error) {
	n, err := rc.gzr.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}
	return n, err
}

func (rc *gzipReadCloser) Close() error {
	gzErr := rc.gzr.Close()
	fileErr := rc.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// scan returns the pair's entries sorted by version ascending.
func (s *Store) scan(personaID domain.PersonaID, app string) ([]domain.ArchiveEntry, error) {
	dir := s.pairDir(personaID, app)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive directory: %w", err)
	}

	var entries []domain.ArchiveEntry
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		match := archiveNamePattern.FindStringSubmatch(dirEntry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		info, err := dirEntry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat archive %s: %w", dirEntry.Name(), err)
		}

		entries = append(entries, domain.ArchiveEntry{
			PersonaID: personaID,
			App:       app,
			Version:   version,
			Path:      filepath.Join(dir, dirEntry.Name()),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Version < entries[j].Version
	})

	return entries, nil
}

func (s *Store) prune(entries []domain.ArchiveEntry) error {
	for len(entries) > s.maxVersions {
		oldest := entries[0]
		if err := os.Remove(oldest.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("prune archive v%d: %w", oldest.Version, err)
		}
		entries = entries[1:]
	}
	return nil
}
