package ports

import (
	"context"
	"io"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

// ArchiveStore is the per-(persona, app) versioned backup store. Writes
// to the same pair must be serialized by the caller; the pool manager's
// exclusivity over a checked-out persona provides that for free.
type ArchiveStore interface {
	// Write stores a new entry from an uncompressed tar stream, assigns
	// the next version number and prunes entries beyond the retention
	// limit for the pair.
	Write(ctx context.Context, personaID domain.PersonaID, app string, r io.Reader) (domain.ArchiveEntry, error)

	// Latest returns the highest-version entry for the pair, or
	// domain.ErrArchiveEntryNotFound.
	Latest(ctx context.Context, personaID domain.PersonaID, app string) (domain.ArchiveEntry, error)

	List(ctx context.Context, personaID domain.PersonaID, app string) ([]domain.ArchiveEntry, error)

	// Open returns the entry's content as an uncompressed tar stream.
	Open(ctx context.Context, entry domain.ArchiveEntry) (io.ReadCloser, error)
}
