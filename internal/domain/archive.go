package domain

import "time"

// DefaultMaxArchiveVersions is the retention limit per (persona, app)
// pair; the oldest entry is pruned when a write exceeds it.
const DefaultMaxArchiveVersions = 3

// ArchiveEntry is one versioned backup of one (persona, app) pair.
// Entries are never mutated, only superseded by higher versions.
type ArchiveEntry struct {
	PersonaID PersonaID
	App       string
	Version   int
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}
