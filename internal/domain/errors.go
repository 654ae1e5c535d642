package domain

import "errors"

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoEligiblePersona is a normal negative checkout result, not a
	// fault: no idle persona matched the constraints right now.
	ErrNoEligiblePersona = errors.New("no eligible persona available")

	// ErrInvalidCheckin signals a double checkin or a checkin on an
	// unknown handle. It is a programming error and is never swallowed.
	ErrInvalidCheckin = errors.New("invalid checkin: handle unknown or already closed")

	ErrPersonaNotBanned = errors.New("persona is not banned")

	ErrArchiveEntryNotFound = errors.New("archive entry not found")

	// ErrArchiveCorrupt marks an extraction failure on an existing
	// archive entry. It is fatal: falling back to a cold start here
	// would silently discard the persona's accumulated state.
	ErrArchiveCorrupt = errors.New("archive entry corrupt")

	ErrDeviceUnreachable = errors.New("device unreachable")

	ErrUnknownApp = errors.New("unknown app profile")
)
