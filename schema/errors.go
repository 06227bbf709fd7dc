package schema

import "errors"

// Error taxonomy for the whole migration core. Every raised error wraps one
// of these sentinels (checkable with errors.Is) and carries the offending
// table/field/index/type identifiers in its message.
var (
	// ErrMalformedAction marks a structurally invalid action record.
	ErrMalformedAction = errors.New("malformed action")

	// Create-on-existing.
	ErrDuplicateTable = errors.New("duplicate table")
	ErrDuplicateField = errors.New("duplicate field")
	ErrDuplicateIndex = errors.New("duplicate index")
	ErrDuplicateType  = errors.New("duplicate type")

	// Operate-on-missing.
	ErrUnknownTable = errors.New("unknown table")
	ErrUnknownField = errors.New("unknown field")
	ErrUnknownIndex = errors.New("unknown index")
	ErrUnknownType  = errors.New("unknown type")

	// ErrDanglingForeignKey marks a foreign key whose target table or
	// column does not exist in the resulting schema.
	ErrDanglingForeignKey = errors.New("dangling foreign key")

	// ErrModelValidation marks a structurally invalid declarative model,
	// independent of any migration history.
	ErrModelValidation = errors.New("model validation failed")

	// ErrSourceUnavailable marks unreadable migration-history input.
	ErrSourceUnavailable = errors.New("migration source unavailable")

	// ErrNameConflict marks an identifier collision across kinds.
	ErrNameConflict = errors.New("name conflict")
)
