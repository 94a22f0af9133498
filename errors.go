package rootscan

import "errors"

// Error kinds from spec.md §7. Invalid-input and unsupported-construct
// errors abort ingestion; resolution-miss and location-unevaluable are
// not represented as errors at all — they are recovered locally by
// skipping the offending frame or variable (see resolve.go).
var (
	// ErrInvalidInput covers a required attribute missing where spec.md
	// demands one: a function with no low-PC, an array with no
	// upper-bound, a struct field with no data-member-location.
	ErrInvalidInput = errors.New("rootscan: invalid input")

	// ErrUnsupportedConstruct covers a debug-info shape this scanner
	// does not interpret: a base-address-selection (or other
	// unrecognized) ranges entry, a negative struct-member offset, or a
	// member-offset location expression other than a bare plus_uconst.
	// A variable location expression outside the two forms spec.md §4.5
	// defines is not an error: it is logged and skipped at resolve time.
	ErrUnsupportedConstruct = errors.New("rootscan: unsupported construct")

	// ErrStructuralIntegrity covers a debug-info tree that violates a
	// Context invariant: two functions with overlapping PC ranges, or a
	// top-level entry whose tag this ingester does not recognize at
	// all.
	ErrStructuralIntegrity = errors.New("rootscan: structural integrity violation")
)
