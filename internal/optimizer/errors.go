package optimizer

import "errors"

// Infeasibility errors. The request was well-formed; the data made the
// trip impossible. Detected early, nothing is persisted.
var (
	// ErrNoStoresFound means the radius and chain filters produced an
	// empty candidate store set.
	ErrNoStoresFound = errors.New("no stores found within the requested radius")

	// ErrNoProductsMatched means every list entry failed to resolve to a
	// catalog product. Partial matches are not an error.
	ErrNoProductsMatched = errors.New("could not match any items to catalog products")

	// ErrNoPlansGenerated means matching and pricing succeeded but no
	// strategy produced a feasible assignment.
	ErrNoPlansGenerated = errors.New("could not generate any trip plans")
)

// ErrInvalidRequest reports a malformed request. Index is the offending
// item position, or -1 when the error is not item-scoped.
type ErrInvalidRequest struct {
	Field  string
	Reason string
	Index  int
}

func (e ErrInvalidRequest) Error() string {
	return e.Field + ": " + e.Reason
}

// PersistenceError wraps a failed durable write. Fatal to the trip:
// the trip is not considered created.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persisting " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
