/* errors.go
 * Contains the error taxonomy for the settlement core. Validation and
 * integrity errors are always surfaced to the caller, never swallowed;
 * external-service errors fail only the request that hit them.
 */

package shared

import "fmt"

// ValidationError rejects malformed input (bad bracket prediction, bet
// after lockout, unknown participant). No state is mutated when one of
// these is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field
func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TimeoutError marks a randomness request that was never fulfilled within
// the maximum resolution delay
type TimeoutError struct {
	RequestID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("randomness request %s timed out before fulfillment", e.RequestID)
}

// IntegrityError reports a hash or signature mismatch in an audit chain.
// These are never auto-repaired; the chain is reported as broken from the
// offending position onward.
type IntegrityError struct {
	Category string
	Position int
	Reason   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure in %s chain at entry %d: %s", e.Category, e.Position, e.Reason)
}

// ExternalServiceError wraps a failure from an external collaborator
// (oracle submission, pool settlement). It fails the specific operation
// only and carries the underlying cause.
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
