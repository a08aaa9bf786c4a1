package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrUnauthenticated is returned when an operation runs without a
	// session user. It is never retried automatically; the caller must
	// re-authenticate.
	ErrUnauthenticated = errors.New("no authenticated user")

	// ErrNotFound is returned when the target row is absent at the store.
	// Deletes treat it as the desired end state; updates surface it.
	ErrNotFound = errors.New("not found")

	// ErrInviteUnsupported is the fixed outcome of the member-invite
	// operation. The store contract has no verified user-lookup-by-email
	// primitive yet, so the engine refuses up front instead of inserting
	// a membership it cannot attribute.
	ErrInviteUnsupported = errors.New("member invitations are not available yet: user lookup by email is not part of the store contract")
)

// ValidationError reports an empty or whitespace-only required field. It is
// raised before any store call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransientError wraps a transport or timeout failure. The operation is safe
// for the caller to re-invoke; the core never retries on its own.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient store failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// GatewayError is the catch-all for store failures that map to no other
// kind. The backend message is kept intact for diagnostics.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// PartialFailureError reports a project create whose owner-membership insert
// failed and whose compensating project delete also failed, leaving an
// ownerless project behind. Created names the orphan so it can be cleaned up
// by hand.
type PartialFailureError struct {
	Created string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("project %s created without owner membership: %v", e.Created, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
