package exchangev1

import (
	"errors"
	"fmt"
)

// Gateway-local failures. Both fail fast without touching the network.
var (
	// ErrRateLimitExceeded means the venue's local token bucket had no
	// token available. The caller may retry later.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrCircuitOpen means the venue's circuit breaker is open and calls
	// are short-circuited for the remainder of the cool-down.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrVenueNotRegistered means no adapter is registered for the
	// order's exchange.
	ErrVenueNotRegistered = errors.New("venue not registered")
)

// Kind classifies a venue failure into the neutral taxonomy the rest of the
// pipeline reasons about. Adapters map venue-specific error codes into it.
type Kind string

const (
	// KindTransient covers timeouts, 5xx responses, connection failures
	// and venue-side throttling. Safe to retry: submissions carry the
	// client order id as idempotency key.
	KindTransient Kind = "TRANSIENT"
	// KindRejection is a venue-confirmed refusal. Terminal, never retried.
	KindRejection Kind = "REJECTION"
	// KindDuplicate means the venue already knows the client order id.
	// Resolved by querying status, never by re-submitting.
	KindDuplicate Kind = "DUPLICATE"
	// KindUnknownOrder means the venue has no order for the given id.
	KindUnknownOrder Kind = "UNKNOWN_ORDER"
)

// Error is a venue failure carrying its neutral classification plus the
// venue's own code and message for the audit trail.
type Error struct {
	Kind    Kind
	Venue   string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [%s] %s", e.Venue, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", e.Venue, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransient classifies err as retryable.
func NewTransient(venue, code, message string, err error) *Error {
	return &Error{Kind: KindTransient, Venue: venue, Code: code, Message: message, Err: err}
}

// NewRejection classifies err as a terminal venue refusal.
func NewRejection(venue, code, message string, err error) *Error {
	return &Error{Kind: KindRejection, Venue: venue, Code: code, Message: message, Err: err}
}

// NewDuplicate classifies err as venue-side duplicate detection.
func NewDuplicate(venue, code, message string, err error) *Error {
	return &Error{Kind: KindDuplicate, Venue: venue, Code: code, Message: message, Err: err}
}

// NewUnknownOrder classifies err as an order the venue does not know.
func NewUnknownOrder(venue, code, message string, err error) *Error {
	return &Error{Kind: KindUnknownOrder, Venue: venue, Code: code, Message: message, Err: err}
}

// AsError extracts the taxonomy error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func isKind(err error, kind Kind) bool {
	if e, ok := AsError(err); ok {
		return e.Kind == kind
	}
	return false
}

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool {
	return isKind(err, KindTransient)
}

// IsRejection reports whether err is a venue-confirmed refusal.
func IsRejection(err error) bool {
	return isKind(err, KindRejection)
}

// IsDuplicate reports whether err is venue-side duplicate detection.
func IsDuplicate(err error) bool {
	return isKind(err, KindDuplicate)
}

// IsUnknownOrder reports whether err means the venue has no such order.
func IsUnknownOrder(err error) bool {
	return isKind(err, KindUnknownOrder)
}
