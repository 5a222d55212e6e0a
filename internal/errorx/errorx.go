package errorx

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a failure returned by the catalog, booking and account services
type Kind string

const (
	KindValidation        Kind = "validation"
	KindAuthorization     Kind = "authorization"
	KindSelfBooking       Kind = "self_booking"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
	KindDataIntegrity     Kind = "data_integrity"
)

// Error is a tagged failure. The presentation layer decides how to render it.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// without comparing messages. A self-booking failure is also an authorization failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindSelfBooking && t.Kind == KindAuthorization
}

// Sentinels for errors.Is
var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrAuthorization     = &Error{Kind: KindAuthorization, Message: "not allowed"}
	ErrSelfBooking       = &Error{Kind: KindSelfBooking, Message: "landlords cannot book their own units"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid booking transition"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrDataIntegrity     = &Error{Kind: KindDataIntegrity, Message: "data integrity violation"}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input
func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

// Authorization reports an actor lacking role or ownership
func Authorization(format string, args ...any) error {
	return newf(KindAuthorization, format, args...)
}

// SelfBooking reports a landlord trying to book one of their own units
func SelfBooking(format string, args ...any) error {
	return newf(KindSelfBooking, format, args...)
}

// InvalidTransition reports a booking that is already terminal or lost a race
func InvalidTransition(format string, args ...any) error {
	return newf(KindInvalidTransition, format, args...)
}

// NotFound reports a missing property, unit, booking or identity
func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

// DataIntegrity reports a broken invariant. It should never happen.
func DataIntegrity(format string, args ...any) error {
	return newf(KindDataIntegrity, format, args...)
}

// FromStore converts gorm.ErrRecordNotFound into a NotFound error and wraps
// anything else with the given context.
func FromStore(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Message: msg + " not found"}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// KindOf returns the kind of a tagged error, or "" for untagged errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization, KindSelfBooking:
		return http.StatusForbidden
	case KindInvalidTransition:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindInternal labels untagged failures in responses
const KindInternal Kind = "internal"

// Describe returns the kind and caller-facing message of err. Untagged errors
// are reported as internal without their detail.
func Describe(err error) (Kind, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, e.Message
	}
	return KindInternal, "internal server error"
}
