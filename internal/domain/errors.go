package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is against these
// sentinels; the HTTP layer maps them to status codes.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrForbidden     = errors.New("forbidden")
	ErrValidation    = errors.New("validation failed")
	ErrCycleDetected = errors.New("hierarchy cycle detected")
	ErrInternal      = errors.New("internal error")
)

// Named failures layered on the kinds above.
var (
	// ErrBrokenChain means a parent pointer references a tenant that does
	// not exist. It indicates corrupted hierarchy data.
	ErrBrokenChain = fmt.Errorf("%w: broken parent chain", ErrValidation)

	// ErrDuplicateName means a tenant name collides within its scope.
	ErrDuplicateName = fmt.Errorf("%w: duplicate name", ErrValidation)

	// ErrUnknownPermission means a grant referenced a permission key absent
	// from the application registry.
	ErrUnknownPermission = fmt.Errorf("%w: unknown permission key", ErrValidation)

	// ErrParentNotAccessible means the requested parent tenant is outside
	// the acting tenant's accessible set.
	ErrParentNotAccessible = fmt.Errorf("%w: parent tenant not accessible", ErrForbidden)
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Internalf wraps ErrInternal with a formatted message. Repositories use it
// to classify storage failures; the cause goes into the message because
// driver errors are not part of the domain contract.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
