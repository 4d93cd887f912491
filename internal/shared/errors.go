package shared

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every ledger module. Domain packages wrap these
// sentinels so callers classify failures with errors.Is without depending on
// package-specific sentinels.
var (
	// ErrValidation indicates an unbalanced or malformed mutation attempt.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced entity is missing or outside the caller's organization.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration indicates a required setup record (e.g. a journal type) is missing.
	ErrConfiguration = errors.New("configuration missing")
	// ErrConflict indicates a uniqueness race the caller may retry.
	ErrConflict = errors.New("conflict")
	// ErrTenantRequired indicates the call carried no tenant context.
	ErrTenantRequired = errors.New("tenant context required")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Configurationf wraps ErrConfiguration with a formatted message.
func Configurationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfiguration}, args...)...)
}

// Conflictf wraps ErrConflict with a formatted message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}
