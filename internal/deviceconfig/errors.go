package deviceconfig

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a configuration value the device cannot accept.
type ValidationError struct {
	Field   string   // Offending field, dotted path (e.g. "wifi.ssid")
	Message string   // Human-readable reason
	Details []string // Additional schema violations, if any
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
