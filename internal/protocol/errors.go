package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// UnauthorizedMessage is returned whenever a request lacks a valid pairing.
const UnauthorizedMessage = "To connect use /pair endpoint and pairing button on the device."

// ErrorType represents the category of a request handling failure
type ErrorType int

const (
	// ErrTypeMalformedRequest indicates a missing method/route delimiter or header terminator
	ErrTypeMalformedRequest ErrorType = iota
	// ErrTypeRouteNotFound indicates no route matched
	ErrTypeRouteNotFound
	// ErrTypeUnauthorized indicates a missing or unknown pairing id, or a closed pairing window
	ErrTypeUnauthorized
	// ErrTypeInvalidPairingSecret indicates a confirm with an unknown or expired candidate
	ErrTypeInvalidPairingSecret
	// ErrTypeBodyDeserialization indicates a body that is not valid JSON where JSON is required
	ErrTypeBodyDeserialization
	// ErrTypeValidation indicates a well-formed body with unacceptable values
	ErrTypeValidation
	// ErrTypeStorageFull indicates a bounded store has no room left
	ErrTypeStorageFull
	// ErrTypeStorageCorruption indicates persisted bytes that failed to decode
	ErrTypeStorageCorruption
	// ErrTypeSensorRead indicates a failed or invalid physical reading
	ErrTypeSensorRead
	// ErrTypeInternal indicates an unexpected failure
	ErrTypeInternal
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeMalformedRequest:
		return "Malformed Request"
	case ErrTypeRouteNotFound:
		return "Route Not Found"
	case ErrTypeUnauthorized:
		return "Unauthorized"
	case ErrTypeInvalidPairingSecret:
		return "Invalid Pairing Secret"
	case ErrTypeBodyDeserialization:
		return "Body Deserialization Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeStorageFull:
		return "Storage Full"
	case ErrTypeStorageCorruption:
		return "Storage Corruption"
	case ErrTypeSensorRead:
		return "Sensor Read Failure"
	case ErrTypeInternal:
		return "Internal Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Status maps the error type onto the response status code.
func (et ErrorType) Status() int {
	switch et {
	case ErrTypeRouteNotFound:
		return http.StatusNotFound
	case ErrTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrTypeMalformedRequest, ErrTypeInvalidPairingSecret,
		ErrTypeBodyDeserialization, ErrTypeValidation, ErrTypeStorageFull:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized request handling failure
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Message placed in the response body
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the response status code for this error
func (e *Error) Status() int {
	return e.Type.Status()
}

// NewMalformedRequestError creates a parse failure
func NewMalformedRequestError(message string) *Error {
	return &Error{Type: ErrTypeMalformedRequest, Message: message}
}

// NewRouteNotFoundError creates the not-found error
func NewRouteNotFoundError() *Error {
	return &Error{Type: ErrTypeRouteNotFound, Message: "Not found"}
}

// NewUnauthorizedError creates an authorization failure carrying the pairing instructions
func NewUnauthorizedError() *Error {
	return &Error{Type: ErrTypeUnauthorized, Message: UnauthorizedMessage}
}

// NewInvalidPairingSecretError creates a confirm failure for an unknown candidate
func NewInvalidPairingSecretError() *Error {
	return &Error{Type: ErrTypeInvalidPairingSecret, Message: "Invalid pairing id"}
}

// NewBodyDeserializationError wraps a JSON decoding failure
func NewBodyDeserializationError(err error) *Error {
	return &Error{Type: ErrTypeBodyDeserialization, Message: "Invalid JSON body", Err: err}
}

// NewValidationError creates a validation error
func NewValidationError(message string, err error) *Error {
	return &Error{Type: ErrTypeValidation, Message: message, Err: err}
}

// NewStorageFullError creates a capacity error
func NewStorageFullError(message string) *Error {
	return &Error{Type: ErrTypeStorageFull, Message: message}
}

// NewStorageCorruptionError wraps a decode failure of persisted bytes
func NewStorageCorruptionError(namespace string, err error) *Error {
	return &Error{Type: ErrTypeStorageCorruption, Message: fmt.Sprintf("corrupt record in namespace %q", namespace), Err: err}
}

// NewSensorReadError wraps a failed physical reading
func NewSensorReadError(err error) *Error {
	return &Error{Type: ErrTypeSensorRead, Message: "Sensor read failed", Err: err}
}

// NewInternalError wraps an unexpected failure
func NewInternalError(message string, err error) *Error {
	return &Error{Type: ErrTypeInternal, Message: message, Err: err}
}

// TypeOf extracts the ErrorType from err, defaulting to ErrTypeInternal.
func TypeOf(err error) ErrorType {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Type
	}
	return ErrTypeInternal
}

// IsMalformedRequest checks if an error is a parse failure
func IsMalformedRequest(err error) bool {
	return err != nil && TypeOf(err) == ErrTypeMalformedRequest
}

// IsUnauthorized checks if an error is an authorization failure
func IsUnauthorized(err error) bool {
	return err != nil && TypeOf(err) == ErrTypeUnauthorized
}

// IsInvalidPairingSecret checks if an error is an unknown candidate failure
func IsInvalidPairingSecret(err error) bool {
	return err != nil && TypeOf(err) == ErrTypeInvalidPairingSecret
}

// IsBodyDeserialization checks if an error is a JSON decoding failure
func IsBodyDeserialization(err error) bool {
	return err != nil && TypeOf(err) == ErrTypeBodyDeserialization
}

// IsStorageFull checks if an error is a capacity failure
func IsStorageFull(err error) bool {
	return err != nil && TypeOf(err) == ErrTypeStorageFull
}
