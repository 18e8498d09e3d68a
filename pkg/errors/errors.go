package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Custom error types for better error handling
var (
	// Authentication errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")

	// Storage errors
	ErrStorageCorrupted = errors.New("stored data corrupted")

	// Note errors
	ErrNoteNotFound = errors.New("note not found")

	// Rate limiting errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// Backup errors
	ErrBackupFailed  = errors.New("backup operation failed")
	ErrRestoreFailed = errors.New("restore operation failed")
)

// Kind classifies an error by its origin.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindServer         Kind = "server"
	KindUnknown        Kind = "unknown"
)

// Severity controls how an error is surfaced to the user.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError wraps errors with a kind and optional HTTP status
type AppError struct {
	Kind    Kind
	Err     error
	Message string
	Status  int
}

func (e *AppError) Error() string {
	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind) + " error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Severity maps the error kind to a display severity. Server errors are
// critical and stay on screen until acknowledged.
func (e *AppError) Severity() Severity {
	switch e.Kind {
	case KindValidation, KindNotFound:
		return SeverityLow
	case KindNetwork:
		return SeverityMedium
	case KindAuthentication, KindAuthorization:
		return SeverityHigh
	case KindServer:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// New creates a new application error
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap wraps an existing error with a kind and message
func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Err: err, Message: message}
}

// ValidationError carries field-level messages resolved client-side
// before any network call is made.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// NewValidationError creates a validation error with field-level details
func NewValidationError(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// FromStatusCode classifies an HTTP response status into a typed error
func FromStatusCode(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return &AppError{Kind: KindAuthentication, Err: ErrInvalidCredentials, Message: message, Status: status}
	case status == http.StatusForbidden:
		return &AppError{Kind: KindAuthorization, Message: message, Status: status}
	case status == http.StatusNotFound:
		return &AppError{Kind: KindNotFound, Err: ErrNoteNotFound, Message: message, Status: status}
	case status == http.StatusUnprocessableEntity:
		return &AppError{Kind: KindValidation, Message: message, Status: status}
	case status >= 500:
		return &AppError{Kind: KindServer, Message: message, Status: status}
	default:
		return &AppError{Kind: KindUnknown, Message: message, Status: status}
	}
}

// KindOf extracts the kind from any error in the chain
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}
	return KindUnknown
}

// SeverityOf extracts the display severity from any error in the chain
func SeverityOf(err error) Severity {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity()
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return SeverityLow
	}
	return SeverityMedium
}

// IsAuthentication reports whether the error indicates invalid or
// expired credentials (a 401 from the server).
func IsAuthentication(err error) bool {
	return KindOf(err) == KindAuthentication
}
