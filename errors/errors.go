package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error independently of its transport.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindStoreFailure    Kind = "store_failure"
	KindInternal        Kind = "internal"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two application errors by kind, so errors.Is(err, ErrForbidden) works on wrapped copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error of the given kind
func New(kind Kind, message string, err error) *Error {
	return &Error{
		Code:    StatusFor(kind),
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Common error types
var (
	ErrUnauthorized = New(KindUnauthenticated, "unauthorized access", nil)
	ErrForbidden    = New(KindForbidden, "forbidden access", nil)
	ErrNotFound     = New(KindNotFound, "Not found", nil)
	ErrValidation   = New(KindValidation, "Validation error", nil)
	ErrConflict     = New(KindConflict, "Conflict", nil)
	ErrStore        = New(KindStoreFailure, "Database query error", nil)
	ErrInternal     = New(KindInternal, "Internal server error", nil)
)

// Unauthorized builds a 401 error with a custom message.
func Unauthorized(message string) *Error { return New(KindUnauthenticated, message, nil) }

// Forbidden builds a 403 error with a custom message.
func Forbidden(message string) *Error { return New(KindForbidden, message, nil) }

// Validation builds a 400 error wrapping the offending cause.
func Validation(message string, err error) *Error { return New(KindValidation, message, err) }

// NotFound builds a 404 error.
func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

// Conflict builds a 409 error.
func Conflict(message string, err error) *Error { return New(KindConflict, message, err) }

// Store wraps a persistence failure.
func Store(message string, err error) *Error { return New(KindStoreFailure, message, err) }

// From converts any error into an *Error, defaulting to an internal error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return New(KindInternal, ErrInternal.Message, err)
}

// Abort writes the error as {"error": true, "message": ...} and stops the gin chain.
func Abort(c *gin.Context, err error) {
	appErr := From(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": true, "message": appErr.Message})
}

// ErrorMiddleware renders the last error attached to the gin context.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := From(c.Errors.Last().Err)
			c.JSON(appErr.Code, gin.H{"error": true, "message": appErr.Message})
			c.Abort()
		}
	}
}
