package errors

import "fmt"

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound     ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited  ErrCode = "RATE_LIMITED"
	ErrCodeCollection   ErrCode = "COLLECTION_ERROR"
	ErrCodeStorage      ErrCode = "STORAGE_ERROR"
	ErrCodePrecondition ErrCode = "PRECONDITION_FAILED"
	ErrCodeBadRequest   ErrCode = "BAD_REQUEST"
	ErrCodeInternal     ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewRateLimitedError creates a new rate limited error. The message carries
// the server hint verbatim so the backoff parser can extract a wait duration.
func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
	}
}

// NewCollectionError wraps a platform failure that interrupted a walk.
// The partial batch accumulated before the failure is still usable.
func NewCollectionError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCollection,
		Message: message,
		Err:     err,
	}
}

// NewStorageError wraps an unreadable or unwritable record. Storage errors
// propagate to the caller and are never retried.
func NewStorageError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeStorage,
		Message: message,
		Err:     err,
	}
}

// NewPreconditionError creates a new precondition failure
func NewPreconditionError(message string) *AppError {
	return &AppError{
		Code:    ErrCodePrecondition,
		Message: message,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

func codeOf(err error) (ErrCode, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code, true
	}
	return "", false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeRateLimited
}

// IsUnauthorized checks if the error is an authentication failure
func IsUnauthorized(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeUnauthorized
}

// IsPrecondition checks if the error is a precondition failure
func IsPrecondition(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodePrecondition
}
