package services

import (
	apperrors "github.com/hassan-nahid/school-of-music-server/errors"
)

// ServiceError represents a typed error with an HTTP status code. Settlement failures
// also carry the steps that were committed and the steps that were undone.
type ServiceError struct {
	StatusCode       int
	Kind             apperrors.Kind
	Message          string
	Err              error
	CommittedSteps   []string
	CompensatedSteps []string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(kind apperrors.Kind, message string, err error) *ServiceError {
	return &ServiceError{
		StatusCode: apperrors.StatusFor(kind),
		Kind:       kind,
		Message:    message,
		Err:        err,
	}
}

func validationError(message string, err error) *ServiceError {
	return newServiceError(apperrors.KindValidation, message, err)
}

func forbiddenError(message string) *ServiceError {
	return newServiceError(apperrors.KindForbidden, message, nil)
}

func notFoundError(message string) *ServiceError {
	return newServiceError(apperrors.KindNotFound, message, nil)
}

func conflictError(message string, err error) *ServiceError {
	return newServiceError(apperrors.KindConflict, message, err)
}

func storeError(message string, err error) *ServiceError {
	return newServiceError(apperrors.KindStoreFailure, message, err)
}

func internalError(message string, err error) *ServiceError {
	return newServiceError(apperrors.KindInternal, message, err)
}
