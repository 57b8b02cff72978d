package services

import (
	"errors"

	"github.com/punguzo/mlm_backend/apperrors"
	"github.com/punguzo/mlm_backend/repositories"
)

// lookupErr turns a repository miss into a NotFound error and leaves other errors untouched.
func lookupErr(err error, format string, args ...interface{}) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(format, args...)
	}
	return err
}

// abortErr keeps classified errors as they are and marks anything else as a rolled back mutation.
func abortErr(err error, format string, args ...interface{}) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Aborted(err, format, args...)
}
