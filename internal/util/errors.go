package util

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrExamUnavailable    = errors.New("exam not found or not available")
	ErrAlreadySubmitted   = errors.New("exam already submitted")
	ErrPersistence        = errors.New("persistence failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("resource not found")
	ErrExamLocked         = errors.New("exam is active and its questions can no longer change")
	ErrUserNotFound       = errors.New("user not found")
	ErrSchoolIDTaken      = errors.New("school id already registered")
)
