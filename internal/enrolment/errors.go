package enrolment

import "errors"

var (
	ErrAlreadyActive     = errors.New("an active enrolment already exists")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrNotFound          = errors.New("enrolment not found")
	ErrInvalidTransition = errors.New("invalid enrolment transition")
	ErrInvalidTerms      = errors.New("agreed fee must not be negative")
)
