package storage

import "errors"

// Storage error constants
var (
	// ErrAlertNotFound is returned when an alert is not found
	ErrAlertNotFound = errors.New("alert not found")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrInvestigationNotFound is returned when an investigation is not found
	ErrInvestigationNotFound = errors.New("investigation not found")

	// ErrSOPNotFound is returned when a procedure is not found
	ErrSOPNotFound = errors.New("sop not found")

	// ErrProgressNotFound is returned when no progress record exists for a
	// user/procedure pair
	ErrProgressNotFound = errors.New("sop progress not found")

	// ErrDuplicateSlug is returned when a procedure slug is already taken
	ErrDuplicateSlug = errors.New("sop slug already exists")

	// ErrDuplicateEmail is returned when a user email is already registered
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrNotFound is a generic "not found" error
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation is returned when a database constraint is violated
	ErrConstraintViolation = errors.New("constraint violation")
)
