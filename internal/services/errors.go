package services

import "errors"

var (
	// ErrValidation reports missing or malformed input.
	ErrValidation = errors.New("validation failed")

	ErrDuplicateUser    = errors.New("user already exists")
	ErrAlreadyPurchased = errors.New("course already purchased")

	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password so callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")

	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("course not purchased")
	ErrCourseNotFound = errors.New("course not found")

	// ErrMisconfigured reports server configuration that cannot work, such
	// as an empty signing secret.
	ErrMisconfigured = errors.New("server misconfigured")
)
