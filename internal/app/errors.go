package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")

	// ErrInvalidSession rejects a query against a missing, foreign or
	// expired session. Distinct from a query that simply finds nothing.
	ErrInvalidSession = errors.New("invalid or expired session")

	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
)
