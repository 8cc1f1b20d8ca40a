// Package common defines sentinel errors and shared constants used across
// the account service layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrInternal             = errors.New("internal error")
	ErrValidation           = errors.New("validation error")
	ErrWeakPassword         = errors.New("password does not satisfy the password policy")
	ErrAuthenticationFailed = errors.New("no active account found with the given credentials")
	ErrAccountNotActive     = errors.New("account is not active, verify your account first")
	ErrInvalidCredentials   = errors.New("old password is incorrect")
	ErrPreconditionFailed   = errors.New("operation not allowed in the current account state")

	// Token errors.
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSecretTooShort  = errors.New("secret key must be at least 32 bytes")
)
