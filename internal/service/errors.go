package service

import "errors"

// Error taxonomy of the auth core. Every value is a recoverable-by-caller
// condition surfaced to the request boundary; anything else that escapes a
// service method is an internal error. ErrAuthentication is deliberately
// uniform: resolving whether an identifier exists, the password is wrong,
// the channel is unverified or the account is suspended must all look the
// same to the caller.
var (
	ErrValidation     = errors.New("invalid input")
	ErrConflict       = errors.New("already registered")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("invalid credentials")
	ErrInvalidCode    = errors.New("invalid or expired code")
	ErrExpiredCode    = errors.New("code has expired")
	ErrTokenRevoked   = errors.New("refresh token has been revoked")
	ErrTokenExpired   = errors.New("refresh token expired")
	ErrForbidden      = errors.New("forbidden")
)
