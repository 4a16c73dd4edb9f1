package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// User and profile errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrProfileIncomplete = errors.New("profile incomplete")
)

// Membership errors
var (
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrPurchaseNotAllowed   = errors.New("purchase not allowed in current state")
	ErrNoActiveYear         = errors.New("no active association year")
	ErrMembershipNotPending = errors.New("membership not pending")
)

// Card number errors
var (
	ErrRangeNotFound = errors.New("card number range not found")
	ErrRangeInUse    = errors.New("card number range has assigned numbers")
	ErrInvalidRange  = errors.New("invalid card number range")
)
