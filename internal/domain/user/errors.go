package user

import "errors"

var (
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrBusinessIDRequired      = errors.New("business ID is required")
	ErrUserIDRequired          = errors.New("user ID is required")
	ErrManagerAccessRequired   = errors.New("manager access required")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
)
