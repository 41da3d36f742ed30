package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryExists     = errors.New("category already exists")
	ErrCategoryInUse      = errors.New("category still has expenses")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTOTPRequired       = errors.New("2FA code required")
	ErrInvalidTOTP        = errors.New("invalid 2FA code")
	ErrTOTPNotSetUp       = errors.New("2FA has not been set up")
	ErrMailDisabled       = errors.New("smtp is not configured")
)
