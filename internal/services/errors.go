// Package services implements the application and financial-section use
// cases on top of the store ports.
package services

import "errors"

var (
	ErrInvalidID    = errors.New("invalid id")
	ErrNotFound     = errors.New("application not found")
	ErrNotDraft     = errors.New("application is not a draft")
	ErrUserNotFound = errors.New("user not found")
)
