package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")

	// Image errors
	ErrImageNotFound   = errors.New("image not found")
	ErrNoUnratedImages = errors.New("no unrated images found")

	// Rating errors
	ErrInvalidScore   = errors.New("score must be either 1 (like) or -1 (dislike)")
	ErrInvalidImageID = errors.New("invalid image id format")
)
