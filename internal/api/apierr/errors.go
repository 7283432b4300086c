package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/auth"
	"github.com/mcoot/ratinggame/internal/services/images"
	"github.com/mcoot/ratinggame/internal/services/security"
	"github.com/mcoot/ratinggame/internal/services/token"
)

// ErrorResponse is the JSON envelope for every error
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeImageNotFound      = "IMAGE_NOT_FOUND"
	CodeNoUnratedImages    = "NO_UNRATED_IMAGES"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Messages shared with the middleware
const (
	MessageNoAuthHeader    = "No authorization header provided"
	MessageInvalidToken    = "Invalid or expired token"
	MessageAdminRequired   = "Admin privileges required"
	MessageTooManyRequests = "Too many requests"
	MessageInternal        = "Internal server error"
)

// httpError combines an HTTP status code with a response body
type httpError struct {
	status int
	body   ErrorResponse
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Error
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Validation
	case errors.Is(err, auth.ErrMissingCredentials):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Username and password are required", CodeValidation}}
	case errors.Is(err, security.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Password must be at least 8 characters and include uppercase, lowercase, number, and special character", CodeValidation}}
	case errors.Is(err, security.ErrShortUsername):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Username must be at least 3 characters", CodeValidation}}
	case errors.Is(err, images.ErrPromptRequired):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Prompt is required", CodeValidation}}
	case errors.Is(err, images.ErrURLRequired):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Image URL is required", CodeValidation}}
	case errors.Is(err, images.ErrFileRequired):
		return &httpError{http.StatusBadRequest, ErrorResponse{"No file uploaded", CodeValidation}}
	case errors.Is(err, images.ErrUnsupportedType):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Invalid file type. Only JPEG and PNG are allowed.", CodeValidation}}
	case errors.Is(err, images.ErrFileTooLarge):
		return &httpError{http.StatusBadRequest, ErrorResponse{"File too large. Maximum size is 5MB.", CodeValidation}}
	case errors.Is(err, model.ErrInvalidScore):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Score must be either 1 (like) or -1 (dislike)", CodeValidation}}
	case errors.Is(err, model.ErrInvalidImageID):
		return &httpError{http.StatusBadRequest, ErrorResponse{"Invalid image ID format", CodeValidation}}

	// Conflict
	case errors.Is(err, model.ErrUsernameTaken):
		return &httpError{http.StatusBadRequest, ErrorResponse{"User with this username already exists", CodeUsernameExists}}

	// Authentication
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, ErrorResponse{"Invalid username or password", CodeInvalidCredentials}}
	case errors.Is(err, token.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, ErrorResponse{MessageInvalidToken, CodeUnauthorized}}

	// Not found
	case errors.Is(err, model.ErrImageNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{"Image not found", CodeImageNotFound}}
	case errors.Is(err, model.ErrNoUnratedImages):
		return &httpError{http.StatusNotFound, ErrorResponse{"No unrated images found", CodeNoUnratedImages}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{"User not found", CodeNotFound}}

	// Rate limited
	case errors.Is(err, auth.ErrLockedOut):
		return &httpError{http.StatusTooManyRequests, ErrorResponse{"Account temporarily locked due to multiple failed attempts. Try again later.", CodeAccountLocked}}

	default:
		return &httpError{http.StatusInternalServerError, ErrorResponse{MessageInternal, CodeInternalError}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, ErrorResponse{message, CodeInvalidRequest}}
}

// NewUnauthorizedError creates an unauthorized error with the given message
func NewUnauthorizedError(message string) error {
	return &httpError{http.StatusUnauthorized, ErrorResponse{message, CodeUnauthorized}}
}

// NewForbiddenError creates a forbidden error with the given message
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, ErrorResponse{message, CodeForbidden}}
}

// NewNotFoundError creates a not found error with the given message
func NewNotFoundError(message string) error {
	return &httpError{http.StatusNotFound, ErrorResponse{message, CodeNotFound}}
}

// NewTooManyRequestsError creates a rate limited error
func NewTooManyRequestsError() error {
	return &httpError{http.StatusTooManyRequests, ErrorResponse{MessageTooManyRequests, CodeRateLimited}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, ErrorResponse{MessageInternal, CodeInternalError}}
}
