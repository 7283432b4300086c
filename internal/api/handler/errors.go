package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/ratinggame/internal/api/apierr"
)

// maxJSONBody caps JSON request bodies
const maxJSONBody = 1 << 20

// writeError logs server-side failures before writing the error response
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	apierr.WriteError(w, err)
}

// decodeJSON decodes the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierr.NewInvalidRequestError("Request body too large")
		}
		return apierr.NewInvalidRequestError("Invalid request body")
	}
	return nil
}
