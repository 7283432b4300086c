package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/ratinggame/internal/api/request"
	"github.com/mcoot/ratinggame/internal/api/response"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/ratings"
)

// RatingsHandler handles POST /ratings
type RatingsHandler struct {
	ratings *ratings.Service
	logger  *slog.Logger
}

// NewRatingsHandler creates a new RatingsHandler
func NewRatingsHandler(ratingService *ratings.Service, logger *slog.Logger) *RatingsHandler {
	return &RatingsHandler{ratings: ratingService, logger: logger}
}

// Create records the caller's rating for the image named in the body
func (h *RatingsHandler) Create(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	var req request.CreateRatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rating, err := h.ratings.Rate(r.Context(), identity.SubjectID, req.ImageID, req.Score)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RatingFromModel(rating))
}
