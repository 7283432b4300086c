package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/ratinggame/internal/api/apierr"
	"github.com/mcoot/ratinggame/internal/api/request"
	"github.com/mcoot/ratinggame/internal/api/response"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/images"
)

// ItemsHandler handles the /items catalogue endpoints
type ItemsHandler struct {
	images *images.Service
	logger *slog.Logger
}

// NewItemsHandler creates a new ItemsHandler
func NewItemsHandler(imageService *images.Service, logger *slog.Logger) *ItemsHandler {
	return &ItemsHandler{images: imageService, logger: logger}
}

// Create handles POST /items
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	var req request.CreateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	img, err := h.images.Create(r.Context(), identity, req.Prompt, req.File)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ImageFromModel(img, nil))
}

// List handles GET /items. Unparseable paging values fall back to the defaults.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.images.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ImagePageFromPage(result))
}

// Get handles GET /items/{id}
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.ImageID(mux.Vars(r)["id"])

	item, err := h.images.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, itemError(err))
		return
	}

	response.JSON(w, http.StatusOK, response.ImageWithRatingsFromModel(item))
}

// Delete handles DELETE /items/{id}
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	id := model.ImageID(mux.Vars(r)["id"])

	if err := h.images.Delete(r.Context(), identity, id); err != nil {
		writeError(w, r, h.logger, itemError(err))
		return
	}

	response.JSON(w, http.StatusOK, response.Message{Message: "Item deleted"})
}

// itemError words a missing image the way the /items routes report it
func itemError(err error) error {
	if errors.Is(err, model.ErrImageNotFound) {
		return apierr.NewNotFoundError("Item not found")
	}
	return err
}
