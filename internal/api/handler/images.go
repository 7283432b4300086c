package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/ratinggame/internal/api/apierr"
	"github.com/mcoot/ratinggame/internal/api/request"
	"github.com/mcoot/ratinggame/internal/api/response"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/images"
	"github.com/mcoot/ratinggame/internal/services/ratings"
)

// multipartOverhead is the allowance for form fields and part headers on uploads
const multipartOverhead = 1 << 20

// ImagesHandler handles the /images game endpoints and admin uploads
type ImagesHandler struct {
	images  *images.Service
	ratings *ratings.Service
	logger  *slog.Logger
}

// NewImagesHandler creates a new ImagesHandler
func NewImagesHandler(imageService *images.Service, ratingService *ratings.Service, logger *slog.Logger) *ImagesHandler {
	return &ImagesHandler{images: imageService, ratings: ratingService, logger: logger}
}

// Upload handles POST /admin/upload with a multipart "file" and "prompt"
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(images.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, h.logger, images.ErrFileTooLarge)
			return
		}
		writeError(w, r, h.logger, apierr.NewInvalidRequestError("Invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, r, h.logger, images.ErrFileRequired)
			return
		}
		writeError(w, r, h.logger, apierr.NewInvalidRequestError("Invalid multipart form"))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxUploadSize+1))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	img, err := h.images.Upload(r.Context(), identity, r.FormValue("prompt"),
		header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.UploadResponse{
		Message: "Image uploaded successfully",
		Image:   response.ImageFromModel(img, nil),
	})
}

// Rate handles POST /images/rate/{id}
func (h *ImagesHandler) Rate(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	var req request.RateImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rating, err := h.ratings.Rate(r.Context(), identity.SubjectID, mux.Vars(r)["id"], req.Score)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RateResponse{
		Message: "Rated successfully",
		Rating:  response.RatingFromModel(rating),
	})
}

// Random handles GET /images/random, returning the newest image the caller has not rated
func (h *ImagesHandler) Random(w http.ResponseWriter, r *http.Request, identity model.Identity) {
	img, err := h.images.NextUnrated(r.Context(), identity.SubjectID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ImageFromModel(img, nil))
}

// All handles GET /images/all
func (h *ImagesHandler) All(w http.ResponseWriter, r *http.Request) {
	urls, err := h.images.AllURLs(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, urls)
}

// Median handles GET /images/median
func (h *ImagesHandler) Median(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	median, err := h.ratings.Median(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MedianResponse{Median: median})
}

// Stats handles GET /images/{id}/ratings
func (h *ImagesHandler) Stats(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	stats, err := h.ratings.Stats(r.Context(), model.ImageID(mux.Vars(r)["id"]))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatsFromService(stats))
}
