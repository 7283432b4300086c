package response

import (
	"time"

	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/images"
	"github.com/mcoot/ratinggame/internal/services/ratings"
)

// Rating represents a rating in API responses
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ImageID   string    `json:"imageId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingFromModel converts a model.Rating
func RatingFromModel(r *model.Rating) Rating {
	return Rating{
		ID:        r.ID,
		UserID:    string(r.UserID),
		ImageID:   string(r.ImageID),
		Score:     r.Score,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Image represents an image and its ratings in API responses
type Image struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Prompt       string    `json:"prompt"`
	UploadedByID string    `json:"uploadedById"`
	CreatedAt    time.Time `json:"createdAt"`
	Ratings      []Rating  `json:"ratings"`
}

// ImageFromModel converts a model.Image; ratings may be nil
func ImageFromModel(img *model.Image, rs []model.Rating) Image {
	out := Image{
		ID:           string(img.ID),
		URL:          img.URL,
		Prompt:       img.Prompt,
		UploadedByID: string(img.UploadedByID),
		CreatedAt:    img.CreatedAt,
		Ratings:      make([]Rating, len(rs)),
	}
	for i := range rs {
		out.Ratings[i] = RatingFromModel(&rs[i])
	}
	return out
}

// ImageWithRatingsFromModel converts a model.ImageWithRatings
func ImageWithRatingsFromModel(iwr *model.ImageWithRatings) Image {
	return ImageFromModel(&iwr.Image, iwr.Ratings)
}

// ImagePage is the response for GET /items
type ImagePage struct {
	Items       []Image `json:"items"`
	TotalCount  int     `json:"totalCount"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
}

// ImagePageFromPage converts an images.Page
func ImagePageFromPage(p *images.Page) ImagePage {
	items := make([]Image, len(p.Items))
	for i := range p.Items {
		items[i] = ImageWithRatingsFromModel(&p.Items[i])
	}
	return ImagePage{
		Items:       items,
		TotalCount:  p.TotalCount,
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
	}
}

// Message is a response carrying only a human readable message
type Message struct {
	Message string `json:"message"`
}

// RegisterResponse is the response for a successful registration
type RegisterResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// LoginResponse is the response for a successful login
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// UploadResponse is the response for an uploaded image
type UploadResponse struct {
	Message string `json:"message"`
	Image   Image  `json:"image"`
}

// RateResponse is the response for POST /images/rate/{id}
type RateResponse struct {
	Message string `json:"message"`
	Rating  Rating `json:"rating"`
}

// MedianResponse is the response for GET /images/median
type MedianResponse struct {
	Median float64 `json:"median"`
}

// StatsResponse is the per-image rating summary
type StatsResponse struct {
	LikeCount      int     `json:"likeCount"`
	DislikeCount   int     `json:"dislikeCount"`
	LikePercentage float64 `json:"likePercentage"`
}

// StatsFromService converts ratings.Stats
func StatsFromService(s *ratings.Stats) StatsResponse {
	return StatsResponse{
		LikeCount:      s.LikeCount,
		DislikeCount:   s.DislikeCount,
		LikePercentage: s.LikePercentage,
	}
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// Route describes one registered endpoint
type Route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// IndexResponse is the response for GET /
type IndexResponse struct {
	Name   string  `json:"name"`
	Routes []Route `json:"routes"`
}
