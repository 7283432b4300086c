package request

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateItemRequest is the request body for adding an image by URL.
// File carries the image URL.
type CreateItemRequest struct {
	Prompt string `json:"prompt"`
	File   string `json:"file"`
}

// CreateRatingRequest is the request body for POST /ratings
type CreateRatingRequest struct {
	ImageID string `json:"imageId"`
	Score   int    `json:"score"`
}

// RateImageRequest is the request body for rating the image named in the path
type RateImageRequest struct {
	Score int `json:"score"`
}
