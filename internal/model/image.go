package model

import "time"

// ImageID uniquely identifies an image
type ImageID string

// Image is an uploaded picture that players rate
type Image struct {
	ID           ImageID
	URL          string
	Prompt       string
	UploadedByID UserID
	CreatedAt    time.Time

	// HostKey is the object key at the image host, empty for images created from an
	// external URL
	HostKey string
}

// Score values a rating may carry
const (
	ScoreLike    = 1
	ScoreDislike = -1
)

// Rating is a single user's verdict on an image. There is at most one rating per
// (UserID, ImageID) pair.
type Rating struct {
	ID        string
	UserID    UserID
	ImageID   ImageID
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImageWithRatings pairs an image with every rating it has received
type ImageWithRatings struct {
	Image   Image
	Ratings []Rating
}
