package storage

import (
	"context"

	"github.com/mcoot/ratinggame/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	// CreateUser returns model.ErrUsernameTaken if the username is already in use
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Image operations
	SaveImage(ctx context.Context, image *model.Image) error
	GetImage(ctx context.Context, id model.ImageID) (*model.Image, error)
	// ListImages returns images newest first. A limit <= 0 returns everything after offset.
	ListImages(ctx context.Context, offset, limit int) ([]*model.Image, error)
	CountImages(ctx context.Context) (int, error)
	// DeleteImage removes the image and every rating of it
	DeleteImage(ctx context.Context, id model.ImageID) error
	// LatestUnratedImage returns the newest image the user has not rated, or
	// model.ErrNoUnratedImages
	LatestUnratedImage(ctx context.Context, userID model.UserID) (*model.Image, error)

	// Rating operations
	// UpsertRating inserts the rating or, when the user already rated the image, replaces
	// its score. The stored rating is returned.
	UpsertRating(ctx context.Context, rating *model.Rating) (*model.Rating, error)
	GetRatingsForImage(ctx context.Context, imageID model.ImageID) ([]model.Rating, error)
	ListScores(ctx context.Context) ([]int, error)

	// Session operations
	SaveSession(ctx context.Context, session *model.Session) error

	// Audit operations
	SaveAuditEntry(ctx context.Context, entry *model.AuditEntry) error
	// ListAuditEntries returns up to limit entries, newest first
	ListAuditEntries(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}
