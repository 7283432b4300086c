package images

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/imagehost"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/services/security"
	"github.com/mcoot/ratinggame/internal/storage"
)

// MaxUploadSize is the largest image accepted by Upload
const MaxUploadSize = 5 << 20

// Paging defaults
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Errors
var (
	ErrPromptRequired  = errors.New("prompt is required")
	ErrURLRequired     = errors.New("image url is required")
	ErrFileRequired    = errors.New("image file is required")
	ErrUnsupportedType = errors.New("only jpeg and png images are allowed")
	ErrFileTooLarge    = errors.New("image exceeds the 5MB limit")
)

// allowedTypes maps accepted content types to the extension used for host keys
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// Page is one page of the catalogue
type Page struct {
	Items       []model.ImageWithRatings
	TotalCount  int
	CurrentPage int
	TotalPages  int
}

// Service manages the image catalogue
type Service struct {
	storage storage.Storage
	host    imagehost.Host
	audit   *audit.Logger
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new images Service
func New(storage storage.Storage, host imagehost.Host, audit *audit.Logger, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		host:    host,
		audit:   audit,
		clock:   clock,
		logger:  logger,
	}
}

// Create adds an image that is already hosted at url
func (s *Service) Create(ctx context.Context, uploader model.Identity, prompt, url string) (*model.Image, error) {
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	if url == "" {
		return nil, ErrURLRequired
	}

	image := &model.Image{
		ID:           model.ImageID(uuid.NewString()),
		URL:          url,
		Prompt:       security.Sanitize(prompt),
		UploadedByID: uploader.SubjectID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.SaveImage(ctx, image); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	s.audit.Info(ctx, audit.ActionCreateImage, uploader.SubjectID, "Created image "+string(image.ID))
	return image, nil
}

// Upload pushes image bytes to the host and adds the hosted image to the catalogue
func (s *Service) Upload(ctx context.Context, uploader model.Identity, prompt, filename, contentType string, data []byte) (*model.Image, error) {
	if len(data) == 0 {
		return nil, ErrFileRequired
	}
	if prompt == "" {
		return nil, ErrPromptRequired
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedType
	}
	if len(data) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	id := model.ImageID(uuid.NewString())
	key := "images/" + string(id) + ext

	url, err := s.host.Upload(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	image := &model.Image{
		ID:           id,
		URL:          url,
		Prompt:       security.Sanitize(prompt),
		UploadedByID: uploader.SubjectID,
		CreatedAt:    s.clock.Now(),
		HostKey:      key,
	}
	if err := s.storage.SaveImage(ctx, image); err != nil {
		s.removeHosted(ctx, key)
		return nil, fmt.Errorf("save image: %w", err)
	}

	s.audit.Info(ctx, audit.ActionUploadImage, uploader.SubjectID,
		fmt.Sprintf("Uploaded %s as image %s", security.Sanitize(filename), image.ID))
	return image, nil
}

// NormalizePaging applies the defaults and caps to requested paging values
func NormalizePaging(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// List returns one page of images, newest first, each with its ratings
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	page, limit = NormalizePaging(page, limit)

	images, err := s.storage.ListImages(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	total, err := s.storage.CountImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	items := make([]model.ImageWithRatings, 0, len(images))
	for _, img := range images {
		ratings, err := s.storage.GetRatingsForImage(ctx, img.ID)
		if err != nil {
			return nil, fmt.Errorf("load ratings: %w", err)
		}
		items = append(items, model.ImageWithRatings{Image: *img, Ratings: ratings})
	}

	return &Page{
		Items:       items,
		TotalCount:  total,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

// Get returns a single image with its ratings
func (s *Service) Get(ctx context.Context, id model.ImageID) (*model.ImageWithRatings, error) {
	img, err := s.storage.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	ratings, err := s.storage.GetRatingsForImage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	return &model.ImageWithRatings{Image: *img, Ratings: ratings}, nil
}

// Delete removes an image, its ratings and, for uploaded images, the hosted file
func (s *Service) Delete(ctx context.Context, actor model.Identity, id model.ImageID) error {
	img, err := s.storage.GetImage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteImage(ctx, id); err != nil {
		return err
	}
	if img.HostKey != "" {
		s.removeHosted(ctx, img.HostKey)
	}

	s.audit.Info(ctx, audit.ActionDeleteImage, actor.SubjectID, "Deleted image "+string(id))
	return nil
}

// NextUnrated returns the newest image the user has not rated yet
func (s *Service) NextUnrated(ctx context.Context, userID model.UserID) (*model.Image, error) {
	return s.storage.LatestUnratedImage(ctx, userID)
}

// AllURLs returns the URL of every image, newest first
func (s *Service) AllURLs(ctx context.Context) ([]string, error) {
	images, err := s.storage.ListImages(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	urls := make([]string, len(images))
	for i, img := range images {
		urls[i] = img.URL
	}
	return urls, nil
}

// removeHosted deletes a hosted object, logging rather than returning failures
func (s *Service) removeHosted(ctx context.Context, key string) {
	if err := s.host.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete hosted image", "key", key, "error", err)
	}
}
