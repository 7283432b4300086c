package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	images        map[model.ImageID]*model.Image
	ratings       map[ratingKey]*model.Rating
	sessions      map[string]*model.Session
	audit         []*model.AuditEntry
}

type ratingKey struct {
	userID  model.UserID
	imageID model.ImageID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		images:        make(map[model.ImageID]*model.Image),
		ratings:       make(map[ratingKey]*model.Rating),
		sessions:      make(map[string]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usernameIndex[user.Username]; taken {
		return model.ErrUsernameTaken
	}
	u := *user
	s.users[user.ID] = &u
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u := *s.users[id]
	return &u, nil
}

// Image operations

func (s *Storage) SaveImage(ctx context.Context, image *model.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := *image
	s.images[image.ID] = &img
	return nil
}

func (s *Storage) GetImage(ctx context.Context, id model.ImageID) (*model.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	image, ok := s.images[id]
	if !ok {
		return nil, model.ErrImageNotFound
	}
	img := *image
	return &img, nil
}

func (s *Storage) ListImages(ctx context.Context, offset, limit int) ([]*model.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.newestFirst()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(sorted) {
		return []*model.Image{}, nil
	}
	sorted = sorted[offset:]
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (s *Storage) CountImages(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images), nil
}

func (s *Storage) DeleteImage(ctx context.Context, id model.ImageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return model.ErrImageNotFound
	}
	delete(s.images, id)
	for key := range s.ratings {
		if key.imageID == id {
			delete(s.ratings, key)
		}
	}
	return nil
}

func (s *Storage) LatestUnratedImage(ctx context.Context, userID model.UserID) (*model.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, img := range s.newestFirst() {
		if _, rated := s.ratings[ratingKey{userID: userID, imageID: img.ID}]; !rated {
			return img, nil
		}
	}
	return nil, model.ErrNoUnratedImages
}

// newestFirst returns copies of every image ordered by creation time, newest first.
// Caller must hold the lock.
func (s *Storage) newestFirst() []*model.Image {
	images := make([]*model.Image, 0, len(s.images))
	for _, image := range s.images {
		img := *image
		images = append(images, &img)
	}
	sort.Slice(images, func(i, j int) bool {
		if images[i].CreatedAt.Equal(images[j].CreatedAt) {
			return images[i].ID > images[j].ID
		}
		return images[i].CreatedAt.After(images[j].CreatedAt)
	})
	return images
}

// Rating operations

func (s *Storage) UpsertRating(ctx context.Context, rating *model.Rating) (*model.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ratingKey{userID: rating.UserID, imageID: rating.ImageID}
	if existing, ok := s.ratings[key]; ok {
		existing.Score = rating.Score
		existing.UpdatedAt = rating.UpdatedAt
		r := *existing
		return &r, nil
	}

	r := *rating
	s.ratings[key] = &r
	out := r
	return &out, nil
}

func (s *Storage) GetRatingsForImage(ctx context.Context, imageID model.ImageID) ([]model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := []model.Rating{}
	for key, r := range s.ratings {
		if key.imageID == imageID {
			ratings = append(ratings, *r)
		}
	}
	sort.Slice(ratings, func(i, j int) bool {
		return ratings[i].CreatedAt.Before(ratings[j].CreatedAt)
	})
	return ratings, nil
}

func (s *Storage) ListScores(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := make([]int, 0, len(s.ratings))
	for _, r := range s.ratings {
		scores = append(scores, r.Score)
	}
	return scores, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := *session
	s.sessions[session.ID] = &sess
	return nil
}

// SessionCount returns the number of recorded sessions
func (s *Storage) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Audit operations

func (s *Storage) SaveAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	s.audit = append(s.audit, &e)
	return nil
}

func (s *Storage) ListAuditEntries(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*model.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(entries) >= limit {
			break
		}
		e := *s.audit[i]
		entries = append(entries, &e)
	}
	return entries, nil
}
