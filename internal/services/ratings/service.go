package ratings

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/observability"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/storage"
)

// Stats summarises the ratings for one image
type Stats struct {
	LikeCount      int
	DislikeCount   int
	LikePercentage float64
}

// Service records ratings and computes statistics over them
type Service struct {
	storage storage.Storage
	audit   *audit.Logger
	metrics *observability.Metrics
	clock   clock.Clock
}

// New creates a new ratings Service
func New(storage storage.Storage, audit *audit.Logger, metrics *observability.Metrics, clock clock.Clock) *Service {
	return &Service{
		storage: storage,
		audit:   audit,
		metrics: metrics,
		clock:   clock,
	}
}

// Rate records the user's score for an image, replacing any earlier score.
// Checks run in order: score, id format, image existence.
func (s *Service) Rate(ctx context.Context, userID model.UserID, imageID string, score int) (*model.Rating, error) {
	if score != model.ScoreLike && score != model.ScoreDislike {
		return nil, model.ErrInvalidScore
	}
	if _, err := uuid.Parse(imageID); err != nil {
		return nil, model.ErrInvalidImageID
	}

	id := model.ImageID(imageID)
	if _, err := s.storage.GetImage(ctx, id); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rating, err := s.storage.UpsertRating(ctx, &model.Rating{
		ID:        uuid.NewString(),
		UserID:    userID,
		ImageID:   id,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}

	s.metrics.Rated(score)
	s.audit.Info(ctx, audit.ActionRateImage, userID, fmt.Sprintf("Rated image %s with %d", id, score))
	return rating, nil
}

// Median returns the median of every stored score, 0 when there are none
func (s *Service) Median(ctx context.Context) (float64, error) {
	scores, err := s.storage.ListScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scores: %w", err)
	}
	return median(scores), nil
}

func median(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return float64(sorted[mid])
}

// Stats returns like and dislike counts for an image
func (s *Service) Stats(ctx context.Context, imageID model.ImageID) (*Stats, error) {
	if _, err := s.storage.GetImage(ctx, imageID); err != nil {
		return nil, err
	}

	ratings, err := s.storage.GetRatingsForImage(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	stats := &Stats{}
	for _, r := range ratings {
		switch r.Score {
		case model.ScoreLike:
			stats.LikeCount++
		case model.ScoreDislike:
			stats.DislikeCount++
		}
	}
	if total := stats.LikeCount + stats.DislikeCount; total > 0 {
		stats.LikePercentage = float64(stats.LikeCount) / float64(total) * 100
	}
	return stats, nil
}
