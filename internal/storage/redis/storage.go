package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	client, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, cfg), nil
}

// Connect opens and verifies a client for cfg. The tracker stores share it.
func Connect(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client returns the underlying Redis client
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Claim the username first so concurrent registrations cannot both succeed
	claimed, err := s.client.SetNX(ctx, usernameIndexKey(user.Username), string(user.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrUsernameTaken
	}

	if err := s.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		_ = s.client.Del(ctx, usernameIndexKey(user.Username)).Err()
		return err
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	// Look up user ID from username index
	id, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(id))
}

// Image operations

func (s *Storage) SaveImage(ctx context.Context, image *model.Image) error {
	data, err := json.Marshal(image)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, imageKey(image.ID), data, 0)
	pipe.ZAdd(ctx, imagesIndexKey(), redis.Z{
		Score:  float64(image.CreatedAt.UnixMilli()),
		Member: string(image.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetImage(ctx context.Context, id model.ImageID) (*model.Image, error) {
	data, err := s.client.Get(ctx, imageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrImageNotFound
		}
		return nil, err
	}

	var image model.Image
	if err := json.Unmarshal(data, &image); err != nil {
		return nil, err
	}
	return &image, nil
}

func (s *Storage) ListImages(ctx context.Context, offset, limit int) ([]*model.Image, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}

	ids, err := s.client.ZRevRange(ctx, imagesIndexKey(), int64(offset), stop).Result()
	if err != nil {
		return nil, err
	}
	return s.getImages(ctx, ids)
}

// getImages fetches images by id with MGET, preserving order and skipping ids whose
// record has gone
func (s *Storage) getImages(ctx context.Context, ids []string) ([]*model.Image, error) {
	if len(ids) == 0 {
		return []*model.Image{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = imageKey(model.ImageID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	images := make([]*model.Image, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var image model.Image
		if err := json.Unmarshal([]byte(str), &image); err != nil {
			return nil, err
		}
		images = append(images, &image)
	}
	return images, nil
}

func (s *Storage) CountImages(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, imagesIndexKey()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Storage) DeleteImage(ctx context.Context, id model.ImageID) error {
	exists, err := s.client.Exists(ctx, imageKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrImageNotFound
	}

	raters, err := s.client.HKeys(ctx, ratingsKey(id)).Result()
	if err != nil {
		return err
	}

	// Delete the image, its index entry and every rating in one transaction
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, imageKey(id))
	pipe.ZRem(ctx, imagesIndexKey(), string(id))
	pipe.Del(ctx, ratingsKey(id))
	for _, userID := range raters {
		pipe.SRem(ctx, ratedByKey(model.UserID(userID)), string(id))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) LatestUnratedImage(ctx context.Context, userID model.UserID) (*model.Image, error) {
	ids, err := s.client.ZRevRange(ctx, imagesIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rated, err := s.client.SMembersMap(ctx, ratedByKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, ok := rated[id]; ok {
			continue
		}
		image, err := s.GetImage(ctx, model.ImageID(id))
		if errors.Is(err, model.ErrImageNotFound) {
			continue
		}
		return image, err
	}
	return nil, model.ErrNoUnratedImages
}

// Rating operations

func (s *Storage) UpsertRating(ctx context.Context, rating *model.Rating) (*model.Rating, error) {
	key := ratingsKey(rating.ImageID)
	field := string(rating.UserID)

	stored := *rating
	existing, err := s.client.HGet(ctx, key, field).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, err
	default:
		var prev model.Rating
		if err := json.Unmarshal(existing, &prev); err != nil {
			return nil, fmt.Errorf("decode rating: %w", err)
		}
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.SAdd(ctx, ratedByKey(rating.UserID), string(rating.ImageID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Storage) GetRatingsForImage(ctx context.Context, imageID model.ImageID) ([]model.Rating, error) {
	values, err := s.client.HVals(ctx, ratingsKey(imageID)).Result()
	if err != nil {
		return nil, err
	}
	ratings, err := decodeRatings(values)
	if err != nil {
		return nil, err
	}
	sort.Slice(ratings, func(i, j int) bool {
		return ratings[i].CreatedAt.Before(ratings[j].CreatedAt)
	})
	return ratings, nil
}

func (s *Storage) ListScores(ctx context.Context) ([]int, error) {
	ids, err := s.client.ZRange(ctx, imagesIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HVals(ctx, ratingsKey(model.ImageID(id)))
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	scores := []int{}
	for _, cmd := range cmds {
		ratings, err := decodeRatings(cmd.Val())
		if err != nil {
			return nil, err
		}
		for _, r := range ratings {
			scores = append(scores, r.Score)
		}
	}
	return scores, nil
}

func decodeRatings(values []string) ([]model.Rating, error) {
	ratings := make([]model.Rating, 0, len(values))
	for _, v := range values {
		var r model.Rating
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	// Session rows are kept until the token they describe has expired
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, 0)
	pipe.ExpireAt(ctx, sessionKey(session.ID), session.ExpiresAt)
	_, err = pipe.Exec(ctx)
	return err
}

// Audit operations

func (s *Storage) SaveAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.LPush(ctx, auditKey(), data).Err()
}

func (s *Storage) ListAuditEntries(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	values, err := s.client.LRange(ctx, auditKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*model.AuditEntry, 0, len(values))
	for _, v := range values {
		var e model.AuditEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}
