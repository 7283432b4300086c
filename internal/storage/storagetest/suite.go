// Package storagetest holds behaviour tests shared by every storage backing.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/storage"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Suite runs the storage contract against the Storage returned by New. Backings embed
// it and set New in their own SetupTest before calling Suite.SetupTest.
type Suite struct {
	suite.Suite
	New     func() storage.Storage
	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.Storage = s.New()
	s.Ctx = context.Background()
}

func (s *Suite) user(id, username string) *model.User {
	return &model.User{
		ID:           model.UserID(id),
		Username:     username,
		PasswordHash: "hash-" + id,
		Role:         model.RolePlayer,
		CreatedAt:    base,
	}
}

func (s *Suite) image(id string, age time.Duration) *model.Image {
	return &model.Image{
		ID:           model.ImageID(id),
		URL:          "https://img.example/" + id + ".png",
		Prompt:       "prompt " + id,
		UploadedByID: "admin-1",
		CreatedAt:    base.Add(-age),
	}
}

func (s *Suite) rating(id, userID, imageID string, score int) *model.Rating {
	return &model.Rating{
		ID:        id,
		UserID:    model.UserID(userID),
		ImageID:   model.ImageID(imageID),
		Score:     score,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, s.user("user-1", "alice")))

	byID, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)
	s.Equal("hash-user-1", byID.PasswordHash)
	s.Equal(model.RolePlayer, byID.Role)

	byName, err := s.Storage.GetUserByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), byName.ID)
}

func (s *Suite) TestCreateUserDuplicateUsername() {
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, s.user("user-1", "alice")))

	err := s.Storage.CreateUser(s.Ctx, s.user("user-2", "alice"))
	s.ErrorIs(err, model.ErrUsernameTaken)

	_, err = s.Storage.GetUser(s.Ctx, "user-2")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestUsernameLookupIsExact() {
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, s.user("user-1", "alice")))

	_, err := s.Storage.GetUserByUsername(s.Ctx, "Alice")
	s.ErrorIs(err, model.ErrUserNotFound)
	_, err = s.Storage.GetUserByUsername(s.Ctx, "alice ")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Image tests

func (s *Suite) TestSaveAndGetImage() {
	s.Require().NoError(s.Storage.SaveImage(s.Ctx, s.image("img-1", 0)))

	img, err := s.Storage.GetImage(s.Ctx, "img-1")
	s.Require().NoError(err)
	s.Equal("prompt img-1", img.Prompt)
	s.Equal("https://img.example/img-1.png", img.URL)
	s.True(base.Equal(img.CreatedAt))
}

func (s *Suite) TestGetImageNotFound() {
	_, err := s.Storage.GetImage(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrImageNotFound)
}

func (s *Suite) TestListImagesNewestFirstWithPaging() {
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-old", 3*time.Hour))
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-new", 0))
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-mid", time.Hour))

	all, err := s.Storage.ListImages(s.Ctx, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(model.ImageID("img-new"), all[0].ID)
	s.Equal(model.ImageID("img-mid"), all[1].ID)
	s.Equal(model.ImageID("img-old"), all[2].ID)

	page, err := s.Storage.ListImages(s.Ctx, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal(model.ImageID("img-mid"), page[0].ID)

	beyond, err := s.Storage.ListImages(s.Ctx, 10, 5)
	s.Require().NoError(err)
	s.Empty(beyond)

	count, err := s.Storage.CountImages(s.Ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *Suite) TestDeleteImageCascadesRatings() {
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-1", 0))
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-2", time.Hour))
	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-1", "user-1", "img-1", 1))
	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-2", "user-1", "img-2", -1))

	s.Require().NoError(s.Storage.DeleteImage(s.Ctx, "img-1"))

	_, err := s.Storage.GetImage(s.Ctx, "img-1")
	s.ErrorIs(err, model.ErrImageNotFound)

	ratings, err := s.Storage.GetRatingsForImage(s.Ctx, "img-1")
	s.Require().NoError(err)
	s.Empty(ratings)

	scores, err := s.Storage.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]int{-1}, scores)

	count, _ := s.Storage.CountImages(s.Ctx)
	s.Equal(1, count)
}

func (s *Suite) TestDeleteImageNotFound() {
	err := s.Storage.DeleteImage(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrImageNotFound)
}

func (s *Suite) TestLatestUnratedImage() {
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-old", time.Hour))
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-new", 0))

	img, err := s.Storage.LatestUnratedImage(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.ImageID("img-new"), img.ID)

	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-1", "user-1", "img-new", 1))

	img, err = s.Storage.LatestUnratedImage(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(model.ImageID("img-old"), img.ID)

	// Other users are unaffected
	img, err = s.Storage.LatestUnratedImage(s.Ctx, "user-2")
	s.Require().NoError(err)
	s.Equal(model.ImageID("img-new"), img.ID)

	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-2", "user-1", "img-old", -1))

	_, err = s.Storage.LatestUnratedImage(s.Ctx, "user-1")
	s.ErrorIs(err, model.ErrNoUnratedImages)
}

func (s *Suite) TestLatestUnratedImageEmptyCatalogue() {
	_, err := s.Storage.LatestUnratedImage(s.Ctx, "user-1")
	s.ErrorIs(err, model.ErrNoUnratedImages)
}

// Rating tests

func (s *Suite) TestUpsertRatingInsertsThenUpdates() {
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-1", 0))

	first, err := s.Storage.UpsertRating(s.Ctx, s.rating("r-1", "user-1", "img-1", 1))
	s.Require().NoError(err)
	s.Equal("r-1", first.ID)
	s.Equal(1, first.Score)

	again := s.rating("r-2", "user-1", "img-1", -1)
	again.UpdatedAt = base.Add(time.Minute)
	second, err := s.Storage.UpsertRating(s.Ctx, again)
	s.Require().NoError(err)
	s.Equal("r-1", second.ID, "the existing rating is updated in place")
	s.Equal(-1, second.Score)
	s.True(base.Equal(second.CreatedAt))
	s.True(base.Add(time.Minute).Equal(second.UpdatedAt))

	ratings, err := s.Storage.GetRatingsForImage(s.Ctx, "img-1")
	s.Require().NoError(err)
	s.Require().Len(ratings, 1)
	s.Equal(-1, ratings[0].Score)
}

func (s *Suite) TestListScores() {
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-1", 0))
	_ = s.Storage.SaveImage(s.Ctx, s.image("img-2", time.Hour))
	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-1", "user-1", "img-1", 1))
	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-2", "user-2", "img-1", 1))
	_, _ = s.Storage.UpsertRating(s.Ctx, s.rating("r-3", "user-1", "img-2", -1))

	scores, err := s.Storage.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]int{1, 1, -1}, scores)
}

func (s *Suite) TestListScoresEmpty() {
	scores, err := s.Storage.ListScores(s.Ctx)
	s.Require().NoError(err)
	s.Empty(scores)
}

// Session and audit tests

func (s *Suite) TestSaveSession() {
	err := s.Storage.SaveSession(s.Ctx, &model.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		TokenHash: "abc",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	s.NoError(err)
}

func (s *Suite) TestAuditEntriesNewestFirst() {
	for i, action := range []string{"REGISTER", "LOGIN_SUCCESS", "RATE_IMAGE"} {
		err := s.Storage.SaveAuditEntry(s.Ctx, &model.AuditEntry{
			ID:        action,
			UserID:    "user-1",
			Level:     model.AuditInfo,
			Action:    action,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		s.Require().NoError(err)
	}

	entries, err := s.Storage.ListAuditEntries(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("RATE_IMAGE", entries[0].Action)
	s.Equal("LOGIN_SUCCESS", entries[1].Action)
	s.Equal(model.AuditInfo, entries[0].Level)
}
