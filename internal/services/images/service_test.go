package images

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/ratinggame/internal/dependencies/mocks"
	hostmemory "github.com/mcoot/ratinggame/internal/imagehost/memory"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/storage/memory"
	"github.com/mcoot/ratinggame/internal/testutil"
)

var admin = model.Identity{SubjectID: "admin-1", Role: model.RoleAdmin}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	host    *hostmemory.Host
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.host = hostmemory.New("https://cdn.example")
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	s.service = New(s.storage, s.host, audit.New(s.storage, s.clock, logger, audit.Config{}), s.clock, logger)
	s.ctx = context.Background()
}

// seed creates n images one minute apart, oldest first
func (s *ServiceSuite) seed(n int) []*model.Image {
	created := make([]*model.Image, n)
	for i := 0; i < n; i++ {
		img, err := s.service.Create(s.ctx, admin, fmt.Sprintf("prompt %d", i), fmt.Sprintf("https://img.example/%d.png", i))
		s.Require().NoError(err)
		created[i] = img
		s.clock.Advance(time.Minute)
	}
	return created
}

// Create tests

func (s *ServiceSuite) TestCreate() {
	img, err := s.service.Create(s.ctx, admin, `a "cat"`, "https://img.example/cat.png")
	s.Require().NoError(err)

	s.NotEmpty(img.ID)
	s.Equal("a &quot;cat&quot;", img.Prompt)
	s.Equal(model.UserID("admin-1"), img.UploadedByID)
	s.Equal(s.clock.Now(), img.CreatedAt)

	stored, err := s.storage.GetImage(s.ctx, img.ID)
	s.Require().NoError(err)
	s.Equal(img.URL, stored.URL)
}

func (s *ServiceSuite) TestCreateValidation() {
	_, err := s.service.Create(s.ctx, admin, "", "https://img.example/cat.png")
	s.ErrorIs(err, ErrPromptRequired)

	_, err = s.service.Create(s.ctx, admin, "cat", "")
	s.ErrorIs(err, ErrURLRequired)
}

// Upload tests

func (s *ServiceSuite) TestUpload() {
	img, err := s.service.Upload(s.ctx, admin, "sunset", "sunset.png", "image/png", []byte("png"))
	s.Require().NoError(err)

	s.Equal("images/"+string(img.ID)+".png", img.HostKey)
	s.Equal("https://cdn.example/"+img.HostKey, img.URL)

	obj, ok := s.host.Get(img.HostKey)
	s.Require().True(ok)
	s.Equal("image/png", obj.ContentType)

	entries, _ := s.storage.ListAuditEntries(s.ctx, 1)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionUploadImage, entries[0].Action)
}

func (s *ServiceSuite) TestUploadJPEGExtension() {
	img, err := s.service.Upload(s.ctx, admin, "sunset", "sunset.jpeg", "image/jpeg", []byte("jpg"))
	s.Require().NoError(err)
	s.Equal("images/"+string(img.ID)+".jpg", img.HostKey)
}

func (s *ServiceSuite) TestUploadValidation() {
	cases := []struct {
		name        string
		prompt      string
		contentType string
		data        []byte
		want        error
	}{
		{"no file", "p", "image/png", nil, ErrFileRequired},
		{"no prompt", "", "image/png", []byte("x"), ErrPromptRequired},
		{"gif", "p", "image/gif", []byte("x"), ErrUnsupportedType},
		{"too large", "p", "image/png", bytes.Repeat([]byte{0}, MaxUploadSize+1), ErrFileTooLarge},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Upload(s.ctx, admin, tc.prompt, "f", tc.contentType, tc.data)
			s.ErrorIs(err, tc.want)
		})
	}

	count, _ := s.storage.CountImages(s.ctx)
	s.Equal(0, count)
}

func (s *ServiceSuite) TestUploadAtSizeLimit() {
	_, err := s.service.Upload(s.ctx, admin, "p", "f.png", "image/png", bytes.Repeat([]byte{0}, MaxUploadSize))
	s.NoError(err)
}

// List tests

func (s *ServiceSuite) TestNormalizePaging() {
	cases := []struct{ page, limit, wantPage, wantLimit int }{
		{0, 0, 1, 10},
		{-3, -1, 1, 10},
		{2, 5, 2, 5},
		{1, 1000, 1, 100},
	}
	for _, tc := range cases {
		page, limit := NormalizePaging(tc.page, tc.limit)
		s.Equal(tc.wantPage, page)
		s.Equal(tc.wantLimit, limit)
	}
}

func (s *ServiceSuite) TestListPages() {
	created := s.seed(25)

	page, err := s.service.List(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Len(page.Items, 10)
	s.Equal(25, page.TotalCount)
	s.Equal(1, page.CurrentPage)
	s.Equal(3, page.TotalPages)
	s.Equal(created[24].ID, page.Items[0].Image.ID, "newest first")

	last, err := s.service.List(s.ctx, 3, 10)
	s.Require().NoError(err)
	s.Len(last.Items, 5)
	s.Equal(created[0].ID, last.Items[4].Image.ID)

	beyond, err := s.service.List(s.ctx, 9, 10)
	s.Require().NoError(err)
	s.Empty(beyond.Items)
	s.Equal(9, beyond.CurrentPage)
}

func (s *ServiceSuite) TestListEmpty() {
	page, err := s.service.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	s.Empty(page.Items)
	s.Equal(0, page.TotalPages)
	s.Equal(1, page.CurrentPage)
}

func (s *ServiceSuite) TestListIncludesRatings() {
	img := s.seed(1)[0]
	_, _ = s.storage.UpsertRating(s.ctx, &model.Rating{ID: "r-1", UserID: "u", ImageID: img.ID, Score: 1})

	page, err := s.service.List(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Len(page.Items[0].Ratings, 1)
}

// Get / Delete tests

func (s *ServiceSuite) TestGet() {
	img := s.seed(1)[0]

	got, err := s.service.Get(s.ctx, img.ID)
	s.Require().NoError(err)
	s.Equal(img.ID, got.Image.ID)
	s.Empty(got.Ratings)
}

func (s *ServiceSuite) TestGetNotFound() {
	_, err := s.service.Get(s.ctx, "missing")
	s.ErrorIs(err, model.ErrImageNotFound)
}

func (s *ServiceSuite) TestDeleteRemovesHostedObject() {
	img, _ := s.service.Upload(s.ctx, admin, "p", "f.png", "image/png", []byte("x"))

	s.Require().NoError(s.service.Delete(s.ctx, admin, img.ID))

	_, err := s.storage.GetImage(s.ctx, img.ID)
	s.ErrorIs(err, model.ErrImageNotFound)
	_, ok := s.host.Get(img.HostKey)
	s.False(ok)
}

func (s *ServiceSuite) TestDeleteExternalImage() {
	img := s.seed(1)[0]
	s.NoError(s.service.Delete(s.ctx, admin, img.ID))
}

func (s *ServiceSuite) TestDeleteNotFound() {
	s.ErrorIs(s.service.Delete(s.ctx, admin, "missing"), model.ErrImageNotFound)
}

// NextUnrated / AllURLs tests

func (s *ServiceSuite) TestNextUnrated() {
	created := s.seed(2)

	img, err := s.service.NextUnrated(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(created[1].ID, img.ID)

	_, _ = s.storage.UpsertRating(s.ctx, &model.Rating{ID: "r", UserID: "user-1", ImageID: created[1].ID, Score: 1})
	img, err = s.service.NextUnrated(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(created[0].ID, img.ID)
}

func (s *ServiceSuite) TestNextUnratedNone() {
	_, err := s.service.NextUnrated(s.ctx, "user-1")
	s.ErrorIs(err, model.ErrNoUnratedImages)
}

func (s *ServiceSuite) TestAllURLs() {
	s.seed(3)

	urls, err := s.service.AllURLs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{
		"https://img.example/2.png",
		"https://img.example/1.png",
		"https://img.example/0.png",
	}, urls)
}
