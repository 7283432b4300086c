package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/ratinggame/internal/dependencies/mocks"
	memoryhost "github.com/mcoot/ratinggame/internal/imagehost/memory"
	s3host "github.com/mcoot/ratinggame/internal/imagehost/s3"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/services/auth"
	"github.com/mcoot/ratinggame/internal/services/limiter"
	"github.com/mcoot/ratinggame/internal/storage/memory"
	redisstorage "github.com/mcoot/ratinggame/internal/storage/redis"
	"github.com/mcoot/ratinggame/internal/testutil"
	memorytracker "github.com/mcoot/ratinggame/internal/tracker/memory"
)

const (
	testPassword = "Passw0rd!"
	testAddr     = "198.51.100.7"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// Test: register, log in, add an image, rate it and read the statistics back
func (s *IntegrationSuite) TestCompleteRatingFlow() {
	// Step 1: Register a player and an admin
	playerID, err := s.app.AuthService.Register(s.ctx, "alice", testPassword)
	s.Require().NoError(err)
	adminID, err := s.app.CreateUser(s.ctx, "root", testPassword, model.RoleAdmin)
	s.Require().NoError(err)

	// Step 2: Log in and check the token round-trips
	login, err := s.app.AuthService.Login(s.ctx, "alice", testPassword, testAddr)
	s.Require().NoError(err)
	s.Equal(playerID, login.UserID)
	s.Equal(model.RolePlayer, login.Role)

	identity, err := s.app.Codec.Verify(login.Token)
	s.Require().NoError(err)
	s.Equal(playerID, identity.SubjectID)
	s.Equal(1, s.app.MemoryStorage.SessionCount())

	// Step 3: Admin adds two images, the second one later
	admin := model.Identity{SubjectID: adminID, Role: model.RoleAdmin}
	first, err := s.app.ImageService.Create(s.ctx, admin, "a cat", "https://img.example/cat.png")
	s.Require().NoError(err)
	s.app.MockClock.Advance(time.Minute)
	second, err := s.app.ImageService.Upload(s.ctx, admin, "a dog", "dog.png", "image/png", []byte("png-bytes"))
	s.Require().NoError(err)
	s.Len(s.app.MemoryHost.Keys(), 1)

	// Step 4: The player is offered the newest image first
	next, err := s.app.ImageService.NextUnrated(s.ctx, playerID)
	s.Require().NoError(err)
	s.Equal(second.ID, next.ID)

	// Step 5: Rate both images, then change one verdict
	_, err = s.app.RatingService.Rate(s.ctx, playerID, string(second.ID), model.ScoreLike)
	s.Require().NoError(err)
	_, err = s.app.RatingService.Rate(s.ctx, playerID, string(first.ID), model.ScoreLike)
	s.Require().NoError(err)
	_, err = s.app.RatingService.Rate(s.ctx, playerID, string(first.ID), model.ScoreDislike)
	s.Require().NoError(err)

	_, err = s.app.ImageService.NextUnrated(s.ctx, playerID)
	s.ErrorIs(err, model.ErrNoUnratedImages)

	// Step 6: Statistics reflect the latest verdicts
	stats, err := s.app.RatingService.Stats(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(0, stats.LikeCount)
	s.Equal(1, stats.DislikeCount)

	median, err := s.app.RatingService.Median(s.ctx)
	s.Require().NoError(err)
	s.InDelta(0.0, median, 1e-9)

	// Step 7: Deleting the uploaded image removes its hosted file and ratings
	s.Require().NoError(s.app.ImageService.Delete(s.ctx, admin, second.ID))
	s.Empty(s.app.MemoryHost.Keys())
	scores, err := s.app.Storage.ListScores(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int{model.ScoreDislike}, scores)

	// Step 8: Every step left an audit entry
	entries, err := s.app.Storage.ListAuditEntries(s.ctx, 0)
	s.Require().NoError(err)
	actions := make(map[string]int)
	for _, e := range entries {
		actions[e.Action]++
	}
	s.Equal(1, actions[audit.ActionRegister])
	s.Equal(1, actions[audit.ActionLoginSuccess])
	s.Equal(1, actions[audit.ActionCreateImage])
	s.Equal(1, actions[audit.ActionUploadImage])
	s.Equal(3, actions[audit.ActionRateImage])
	s.Equal(1, actions[audit.ActionDeleteImage])
}

// Test: five failures lock the address out until the lockout passes
func (s *IntegrationSuite) TestLoginLockout() {
	_, err := s.app.AuthService.Register(s.ctx, "bob", testPassword)
	s.Require().NoError(err)

	for i := 0; i < 5; i++ {
		_, err := s.app.AuthService.Login(s.ctx, "bob", "wrong", testAddr)
		s.ErrorIs(err, auth.ErrInvalidCredentials)
	}

	_, err = s.app.AuthService.Login(s.ctx, "bob", testPassword, testAddr)
	s.ErrorIs(err, auth.ErrLockedOut)

	// Another address is unaffected
	_, err = s.app.AuthService.Login(s.ctx, "bob", testPassword, "203.0.113.1")
	s.NoError(err)

	s.app.MockClock.Advance(15*time.Minute + time.Second)
	_, err = s.app.AuthService.Login(s.ctx, "bob", testPassword, testAddr)
	s.Require().NoError(err)
	s.Zero(s.app.LoginStore.Len())
}

// Test: tokens stop verifying once the TTL has passed
func (s *IntegrationSuite) TestTokenExpiry() {
	raw := s.app.Token("user-1", model.RolePlayer)

	s.app.MockClock.Advance(24*time.Hour - time.Second)
	_, err := s.app.Codec.Verify(raw)
	s.NoError(err)

	s.app.MockClock.Advance(time.Second)
	_, err = s.app.Codec.Verify(raw)
	s.Error(err)
}

// Test: the pruner evicts idle windows and stops when its context ends
func (s *IntegrationSuite) TestRunPruner() {
	limited, err := s.app.RateLimiter.IsLimited(s.ctx, testAddr)
	s.Require().NoError(err)
	s.False(limited)
	s.Equal(1, s.app.WindowStore.Len())

	s.app.MockClock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		s.app.RunPruner(ctx, time.Millisecond)
		close(done)
	}()

	s.Eventually(func() bool { return s.app.WindowStore.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	s.Eventually(func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

type FactorySuite struct {
	suite.Suite
	ctx context.Context
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(FactorySuite))
}

func (s *FactorySuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *FactorySuite) TestDefaultsToMemory() {
	app, err := New(s.ctx, Config{JWTSecret: "secret", HashCost: 4})
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	s.IsType(&memory.Storage{}, app.Storage)
	s.IsType(&memoryhost.Host{}, app.ImageHost)
	s.NotNil(app.Router(nil))

	families, err := app.Registry.Gather()
	s.Require().NoError(err)
	s.NotEmpty(families)
}

func (s *FactorySuite) TestBootstrapAdminCanManageCatalogue() {
	app, err := New(s.ctx, Config{
		JWTSecret:     "secret",
		HashCost:      4,
		AdminUsername: "root",
		AdminPassword: testPassword,
	})
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	// A second bootstrap against the same store leaves the account alone
	s.Require().NoError(app.EnsureAdmin(s.ctx, "root", testPassword))

	router := app.Router(nil)
	post := func(path, token string, body any) *httptest.ResponseRecorder {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := post("/auth/login", "", map[string]string{"username": "root", "password": testPassword})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &login))
	s.Equal(string(model.RoleAdmin), login.Role)

	rr = post("/items", login.Token, map[string]string{"prompt": "a cat", "file": "https://img.example/cat.png"})
	s.Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *FactorySuite) TestBootstrapAdminRejectsWeakPassword() {
	_, err := New(s.ctx, Config{JWTSecret: "secret", AdminUsername: "root", AdminPassword: "weak"})
	s.Error(err)
}

func (s *FactorySuite) TestInvalidSelections() {
	cases := map[string]Config{
		"unknown storage":    {StorageType: "mongo"},
		"unknown tracker":    {TrackerType: "etcd"},
		"unknown host":       {ImageHost: "ftp"},
		"redis no config":    {StorageType: StorageTypeRedis},
		"postgres no config": {StorageType: StorageTypePostgres},
		"tracker no config":  {TrackerType: TrackerTypeRedis},
		"s3 no config":       {ImageHost: ImageHostS3},
		"s3 no bucket":       {ImageHost: ImageHostS3, S3Config: &s3host.Config{}},
	}
	for name, cfg := range cases {
		s.Run(name, func() {
			_, err := New(s.ctx, cfg)
			s.Error(err)
		})
	}
}

func (s *FactorySuite) TestRedisBackends() {
	mr := miniredis.RunT(s.T())
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()

	app, err := New(s.ctx, Config{
		StorageType: StorageTypeRedis,
		TrackerType: TrackerTypeRedis,
		RedisConfig: &redisCfg,
		JWTSecret:   "secret",
		HashCost:    4,
	})
	s.Require().NoError(err)
	defer func() { s.NoError(app.Close()) }()

	_, err = app.AuthService.Register(s.ctx, "carol", testPassword)
	s.Require().NoError(err)
	_, err = app.AuthService.Login(s.ctx, "carol", "wrong", testAddr)
	s.ErrorIs(err, auth.ErrInvalidCredentials)

	var userKeys, trackerKeys int
	for _, key := range mr.Keys() {
		switch {
		case strings.HasPrefix(key, "rategame:user:"):
			userKeys++
		case key == "rategame:tracker:login:"+testAddr:
			trackerKeys++
		}
	}
	s.Equal(1, userKeys)
	s.Equal(1, trackerKeys)
}

func (s *FactorySuite) TestRedisTrackerWithMemoryStorage() {
	mr := miniredis.RunT(s.T())
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mr.Addr()

	app, err := New(s.ctx, Config{
		TrackerType: TrackerTypeRedis,
		RedisConfig: &redisCfg,
		JWTSecret:   "secret",
	})
	s.Require().NoError(err)

	limited, err := app.RateLimiter.IsLimited(s.ctx, testAddr)
	s.Require().NoError(err)
	s.False(limited)
	s.True(mr.Exists("rategame:tracker:window:" + testAddr))
	s.Greater(mr.TTL("rategame:tracker:window:"+testAddr), time.Duration(0))

	s.NoError(app.Close())
}

func (s *FactorySuite) TestRedisUnreachable() {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://127.0.0.1:1"

	_, err := New(s.ctx, Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	s.Error(err)
}

func (s *FactorySuite) TestGeneratedSecret() {
	rnd := mocks.NewMockRandom()
	rnd.QueueString(strings.Repeat("ab", jwtSecretLength/2))
	logger, buf := testutil.CaptureLogger()

	app, err := newWithDependencies(dependencies{
		storage:     memory.New(),
		host:        memoryhost.New(""),
		loginStore:  memorytracker.New[limiter.LoginAttempt](),
		windowStore: memorytracker.New[[]time.Time](),
		clock:       mocks.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		random:      rnd,
		logger:      logger,
	}, withDefaults(Config{}))
	s.Require().NoError(err)

	raw, err := app.Codec.Issue("user-1", model.RolePlayer)
	s.Require().NoError(err)
	_, err = app.Codec.Verify(raw)
	s.NoError(err)
	s.Contains(buf.String(), "JWT_SECRET not set")
}
