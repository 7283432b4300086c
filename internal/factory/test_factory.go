package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/ratinggame/internal/dependencies/mocks"
	memoryhost "github.com/mcoot/ratinggame/internal/imagehost/memory"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/services/limiter"
	"github.com/mcoot/ratinggame/internal/services/security"
	"github.com/mcoot/ratinggame/internal/storage/memory"
	"github.com/mcoot/ratinggame/internal/testutil"
	memorytracker "github.com/mcoot/ratinggame/internal/tracker/memory"
)

// TestJWTSecret signs tokens issued by a TestApp
const TestJWTSecret = "test-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// In-memory backings for inspection
	MemoryStorage *memory.Storage
	MemoryHost    *memoryhost.Host
	LoginStore    *memorytracker.Store[limiter.LoginAttempt]
	WindowStore   *memorytracker.Store[[]time.Time]
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(Config{})
}

// NewTestAppWithConfig is NewTestApp with limiter, token and audit settings taken from
// cfg. Backend selections in cfg are ignored; everything runs in memory.
func NewTestAppWithConfig(cfg Config) *TestApp {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = TestJWTSecret
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.MinCost
	}
	cfg = withDefaults(cfg)

	store := memory.New()
	host := memoryhost.New("")
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	loginStore := memorytracker.New[limiter.LoginAttempt]()
	windowStore := memorytracker.New[[]time.Time]()

	logger := cfg.Logger
	if logger == nil {
		logger = testutil.NopLogger()
	}

	app, err := newWithDependencies(dependencies{
		storage:     store,
		host:        host,
		loginStore:  loginStore,
		windowStore: windowStore,
		clock:       mockClock,
		random:      mockRandom,
		logger:      logger,
	}, cfg)
	if err != nil {
		panic(fmt.Sprintf("build test app: %v", err))
	}

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MemoryStorage: store,
		MemoryHost:    host,
		LoginStore:    loginStore,
		WindowStore:   windowStore,
	}
}

// CreateUser stores a user with the given role directly, bypassing registration
func (t *TestApp) CreateUser(ctx context.Context, username, password string, role model.Role) (model.UserID, error) {
	digest, err := t.Hasher.Hash(password)
	if err != nil {
		return "", err
	}
	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		Username:     security.Sanitize(username),
		PasswordHash: digest,
		Role:         role,
		CreatedAt:    t.MockClock.Now(),
	}
	if err := t.Storage.CreateUser(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// Token issues a bearer token for the given subject
func (t *TestApp) Token(id model.UserID, role model.Role) string {
	raw, err := t.Codec.Issue(id, role)
	if err != nil {
		panic(fmt.Sprintf("issue test token: %v", err))
	}
	return raw
}
