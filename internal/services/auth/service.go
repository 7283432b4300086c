package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/observability"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/services/limiter"
	"github.com/mcoot/ratinggame/internal/services/security"
	"github.com/mcoot/ratinggame/internal/services/token"
	"github.com/mcoot/ratinggame/internal/storage"
)

// Errors
var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLockedOut          = errors.New("too many failed login attempts")
)

// addrPreviewLength is how much of a client address is written to the audit log
const addrPreviewLength = 10

// Login is the result of a successful authentication
type Login struct {
	Token     string
	UserID    model.UserID
	Role      model.Role
	ExpiresAt time.Time
}

// Dependencies are the collaborators the auth service needs
type Dependencies struct {
	Storage storage.Storage
	Hasher  *security.Hasher
	Codec   *token.Codec
	Guard   *limiter.LoginGuard
	Audit   *audit.Logger
	Metrics *observability.Metrics
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Service handles registration and login
type Service struct {
	storage storage.Storage
	hasher  *security.Hasher
	codec   *token.Codec
	guard   *limiter.LoginGuard
	audit   *audit.Logger
	metrics *observability.Metrics
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new auth Service
func New(deps Dependencies) *Service {
	return &Service{
		storage: deps.Storage,
		hasher:  deps.Hasher,
		codec:   deps.Codec,
		guard:   deps.Guard,
		audit:   deps.Audit,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}
}

// Register creates a PLAYER account and returns its id. The username is sanitized
// before it is checked for uniqueness and stored.
func (s *Service) Register(ctx context.Context, username, password string) (model.UserID, error) {
	id, err := s.createUser(ctx, username, password, model.RolePlayer)
	if err != nil {
		return "", err
	}
	s.audit.Info(ctx, audit.ActionRegister, id, "")
	return id, nil
}

// EnsureAdmin creates an ADMIN account unless the username is already taken. It
// reports whether a user was created. The password must meet the same policy as
// registration.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	id, err := s.createUser(ctx, username, password, model.RoleAdmin)
	if errors.Is(err, model.ErrUsernameTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.audit.Security(ctx, audit.ActionBootstrapAdmin, id, "Created admin account "+security.Sanitize(username))
	return true, nil
}

func (s *Service) createUser(ctx context.Context, username, password string, role model.Role) (model.UserID, error) {
	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}
	if err := security.ValidateUsername(username); err != nil {
		return "", err
	}
	if err := security.ValidatePassword(password); err != nil {
		return "", err
	}

	username = security.Sanitize(username)

	_, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		return "", model.ErrUsernameTaken
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return "", fmt.Errorf("look up username: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}

	// CreateUser reports ErrUsernameTaken itself if a concurrent registration won
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return "", err
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return user.ID, nil
}

// Login authenticates a user on behalf of the client at addr and issues a token.
// Locked-out addresses are rejected before any credential is looked at.
func (s *Service) Login(ctx context.Context, username, password, addr string) (*Login, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	locked, err := s.guard.CheckLocked(ctx, addr)
	if err != nil {
		s.logger.Error("login guard unavailable", "error", err)
	}
	if locked {
		s.audit.Security(ctx, audit.ActionLoginLocked, "", "Locked login attempt from IP: "+preview(addr))
		return nil, ErrLockedOut
	}

	user, err := s.storage.GetUserByUsername(ctx, security.Sanitize(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, s.fail(ctx, addr)
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.fail(ctx, addr)
	}

	if err := s.guard.RecordSuccess(ctx, addr); err != nil {
		s.logger.Error("failed to clear login attempts", "error", err)
	}

	signed, expiresAt, err := s.codec.IssueWithExpiry(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	login := &Login{
		Token:     signed,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}

	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(signed),
		CreatedAt: now,
		ExpiresAt: login.ExpiresAt,
	}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		s.logger.Error("failed to record session", "user_id", user.ID, "error", err)
	}

	s.audit.Info(ctx, audit.ActionLoginSuccess, user.ID, "User login from IP: "+preview(addr))
	return login, nil
}

// fail records a failed attempt for addr and returns the generic credentials error
func (s *Service) fail(ctx context.Context, addr string) error {
	locked, err := s.guard.RecordFailure(ctx, addr)
	if err != nil {
		s.logger.Error("failed to record login failure", "error", err)
	}
	s.metrics.LoginFailed(locked)
	s.audit.Security(ctx, audit.ActionLoginFailed, "", "Failed login attempt from IP: "+preview(addr))
	return ErrInvalidCredentials
}

// preview shortens a client address for the audit log
func preview(addr string) string {
	if len(addr) > addrPreviewLength {
		addr = addr[:addrPreviewLength]
	}
	return addr + "..."
}
