package auth

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/ratinggame/internal/dependencies/mocks"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/observability"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/services/limiter"
	"github.com/mcoot/ratinggame/internal/services/security"
	"github.com/mcoot/ratinggame/internal/services/token"
	"github.com/mcoot/ratinggame/internal/storage/memory"
	"github.com/mcoot/ratinggame/internal/testutil"
	trackermemory "github.com/mcoot/ratinggame/internal/tracker/memory"
)

const (
	validPassword = "Test123!"
	clientAddr    = "203.0.113.77"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	flaky   *testutil.FlakyStorage
	clock   *mocks.MockClock
	codec   *token.Codec
	guard   *limiter.LoginGuard
	metrics *observability.Metrics
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.flaky = &testutil.FlakyStorage{Storage: s.storage}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	codec, err := token.NewCodec(token.Config{Secret: []byte("test-secret")}, s.clock)
	s.Require().NoError(err)
	s.codec = codec

	s.guard = limiter.NewLoginGuard(trackermemory.New[limiter.LoginAttempt](), s.clock, limiter.DefaultLoginGuardConfig())
	s.metrics = observability.NewMetrics(prometheus.NewRegistry())

	s.service = New(Dependencies{
		Storage: s.flaky,
		Hasher:  security.NewHasher(bcrypt.MinCost),
		Codec:   s.codec,
		Guard:   s.guard,
		Audit:   audit.New(s.flaky, s.clock, testutil.NopLogger(), audit.Config{}),
		Metrics: s.metrics,
		Clock:   s.clock,
		Logger:  testutil.NopLogger(),
	})
	s.ctx = context.Background()
}

func (s *ServiceSuite) register(username string) model.UserID {
	id, err := s.service.Register(s.ctx, username, validPassword)
	s.Require().NoError(err)
	return id
}

func (s *ServiceSuite) auditActions() []string {
	entries, err := s.storage.ListAuditEntries(s.ctx, 0)
	s.Require().NoError(err)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	id := s.register("alice")
	s.NotEmpty(id)

	user, err := s.storage.GetUser(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("alice", user.Username)
	s.Equal(model.RolePlayer, user.Role)
	s.Equal(s.clock.Now(), user.CreatedAt)
}

func (s *ServiceSuite) TestRegisterHashesPassword() {
	id := s.register("alice")

	user, _ := s.storage.GetUser(s.ctx, id)
	s.NotEqual(validPassword, user.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(validPassword)))
}

func (s *ServiceSuite) TestRegisterSanitizesUsername() {
	id := s.register("<b>bob</b>")

	user, _ := s.storage.GetUser(s.ctx, id)
	s.Equal("&lt;b&gt;bob&lt;&#x2F;b&gt;", user.Username)
}

func (s *ServiceSuite) TestRegisterDuplicateUsername() {
	s.register("alice")

	_, err := s.service.Register(s.ctx, "alice", validPassword)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ServiceSuite) TestRegisterDuplicateAfterSanitizing() {
	s.register("a/b")

	_, err := s.service.Register(s.ctx, "a&#x2F;b", validPassword)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ServiceSuite) TestRegisterValidation() {
	cases := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"missing username", "", validPassword, ErrMissingCredentials},
		{"missing password", "alice", "", ErrMissingCredentials},
		{"short username", "al", validPassword, security.ErrShortUsername},
		{"weak password", "alice", "123", security.ErrWeakPassword},
		{"no symbol", "alice", "Test1234", security.ErrWeakPassword},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.Register(s.ctx, tc.username, tc.password)
			s.ErrorIs(err, tc.want)
		})
	}

	count, _ := s.storage.GetUserByUsername(s.ctx, "alice")
	s.Nil(count)
}

func (s *ServiceSuite) TestValidationPrecedesDuplicateCheck() {
	s.register("alice")

	_, err := s.service.Register(s.ctx, "alice", "weak")
	s.ErrorIs(err, security.ErrWeakPassword)
}

func (s *ServiceSuite) TestRegisterAudited() {
	s.register("alice")
	s.Equal([]string{audit.ActionRegister}, s.auditActions())
}

// Admin bootstrap tests

func (s *ServiceSuite) TestEnsureAdminCreatesAdmin() {
	created, err := s.service.EnsureAdmin(s.ctx, "root", validPassword)
	s.Require().NoError(err)
	s.True(created)

	user, err := s.storage.GetUserByUsername(s.ctx, "root")
	s.Require().NoError(err)
	s.Equal(model.RoleAdmin, user.Role)
	s.Equal([]string{audit.ActionBootstrapAdmin}, s.auditActions())

	login, err := s.service.Login(s.ctx, "root", validPassword, clientAddr)
	s.Require().NoError(err)
	s.Equal(model.RoleAdmin, login.Role)
}

func (s *ServiceSuite) TestEnsureAdminKeepsExistingUser() {
	id := s.register("root")

	created, err := s.service.EnsureAdmin(s.ctx, "root", "Other123!")
	s.Require().NoError(err)
	s.False(created)

	user, err := s.storage.GetUserByUsername(s.ctx, "root")
	s.Require().NoError(err)
	s.Equal(id, user.ID)
	s.Equal(model.RolePlayer, user.Role)
}

func (s *ServiceSuite) TestEnsureAdminEnforcesPasswordPolicy() {
	_, err := s.service.EnsureAdmin(s.ctx, "root", "weak")
	s.ErrorIs(err, security.ErrWeakPassword)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	id := s.register("alice")

	login, err := s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.Require().NoError(err)
	s.Equal(id, login.UserID)
	s.Equal(model.RolePlayer, login.Role)
	s.Equal(s.clock.Now().Add(24*time.Hour), login.ExpiresAt)

	identity, err := s.codec.Verify(login.Token)
	s.Require().NoError(err)
	s.Equal(id, identity.SubjectID)
	s.Equal(model.RolePlayer, identity.Role)
}

func (s *ServiceSuite) TestLoginExpiryMatchesTokenWhenMidSecond() {
	s.register("alice")
	s.clock.Advance(900 * time.Millisecond)

	login, err := s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC), login.ExpiresAt)

	s.clock.Set(login.ExpiresAt.Add(-time.Millisecond))
	_, err = s.codec.Verify(login.Token)
	s.NoError(err)

	s.clock.Set(login.ExpiresAt)
	_, err = s.codec.Verify(login.Token)
	s.ErrorIs(err, token.ErrInvalidToken)
}

func (s *ServiceSuite) TestLoginRecordsSessionAndAudit() {
	s.register("alice")

	_, err := s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.Require().NoError(err)

	s.Equal(1, s.storage.SessionCount())

	entries, _ := s.storage.ListAuditEntries(s.ctx, 1)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionLoginSuccess, entries[0].Action)
	s.Equal("User login from IP: 203.0.113....", entries[0].Details)
}

func (s *ServiceSuite) TestLoginSanitizesUsername() {
	s.register("<b>bob</b>")

	_, err := s.service.Login(s.ctx, "<b>bob</b>", validPassword, clientAddr)
	s.NoError(err)
}

func (s *ServiceSuite) TestLoginMissingCredentials() {
	_, err := s.service.Login(s.ctx, "", validPassword, clientAddr)
	s.ErrorIs(err, ErrMissingCredentials)

	_, err = s.service.Login(s.ctx, "alice", "", clientAddr)
	s.ErrorIs(err, ErrMissingCredentials)

	attempt, _ := s.guard.Attempts(s.ctx, clientAddr)
	s.Equal(0, attempt.Count, "malformed requests are not counted as failures")
}

func (s *ServiceSuite) TestLoginWrongPassword() {
	s.register("alice")

	_, err := s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)
	s.ErrorIs(err, ErrInvalidCredentials)

	attempt, _ := s.guard.Attempts(s.ctx, clientAddr)
	s.Equal(1, attempt.Count)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.LoginFailuresTotal))
}

func (s *ServiceSuite) TestLoginUnknownUserLooksLikeWrongPassword() {
	_, err := s.service.Login(s.ctx, "nobody", validPassword, clientAddr)
	s.ErrorIs(err, ErrInvalidCredentials)

	attempt, _ := s.guard.Attempts(s.ctx, clientAddr)
	s.Equal(1, attempt.Count)
}

func (s *ServiceSuite) TestLockoutAfterFiveFailures() {
	s.register("alice")

	for i := 0; i < 5; i++ {
		_, err := s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)
		s.ErrorIs(err, ErrInvalidCredentials)
	}
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.LoginLockoutsTotal))

	// Correct credentials are refused while locked
	_, err := s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.ErrorIs(err, ErrLockedOut)

	// Another address is unaffected
	_, err = s.service.Login(s.ctx, "alice", validPassword, "198.51.100.1")
	s.NoError(err)
}

func (s *ServiceSuite) TestLockedAttemptIsNotCounted() {
	s.register("alice")
	for i := 0; i < 5; i++ {
		_, _ = s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)
	}

	_, _ = s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)

	attempt, _ := s.guard.Attempts(s.ctx, clientAddr)
	s.Equal(5, attempt.Count)
}

func (s *ServiceSuite) TestLockoutExpires() {
	s.register("alice")
	for i := 0; i < 5; i++ {
		_, _ = s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)
	}

	s.clock.Advance(15 * time.Minute)

	_, err := s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.Require().NoError(err)

	attempt, _ := s.guard.Attempts(s.ctx, clientAddr)
	s.Equal(0, attempt.Count, "success clears the failure history")
}

func (s *ServiceSuite) TestFailureAfterLockExpiryRelocks() {
	s.register("alice")
	for i := 0; i < 5; i++ {
		_, _ = s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)
	}
	s.clock.Advance(15 * time.Minute)

	_, err := s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.ErrorIs(err, ErrLockedOut)
}

func (s *ServiceSuite) TestSessionAndAuditFailuresDoNotFailLogin() {
	s.register("alice")
	s.flaky.FailSessions = true
	s.flaky.FailAudit = true

	login, err := s.service.Login(s.ctx, "alice", validPassword, clientAddr)
	s.Require().NoError(err)
	s.NotEmpty(login.Token)
	s.Equal(0, s.storage.SessionCount())
}

func (s *ServiceSuite) TestLoginFailuresAudited() {
	s.register("alice")
	_, _ = s.service.Login(s.ctx, "alice", "Wrong123!", clientAddr)

	s.Equal([]string{audit.ActionLoginFailed, audit.ActionRegister}, s.auditActions())
}

func (s *ServiceSuite) TestPreview() {
	s.Equal("short...", preview("short"))
	s.Equal("2001:db8:8...", preview("2001:db8:85a3::8a2e:370:7334"))
	s.Equal("unknown...", preview("unknown"))
}
