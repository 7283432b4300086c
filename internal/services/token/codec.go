package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/model"
)

// DefaultTTL is the fixed lifetime of every issued token
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned for any token that fails verification: bad signature,
// unexpected algorithm, expiry, malformed payload
var ErrInvalidToken = errors.New("invalid or expired token")

// Config holds configuration for the token codec
type Config struct {
	Secret []byte
	TTL    time.Duration
}

// Codec signs and verifies HS256 authentication tokens
type Codec struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

type claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewCodec creates a Codec. The secret must be non-empty.
func NewCodec(cfg Config, clk clock.Clock) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Codec{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		clock:  clk,
	}, nil
}

// TTL returns the lifetime applied to issued tokens
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the subject, valid from now for the codec's TTL
func (c *Codec) Issue(subjectID model.UserID, role model.Role) (string, error) {
	signed, _, err := c.IssueWithExpiry(subjectID, role)
	return signed, err
}

// IssueWithExpiry signs a token and returns the instant it stops verifying. Claims
// carry whole seconds, so the issue time is truncated before the TTL is added.
func (c *Codec) IssueWithExpiry(subjectID model.UserID, role model.Role) (string, time.Time, error) {
	now := c.clock.Now().Truncate(time.Second)
	expiresAt := now.Add(c.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: string(subjectID),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of raw and returns the identity it carries.
// Every failure is reported as ErrInvalidToken.
func (c *Codec) Verify(raw string) (model.Identity, error) {
	if raw == "" {
		return model.Identity{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || cl.UserID == "" || !model.Role(cl.Role).Valid() {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{
		SubjectID: model.UserID(cl.UserID),
		Role:      model.Role(cl.Role),
	}, nil
}
