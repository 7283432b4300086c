package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mcoot/ratinggame/internal/api"
	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/dependencies/random"
	"github.com/mcoot/ratinggame/internal/imagehost"
	memoryhost "github.com/mcoot/ratinggame/internal/imagehost/memory"
	s3host "github.com/mcoot/ratinggame/internal/imagehost/s3"
	"github.com/mcoot/ratinggame/internal/observability"
	"github.com/mcoot/ratinggame/internal/services/audit"
	"github.com/mcoot/ratinggame/internal/services/auth"
	"github.com/mcoot/ratinggame/internal/services/images"
	"github.com/mcoot/ratinggame/internal/services/limiter"
	"github.com/mcoot/ratinggame/internal/services/ratings"
	"github.com/mcoot/ratinggame/internal/services/security"
	"github.com/mcoot/ratinggame/internal/services/token"
	"github.com/mcoot/ratinggame/internal/storage"
	"github.com/mcoot/ratinggame/internal/storage/memory"
	"github.com/mcoot/ratinggame/internal/storage/postgres"
	redisstorage "github.com/mcoot/ratinggame/internal/storage/redis"
	"github.com/mcoot/ratinggame/internal/tracker"
	memorytracker "github.com/mcoot/ratinggame/internal/tracker/memory"
	redistracker "github.com/mcoot/ratinggame/internal/tracker/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// Tracker type constants
const (
	TrackerTypeMemory = "memory"
	TrackerTypeRedis  = "redis"
)

// Image host constants
const (
	ImageHostMemory = "memory"
	ImageHostS3     = "s3"
)

// jwtSecretLength is the number of hex characters in a generated signing secret
const jwtSecretLength = 128

// App contains all wired application components
type App struct {
	// Storage
	Storage   storage.Storage
	ImageHost imagehost.Host

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger

	// Security primitives
	Hasher      *security.Hasher
	Codec       *token.Codec
	LoginGuard  *limiter.LoginGuard
	RateLimiter *limiter.RateLimiter

	// Observability
	Audit    *audit.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	// Services
	AuthService   *auth.Service
	ImageService  *images.Service
	RatingService *ratings.Service

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType or
	// TrackerType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// TrackerType selects where login failures and request windows live
	// ("memory" or "redis"). If empty, defaults to "memory"
	TrackerType string
	// ImageHost selects where uploaded files go ("memory" or "s3")
	// If empty, defaults to "memory"
	ImageHost string
	// S3Config holds bucket settings (required if ImageHost is "s3")
	S3Config *s3host.Config
	// JWTSecret signs access tokens. If empty, a random secret is generated
	JWTSecret string
	// TokenTTL is the access token lifetime. If zero, defaults to token.DefaultTTL
	TokenTTL time.Duration
	// HashCost is the bcrypt cost. If zero, defaults to security.DefaultHashCost
	HashCost int
	// ConsoleAudit mirrors audit entries to the logger
	ConsoleAudit bool
	// AdminUsername and AdminPassword, when set, name an ADMIN account created on
	// start if the username is free
	AdminUsername string
	AdminPassword string
	// LoginGuard and RateLimit override the limiter defaults when non-zero
	LoginGuard limiter.LoginGuardConfig
	RateLimit  limiter.RateLimiterConfig
}

// dependencies are the swappable collaborators newWithDependencies wires together
type dependencies struct {
	storage     storage.Storage
	host        imagehost.Host
	loginStore  tracker.Store[limiter.LoginAttempt]
	windowStore tracker.Store[[]time.Time]
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger
	closers     []io.Closer
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg = withDefaults(cfg)

	deps := dependencies{
		clock:  clock.New(),
		random: random.New(),
		logger: logger,
	}

	if err := openStorage(cfg, &deps); err != nil {
		closeAll(deps.closers)
		return nil, err
	}
	if err := openTrackers(cfg, &deps); err != nil {
		closeAll(deps.closers)
		return nil, err
	}
	if err := openImageHost(ctx, cfg, &deps); err != nil {
		closeAll(deps.closers)
		return nil, err
	}

	app, err := newWithDependencies(deps, cfg)
	if err != nil {
		closeAll(deps.closers)
		return nil, err
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.AdminUsername != "" {
		if err := app.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			closeAll(deps.closers)
			return nil, err
		}
	}
	if _, ok := app.ImageHost.(*memoryhost.Host); ok {
		logger.Warn("using in-memory image host; uploads are served from /uploads and lost on restart")
	}
	return app, nil
}

// EnsureAdmin creates the named ADMIN account unless the username is taken
func (a *App) EnsureAdmin(ctx context.Context, username, password string) error {
	created, err := a.AuthService.EnsureAdmin(ctx, username, password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		a.Logger.Info("created admin account", slog.String("username", username))
	} else {
		a.Logger.Debug("admin account already present", slog.String("username", username))
	}
	return nil
}

func withDefaults(cfg Config) Config {
	if cfg.StorageType == "" {
		cfg.StorageType = StorageTypeMemory
	}
	if cfg.TrackerType == "" {
		cfg.TrackerType = TrackerTypeMemory
	}
	if cfg.ImageHost == "" {
		cfg.ImageHost = ImageHostMemory
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = token.DefaultTTL
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = security.DefaultHashCost
	}
	if cfg.LoginGuard.MaxFailures == 0 {
		cfg.LoginGuard = limiter.DefaultLoginGuardConfig()
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit = limiter.DefaultRateLimiterConfig()
	}
	return cfg
}

func openStorage(cfg Config, deps *dependencies) error {
	switch cfg.StorageType {
	case StorageTypeMemory:
		deps.storage = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return err
		}
		deps.storage = redisStore
		deps.closers = append(deps.closers, redisStore)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.New(*cfg.PostgresConfig)
		if err != nil {
			return err
		}
		deps.storage = pgStore
		deps.closers = append(deps.closers, pgStore)
	default:
		return fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", cfg.StorageType)
	}
	return nil
}

func openTrackers(cfg Config, deps *dependencies) error {
	switch cfg.TrackerType {
	case TrackerTypeMemory:
		deps.loginStore = memorytracker.New[limiter.LoginAttempt]()
		deps.windowStore = memorytracker.New[[]time.Time]()
	case TrackerTypeRedis:
		var client *goredis.Client
		if redisStore, ok := deps.storage.(*redisstorage.Storage); ok {
			client = redisStore.Client()
		} else {
			if cfg.RedisConfig == nil {
				return errors.New("RedisConfig required when TrackerType is redis")
			}
			c, err := redisstorage.Connect(*cfg.RedisConfig)
			if err != nil {
				return err
			}
			client = c
			deps.closers = append(deps.closers, c)
		}
		// Login records outlive any lockout so failure counts carry over
		deps.loginStore = redistracker.New[limiter.LoginAttempt](client, "login", 0)
		deps.windowStore = redistracker.New[[]time.Time](client, "window", cfg.RateLimit.Window)
	default:
		return fmt.Errorf("invalid TrackerType %q: must be 'memory' or 'redis'", cfg.TrackerType)
	}
	return nil
}

func openImageHost(ctx context.Context, cfg Config, deps *dependencies) error {
	switch cfg.ImageHost {
	case ImageHostMemory:
		deps.host = memoryhost.New("")
	case ImageHostS3:
		if cfg.S3Config == nil {
			return errors.New("S3Config required when ImageHost is s3")
		}
		host, err := s3host.New(ctx, *cfg.S3Config)
		if err != nil {
			return err
		}
		deps.host = host
	default:
		return fmt.Errorf("invalid ImageHost %q: must be 'memory' or 's3'", cfg.ImageHost)
	}
	return nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies, cfg Config) (*App, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = deps.random.String(jwtSecretLength, random.HexAlphabet)
		deps.logger.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}
	codec, err := token.NewCodec(token.Config{Secret: []byte(secret), TTL: cfg.TokenTTL}, deps.clock)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	hasher := security.NewHasher(cfg.HashCost)
	guard := limiter.NewLoginGuard(deps.loginStore, deps.clock, cfg.LoginGuard)
	rateLimiter := limiter.NewRateLimiter(deps.windowStore, deps.clock, cfg.RateLimit)
	auditLogger := audit.New(deps.storage, deps.clock, deps.logger, audit.Config{Console: cfg.ConsoleAudit})

	authService := auth.New(auth.Dependencies{
		Storage: deps.storage,
		Hasher:  hasher,
		Codec:   codec,
		Guard:   guard,
		Audit:   auditLogger,
		Metrics: metrics,
		Clock:   deps.clock,
		Logger:  deps.logger,
	})
	imageService := images.New(deps.storage, deps.host, auditLogger, deps.clock, deps.logger)
	ratingService := ratings.New(deps.storage, auditLogger, metrics, deps.clock)

	return &App{
		Storage:       deps.storage,
		ImageHost:     deps.host,
		Clock:         deps.clock,
		Random:        deps.random,
		Logger:        deps.logger,
		Hasher:        hasher,
		Codec:         codec,
		LoginGuard:    guard,
		RateLimiter:   rateLimiter,
		Audit:         auditLogger,
		Metrics:       metrics,
		Registry:      registry,
		AuthService:   authService,
		ImageService:  imageService,
		RatingService: ratingService,
		closers:       deps.closers,
	}, nil
}

// Router builds the HTTP handler serving the app
func (a *App) Router(allowedOrigins []string) http.Handler {
	cfg := api.RouterConfig{
		Logger:         a.Logger,
		AuthService:    a.AuthService,
		ImageService:   a.ImageService,
		RatingService:  a.RatingService,
		Codec:          a.Codec,
		RateLimiter:    a.RateLimiter,
		Metrics:        a.Metrics,
		Registry:       a.Registry,
		AllowedOrigins: allowedOrigins,
	}
	if host, ok := a.ImageHost.(*memoryhost.Host); ok {
		cfg.Uploads = host
	}
	return api.NewRouter(cfg)
}

// RunPruner evicts idle rate limiter windows every interval until ctx is done
func (a *App) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.RateLimiter.Prune(ctx)
			if err != nil {
				a.Logger.Warn("failed to prune rate limiter", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				a.Logger.Debug("pruned rate limiter windows", slog.Int("count", n))
			}
		}
	}
}

// Close releases the connections opened by New
func (a *App) Close() error {
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
