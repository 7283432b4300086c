package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the process configuration read from the environment
type Config struct {
	Port   int
	AppEnv string

	// JWTSecret signs access tokens. When empty a random secret is generated at
	// start, which invalidates every token on restart.
	JWTSecret string

	StorageType string
	RedisURL    string
	DatabaseURL string
	TrackerType string

	ImageHost string
	S3        S3Config

	AllowedOrigins []string

	// AdminUsername and AdminPassword name an ADMIN account created at start
	// when no user holds that username yet. Both or neither must be set.
	AdminUsername string
	AdminPassword string
}

// S3Config holds the S3_* variables
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	PublicURL    string
	UsePathStyle bool
}

// IsProduction reports whether APP_ENV is production
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Addr returns the listen address for Port
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LoadDotEnv loads variables from the given files (default .env) without
// overriding anything already set. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment
func Load() (Config, error) {
	port, err := intFromEnv("PORT", 3000)
	if err != nil {
		return Config{}, err
	}
	pathStyle, err := boolFromEnv("S3_USE_PATH_STYLE", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:        port,
		AppEnv:      firstNonEmpty(os.Getenv("APP_ENV"), EnvDevelopment),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		StorageType: strings.ToLower(firstNonEmpty(os.Getenv("STORAGE_TYPE"), "memory")),
		RedisURL:    firstNonEmpty(os.Getenv("REDIS_URL"), "redis://localhost:6379/0"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		TrackerType: strings.ToLower(firstNonEmpty(os.Getenv("TRACKER_TYPE"), "memory")),
		ImageHost:   strings.ToLower(firstNonEmpty(os.Getenv("IMAGE_HOST"), "memory")),
		S3: S3Config{
			Bucket:       os.Getenv("S3_BUCKET"),
			Region:       firstNonEmpty(os.Getenv("S3_REGION"), "us-east-1"),
			Endpoint:     os.Getenv("S3_ENDPOINT"),
			AccessKey:    os.Getenv("S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("S3_SECRET_KEY"),
			PublicURL:    os.Getenv("S3_PUBLIC_URL"),
			UsePathStyle: pathStyle,
		},
		AllowedOrigins: parseCSV(firstNonEmpty(os.Getenv("ALLOWED_ORIGINS"), "http://localhost:3000")),
		AdminUsername:  strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend selections and their required settings
func (c Config) Validate() error {
	switch c.StorageType {
	case "memory", "redis":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or postgres", c.StorageType)
	}

	switch c.TrackerType {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid TRACKER_TYPE %q: must be memory or redis", c.TrackerType)
	}

	switch c.ImageHost {
	case "memory":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET required when IMAGE_HOST=s3")
		}
	default:
		return fmt.Errorf("invalid IMAGE_HOST %q: must be memory or s3", c.ImageHost)
	}

	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func parseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
