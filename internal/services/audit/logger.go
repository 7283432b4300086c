package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/ratinggame/internal/dependencies/clock"
	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/storage"
)

// Actions recorded by the services
const (
	ActionRegister       = "REGISTER"
	ActionBootstrapAdmin = "BOOTSTRAP_ADMIN"
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionLoginLocked    = "LOGIN_LOCKED"
	ActionCreateImage    = "CREATE_IMAGE"
	ActionUploadImage    = "UPLOAD_IMAGE"
	ActionDeleteImage    = "DELETE_IMAGE"
	ActionRateImage      = "RATE_IMAGE"
)

// Config holds configuration for the audit logger
type Config struct {
	// Console mirrors every entry to the application logger
	Console bool
}

// Logger writes audit entries to the store. Write failures are logged and swallowed so
// auditing never fails the operation being audited.
type Logger struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
	console bool
}

// New creates an audit Logger
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) *Logger {
	return &Logger{
		storage: storage,
		clock:   clock,
		logger:  logger,
		console: cfg.Console,
	}
}

func (l *Logger) Debug(ctx context.Context, action string, userID model.UserID, details string) {
	l.record(ctx, model.AuditDebug, action, userID, details)
}

func (l *Logger) Info(ctx context.Context, action string, userID model.UserID, details string) {
	l.record(ctx, model.AuditInfo, action, userID, details)
}

func (l *Logger) Warn(ctx context.Context, action string, userID model.UserID, details string) {
	l.record(ctx, model.AuditWarn, action, userID, details)
}

func (l *Logger) Error(ctx context.Context, action string, userID model.UserID, details string) {
	l.record(ctx, model.AuditError, action, userID, details)
}

func (l *Logger) Security(ctx context.Context, action string, userID model.UserID, details string) {
	l.record(ctx, model.AuditSecurity, action, userID, details)
}

func (l *Logger) record(ctx context.Context, level model.AuditLevel, action string, userID model.UserID, details string) {
	entry := &model.AuditEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Level:     level,
		Action:    action,
		Details:   details,
		CreatedAt: l.clock.Now(),
	}

	if l.console {
		l.logger.Log(ctx, slogLevel(level), "audit",
			"level", string(level),
			"action", action,
			"user_id", string(userID),
			"details", details,
		)
	}

	if err := l.storage.SaveAuditEntry(ctx, entry); err != nil {
		l.logger.Error("failed to write audit entry",
			"action", action,
			"error", err,
		)
	}
}

func slogLevel(level model.AuditLevel) slog.Level {
	switch level {
	case model.AuditDebug:
		return slog.LevelDebug
	case model.AuditWarn, model.AuditSecurity:
		return slog.LevelWarn
	case model.AuditError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
