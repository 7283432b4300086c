package testutil

import (
	"context"
	"errors"

	"github.com/mcoot/ratinggame/internal/model"
	"github.com/mcoot/ratinggame/internal/storage"
)

// ErrWriteFailed is returned by FlakyStorage for the writes it is told to fail
var ErrWriteFailed = errors.New("write failed")

// FlakyStorage wraps a Storage and fails session and audit writes on demand
type FlakyStorage struct {
	storage.Storage
	FailSessions bool
	FailAudit    bool
}

func (f *FlakyStorage) SaveSession(ctx context.Context, session *model.Session) error {
	if f.FailSessions {
		return ErrWriteFailed
	}
	return f.Storage.SaveSession(ctx, session)
}

func (f *FlakyStorage) SaveAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if f.FailAudit {
		return ErrWriteFailed
	}
	return f.Storage.SaveAuditEntry(ctx, entry)
}
