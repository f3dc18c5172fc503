package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/faculty-review/internal/model"
	"github.com/sakif/faculty-review/internal/repository"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ActivityLogger appends audit entries. Log never fails the caller: the
// write runs on a context detached from the request's cancellation and
// errors are only logged.
type ActivityLogger struct {
	repo   repository.ActivityRepository
	logger *slog.Logger
}

func NewActivityLogger(repo repository.ActivityRepository, logger *slog.Logger) *ActivityLogger {
	return &ActivityLogger{repo: repo, logger: logger}
}

func (l *ActivityLogger) Log(ctx context.Context, a model.Activity) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := l.repo.CreateActivity(ctx, &a); err != nil {
		l.logger.Warn("activity log write failed",
			slog.String("type", string(a.Type)),
			slog.String("userID", a.UserID),
			slog.String("error", err.Error()),
		)
	}
}
