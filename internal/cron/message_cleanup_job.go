package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

const defaultMessageRetention = 30 * 24 * time.Hour

type MessageCleanupJobParams struct {
	Logger     *logger.Logger
	Repository messageCleanupRepo
	Retention  time.Duration
}

type messageCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewMessageCleanupJob(params MessageCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("messages repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultMessageRetention
	}
	return &messageCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type messageCleanupJob struct {
	logg      *logger.Logger
	repo      messageCleanupRepo
	retention time.Duration
	now       func() time.Time
}

func (j *messageCleanupJob) Name() string { return "message-cleanup" }

func (j *messageCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("message cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "message cleanup complete")
	return nil
}
