package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/logger"
)

func TestMessageCleanupJobDeletesOldMessages(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	repo := &fakeMessageCleanupRepo{}
	job := newMessageCleanupJob(t, repo, 720*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-720 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestMessageCleanupJobDefaultsRetention(t *testing.T) {
	repo := &fakeMessageCleanupRepo{}
	job := newMessageCleanupJob(t, repo, 0)
	if job.retention != defaultMessageRetention {
		t.Fatalf("expected default retention %s, got %s", defaultMessageRetention, job.retention)
	}
}

func TestMessageCleanupJobPropagatesError(t *testing.T) {
	repo := &fakeMessageCleanupRepo{err: errors.New("boom")}
	job := newMessageCleanupJob(t, repo, time.Hour)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newMessageCleanupJob(t *testing.T, repo *fakeMessageCleanupRepo, retention time.Duration) *messageCleanupJob {
	t.Helper()
	jobIface, err := NewMessageCleanupJob(MessageCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewMessageCleanupJob: %v", err)
	}
	job, ok := jobIface.(*messageCleanupJob)
	if !ok {
		t.Fatalf("expected messageCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeMessageCleanupRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeMessageCleanupRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 4, nil
}
