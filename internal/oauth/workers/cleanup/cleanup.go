package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ContextStore exposes cleanup for expired authorization contexts.
type ContextStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// CleanupService periodically removes expired OAuth authorization contexts.
type CleanupService struct {
	store    ContextStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store ContextStore, opts ...CleanupOption) (*CleanupService, error) {
	if store == nil {
		return nil, fmt.Errorf("context store is required")
	}
	svc := &CleanupService{
		store:    store,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "authz context cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce returns the number of contexts removed.
func (s *CleanupService) RunOnce(ctx context.Context) (int, error) {
	deleted, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired authz contexts: %w", err)
	}
	if deleted > 0 {
		s.logger.DebugContext(ctx, "removed expired authz contexts", "count", deleted)
	}
	return deleted, nil
}
