package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/grantd/internal/provider/store"
)

// HousekeepingService periodically deletes spent authorization codes and,
// when a retention is configured, tokens that expired long enough ago.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// TokenRetention is how long a token row is kept after it expires. Zero
	// keeps every token so refresh-after-expiry keeps working.
	TokenRetention time.Duration

	Now func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:          store,
		Logger:         logger,
		Interval:       interval,
		TokenRetention: retention,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "token_retention", s.TokenRetention)
}

// Stop shuts down the worker and waits for an in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each deletion is independent, a failure in one
// does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}

	codes, err := s.Store.AuthorizationCodes().DeleteStaleAuthorizationCodes(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete stale authorization codes", "error", err)
	}

	var tokens int64
	if s.TokenRetention > 0 {
		tokens, err = s.Store.Tokens().DeleteTokensExpiredBefore(ctx, now.Add(-s.TokenRetention))
		if err != nil {
			s.Logger.Error("failed to delete expired tokens", "error", err)
		}
	}

	s.Logger.Info("housekeeping cleanup completed", "codes_deleted", codes, "tokens_deleted", tokens)
}
