package usecase

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/domain/repository"
	"ig-oauth-service/infrastructure/logger"
)

// RefreshSummary aggregates one refresh sweep.
type RefreshSummary struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// TokenScheduler periodically refreshes page tokens approaching expiry.
// Start and Stop are idempotent; at most one loop runs at a time.
type TokenScheduler struct {
	instagram   repository.IInstagram
	accountRepo repository.IInstagramAccount

	checkInterval     time.Duration
	refreshBeforeDays int
	refreshDelay      time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	sleep func(ctx context.Context, d time.Duration) error
}

func NewTokenScheduler(
	instagram repository.IInstagram,
	accountRepo repository.IInstagramAccount,
	checkInterval time.Duration,
	refreshBeforeDays int,
	refreshDelay time.Duration,
) *TokenScheduler {
	if checkInterval <= 0 {
		checkInterval = 24 * time.Hour
	}
	if refreshBeforeDays <= 0 {
		refreshBeforeDays = 30
	}
	return &TokenScheduler{
		instagram:         instagram,
		accountRepo:       accountRepo,
		checkInterval:     checkInterval,
		refreshBeforeDays: refreshBeforeDays,
		refreshDelay:      refreshDelay,
		sleep:             sleepCtx,
	}
}

// Start launches the refresh loop: one sweep immediately, then one per
// check interval. Calling Start while running is a no-op.
func (s *TokenScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		logger.GetLogger().Warn("Token scheduler already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	logger.GetLogger().WithField("check_interval", s.checkInterval.String()).Info("Token scheduler started")
}

// Stop terminates the loop and waits for the in-flight sweep to finish.
// Calling Stop when not running is a no-op.
func (s *TokenScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.GetLogger().Info("Token scheduler stopped")
}

func (s *TokenScheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *TokenScheduler) sweep(ctx context.Context) {
	summary, err := s.RefreshAll(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Token refresh sweep failed")
		return
	}
	logger.GetLogger().
		WithField("refreshed", summary.Refreshed).
		WithField("failed", summary.Failed).
		Info("Token refresh sweep completed")
}

// RefreshAll refreshes every credential expiring within the configured
// horizon. A failing credential is counted and skipped; the sweep
// continues with the rest.
func (s *TokenScheduler) RefreshAll(ctx context.Context) (RefreshSummary, error) {
	accounts, err := s.accountRepo.GetExpiring(ctx, s.refreshBeforeDays)
	if err != nil {
		return RefreshSummary{}, err
	}

	var summary RefreshSummary
	for i, account := range accounts {
		if i > 0 && s.refreshDelay > 0 {
			if err := s.sleep(ctx, s.refreshDelay); err != nil {
				return summary, err
			}
		}
		if err := s.refreshAccount(ctx, account); err != nil {
			logger.GetLogger().
				WithField("facebook_page_id", account.FacebookPageID).
				WithField("error", err).
				Error("Failed to refresh token")
			summary.Failed++
			continue
		}
		summary.Refreshed++
	}
	return summary, nil
}

func (s *TokenScheduler) refreshAccount(ctx context.Context, account *model.InstagramAccount) error {
	token, err := s.instagram.ExchangeLongLivedToken(ctx, account.AccessToken)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdateToken(ctx, account.FacebookPageID, token.AccessToken, token.ExpiresAt); err != nil {
		return err
	}
	logger.GetLogger().
		WithField("facebook_page_id", account.FacebookPageID).
		WithField("expires_at", token.ExpiresAt).
		Info("Token refreshed")
	return nil
}

// RefreshPage refreshes a single credential on demand.
func (s *TokenScheduler) RefreshPage(ctx context.Context, facebookPageID string) (*model.InstagramAccount, error) {
	account, err := s.accountRepo.FindByPageID(ctx, facebookPageID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, model.NewAppError(model.CodeIGUserNotFound, "No Instagram account connected for this page", http.StatusNotFound)
	}
	if err := s.refreshAccount(ctx, account); err != nil {
		return nil, err
	}
	return s.accountRepo.FindByPageID(ctx, facebookPageID)
}

// GetExpiring lists credentials expiring within the given horizon.
func (s *TokenScheduler) GetExpiring(ctx context.Context, withinDays int) ([]*model.InstagramAccount, error) {
	if withinDays <= 0 {
		withinDays = s.refreshBeforeDays
	}
	return s.accountRepo.GetExpiring(ctx, withinDays)
}

// GetExpired lists credentials whose tokens have already lapsed.
func (s *TokenScheduler) GetExpired(ctx context.Context) ([]*model.InstagramAccount, error) {
	return s.accountRepo.GetExpired(ctx)
}
