package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ig-oauth-service/domain/model"
)

func expiringAccount(pageID string, expiresIn time.Duration) *model.InstagramAccount {
	return &model.InstagramAccount{
		FacebookPageID:  pageID,
		InstagramUserID: "ig-" + pageID,
		AccessToken:     "token-" + pageID,
		TokenExpiresAt:  time.Now().Add(expiresIn),
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	accounts := newFakeAccountRepo(
		expiringAccount("page-1", 5*24*time.Hour),
		expiringAccount("page-2", 10*24*time.Hour),
		expiringAccount("page-3", 15*24*time.Hour),
	)
	fi := &fakeInstagram{
		exchangeLongLivedFn: func(token string) (*model.LongLivedToken, error) {
			if token == "token-page-2" {
				return nil, errors.New("provider rejected the token")
			}
			return &model.LongLivedToken{AccessToken: "new-" + token, ExpiresAt: time.Now().Add(60 * 24 * time.Hour)}, nil
		},
	}
	s := NewTokenScheduler(fi, accounts, 24*time.Hour, 30, time.Second)
	s.sleep = instantSleep

	summary, err := s.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Refreshed)
	assert.Equal(t, 1, summary.Failed)

	refreshed, err := accounts.FindByPageID(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, "new-token-page-1", refreshed.AccessToken)

	untouched, err := accounts.FindByPageID(context.Background(), "page-2")
	require.NoError(t, err)
	assert.Equal(t, "token-page-2", untouched.AccessToken)
}

func TestRefreshAllSkipsDistantExpiries(t *testing.T) {
	accounts := newFakeAccountRepo(
		expiringAccount("soon", 5*24*time.Hour),
		expiringAccount("later", 50*24*time.Hour),
	)
	fi := &fakeInstagram{}
	s := NewTokenScheduler(fi, accounts, 24*time.Hour, 30, 0)

	summary, err := s.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Refreshed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, fi.refreshCalls)
}

func TestRefreshPage(t *testing.T) {
	accounts := newFakeAccountRepo(expiringAccount("page-1", 5*24*time.Hour))
	fi := &fakeInstagram{}
	s := NewTokenScheduler(fi, accounts, 24*time.Hour, 30, 0)

	account, err := s.RefreshPage(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, "long-token-page-1", account.AccessToken)

	_, err = s.RefreshPage(context.Background(), "missing")
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeIGUserNotFound, appErr.Code)
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	accounts := newFakeAccountRepo()
	s := NewTokenScheduler(&fakeInstagram{}, accounts, time.Hour, 30, 0)

	s.Start()
	s.Start() // second call is a no-op
	s.Stop()
	s.Stop() // stopping again is safe

	// The loop can be started again after a stop.
	s.Start()
	s.Stop()
}
