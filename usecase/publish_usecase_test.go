package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/infrastructure/cache"
)

func validAccount() *model.InstagramAccount {
	return &model.InstagramAccount{
		ID:              1,
		FacebookUserID:  "fb-user-1",
		AccessToken:     "page-token",
		TokenExpiresAt:  time.Now().Add(30 * 24 * time.Hour),
		FacebookPageID:  "page-1",
		InstagramUserID: "ig-1",
	}
}

func newPublishForTest(fi *fakeInstagram, accounts *fakeAccountRepo) (*publishUsecase, *fakeAttemptRepo) {
	attempts := &fakeAttemptRepo{}
	u := NewPublishUsecase(
		fi, accounts, attempts,
		cache.NewQuotaCache(nil),
		2*time.Second, 30,
	).(*publishUsecase)
	u.sleep = instantSleep
	return u, attempts
}

func TestPostToInstagramSuccess(t *testing.T) {
	fi := &fakeInstagram{
		publishingLimitFn: func(string) (*model.PublishingLimit, error) {
			return &model.PublishingLimit{QuotaUsage: 3, QuotaTotal: 25}, nil
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	res, err := u.PostToInstagram(context.Background(), PostRequest{
		FacebookPageID: "page-1",
		ImageURL:       "https://example.com/pic.jpg",
		Caption:        "hello world",
		LicenseID:      int64Ptr(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "media-1", res.MediaID)
	assert.Equal(t, "https://www.instagram.com/p/media-1/", res.Permalink)
	assert.Equal(t, 4, res.QuotaUsage)

	require.Equal(t, 1, attempts.count())
	attempt := attempts.last()
	assert.Equal(t, model.AttemptSuccess, attempt.Status)
	assert.Equal(t, int64(7), *attempt.LicenseID)
	assert.Equal(t, "container-1", *attempt.ContainerID)
	assert.Equal(t, "media-1", *attempt.MediaID)
	assert.Equal(t, 4, *attempt.QuotaUsage)
}

func TestPostToInstagramUnknownPage(t *testing.T) {
	fi := &fakeInstagram{}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo())

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "nope", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeIGUserNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)

	assert.Equal(t, 0, fi.limitCalls)
	assert.Equal(t, 0, fi.containerCalls)
	require.Equal(t, 1, attempts.count())
	assert.Equal(t, model.AttemptFailed, attempts.last().Status)
}

func TestPostToInstagramExpiredTokenMakesNoProviderCalls(t *testing.T) {
	account := validAccount()
	account.TokenExpiresAt = time.Now().Add(-time.Hour)
	fi := &fakeInstagram{}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(account))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeTokenExpired, appErr.Code)

	assert.Equal(t, 0, fi.limitCalls)
	assert.Equal(t, 0, fi.containerCalls)
	assert.Equal(t, 0, fi.statusCalls)
	assert.Equal(t, 0, fi.publishCalls)
	require.Equal(t, 1, attempts.count())
	assert.Equal(t, model.AttemptTokenExpired, attempts.last().Status)
}

func TestPostToInstagramCaptionTooLong(t *testing.T) {
	fi := &fakeInstagram{}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{
		FacebookPageID: "page-1",
		ImageURL:       "https://example.com/p.jpg",
		Caption:        strings.Repeat("a", 2201),
	})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeCaptionTooLong, appErr.Code)
	assert.Equal(t, 0, fi.limitCalls)
	assert.Equal(t, 0, fi.containerCalls)
	assert.Equal(t, model.AttemptFailed, attempts.last().Status)
}

func TestPostToInstagramCaptionAtLimitPasses(t *testing.T) {
	fi := &fakeInstagram{}
	u, _ := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{
		FacebookPageID: "page-1",
		ImageURL:       "https://example.com/p.jpg",
		Caption:        strings.Repeat("a", 2200),
	})
	require.NoError(t, err)
}

func TestPostToInstagramQuotaExhausted(t *testing.T) {
	fi := &fakeInstagram{
		publishingLimitFn: func(string) (*model.PublishingLimit, error) {
			return &model.PublishingLimit{QuotaUsage: 25, QuotaTotal: 25}, nil
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeRateLimitExceeded, appErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
	require.NotNil(t, appErr.QuotaUsage)
	assert.Equal(t, 25, *appErr.QuotaUsage)

	// The quota gate runs before any container is created.
	assert.Equal(t, 0, fi.containerCalls)
	attempt := attempts.last()
	assert.Equal(t, model.AttemptRateLimited, attempt.Status)
	assert.Equal(t, 25, *attempt.QuotaUsage)
}

func TestPostToInstagramLimitCheckFailureFailsAttempt(t *testing.T) {
	fi := &fakeInstagram{
		publishingLimitFn: func(string) (*model.PublishingLimit, error) {
			return nil, errors.New("limit endpoint down")
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeInternalError, appErr.Code)

	// The quota state is unknown, so no container is created.
	assert.Equal(t, 0, fi.containerCalls)
	assert.Equal(t, 1, attempts.count())
	assert.Equal(t, model.AttemptFailed, attempts.last().Status)
}

func TestPostToInstagramMissingContainerStatusIsTerminal(t *testing.T) {
	fi := &fakeInstagram{
		containerStatusFn: func(string, int) (string, error) {
			return "", nil
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeContainerError, appErr.Code)

	// A missing status fails on the first poll instead of burning the budget.
	assert.Equal(t, 1, fi.statusCalls)
	assert.Equal(t, 0, fi.publishCalls)
	assert.Equal(t, model.AttemptContainerError, attempts.last().Status)
}

func TestPostToInstagramContainerError(t *testing.T) {
	fi := &fakeInstagram{
		containerStatusFn: func(_ string, call int) (string, error) {
			if call == 1 {
				return "IN_PROGRESS", nil
			}
			return "ERROR", nil
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeContainerError, appErr.Code)

	assert.Equal(t, 2, fi.statusCalls)
	assert.Equal(t, 0, fi.publishCalls)
	attempt := attempts.last()
	assert.Equal(t, model.AttemptContainerError, attempt.Status)
	assert.Equal(t, "container-1", *attempt.ContainerID)
}

func TestPostToInstagramContainerTimeout(t *testing.T) {
	fi := &fakeInstagram{
		containerStatusFn: func(string, int) (string, error) {
			return "IN_PROGRESS", nil
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeContainerTimeout, appErr.Code)

	assert.Equal(t, 30, fi.statusCalls)
	assert.Equal(t, 0, fi.publishCalls)
	assert.Equal(t, model.AttemptContainerError, attempts.last().Status)
}

func TestPostToInstagramTransientStatusErrorsKeepPolling(t *testing.T) {
	fi := &fakeInstagram{
		containerStatusFn: func(_ string, call int) (string, error) {
			if call <= 2 {
				return "", errors.New("network blip")
			}
			return "FINISHED", nil
		},
	}
	u, _ := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	res, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "media-1", res.MediaID)
	assert.Equal(t, 3, fi.statusCalls)
}

func TestPostToInstagramPublishError(t *testing.T) {
	fi := &fakeInstagram{
		publishContainerFn: func(string, string) (string, error) {
			return "", errors.New("media cannot be published")
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	_, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodePublishError, appErr.Code)
	assert.Equal(t, model.AttemptPublishError, attempts.last().Status)
}

func TestPostToInstagramPermalinkFailureIsIgnored(t *testing.T) {
	fi := &fakeInstagram{
		permalinkFn: func(string) (string, error) {
			return "", errors.New("permalink unavailable")
		},
	}
	u, attempts := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	res, err := u.PostToInstagram(context.Background(), PostRequest{FacebookPageID: "page-1", ImageURL: "https://example.com/p.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "media-1", res.MediaID)
	assert.Empty(t, res.Permalink)
	assert.Equal(t, model.AttemptSuccess, attempts.last().Status)
}

func TestCheckLimit(t *testing.T) {
	fi := &fakeInstagram{
		publishingLimitFn: func(string) (*model.PublishingLimit, error) {
			return &model.PublishingLimit{QuotaUsage: 10, QuotaTotal: 25}, nil
		},
	}
	u, _ := newPublishForTest(fi, newFakeAccountRepo(validAccount()))

	limit, err := u.CheckLimit(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, 10, limit.QuotaUsage)
	assert.Equal(t, 15, limit.Remaining())

	_, err = u.CheckLimit(context.Background(), "missing")
	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, model.CodeIGUserNotFound, appErr.Code)
}
