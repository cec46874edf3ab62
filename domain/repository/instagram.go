package repository

import (
	"context"

	"ig-oauth-service/domain/model"
)

// IInstagram is the Facebook Graph API surface this service consumes. The
// publish workflow and the scheduler depend on this interface so they can be
// exercised against fakes.
type IInstagram interface {
	// OAuth / token lifecycle
	ExchangeCode(ctx context.Context, code string) (string, error)
	ExchangeLongLivedToken(ctx context.Context, token string) (*model.LongLivedToken, error)
	GetFacebookUserID(ctx context.Context, accessToken string) (string, error)
	GetUserPages(ctx context.Context, accessToken string) ([]model.FacebookPage, error)
	GetInstagramBusinessAccount(ctx context.Context, pageID, pageAccessToken string) (string, error)
	GetInstagramAccountInfo(ctx context.Context, instagramUserID, accessToken string) (*model.InstagramAccountInfo, error)

	// Publishing
	GetPublishingLimit(ctx context.Context, instagramUserID, accessToken string) (*model.PublishingLimit, error)
	CreateMediaContainer(ctx context.Context, instagramUserID, accessToken, imageURL, caption string) (string, error)
	GetContainerStatus(ctx context.Context, containerID, accessToken string) (string, error)
	PublishContainer(ctx context.Context, instagramUserID, accessToken, containerID string) (string, error)
	GetMediaPermalink(ctx context.Context, mediaID, accessToken string) (string, error)
}
