package repository

import (
	"context"
	"time"

	"ig-oauth-service/domain/model"
)

// IInstagramAccount is the credential store. Every operation is a single-row
// keyed statement; each page's credential is independently owned.
type IInstagramAccount interface {
	FindByPageID(ctx context.Context, facebookPageID string) (*model.InstagramAccount, error)
	FindByInstagramUserID(ctx context.Context, instagramUserID string) (*model.InstagramAccount, error)
	FindByFacebookUserID(ctx context.Context, facebookUserID string) ([]*model.InstagramAccount, error)
	Upsert(ctx context.Context, account *model.InstagramAccount) error
	UpdateToken(ctx context.Context, facebookPageID, accessToken string, expiresAt time.Time) error
	GetAll(ctx context.Context) ([]*model.InstagramAccount, error)
	GetExpiring(ctx context.Context, withinDays int) ([]*model.InstagramAccount, error)
	GetExpired(ctx context.Context) ([]*model.InstagramAccount, error)
}
