package usecase

import (
	"context"
	"fmt"
	"time"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/domain/repository"
	"ig-oauth-service/infrastructure/logger"
)

// ConnectedAccount is the per-page outcome of a completed OAuth flow.
type ConnectedAccount struct {
	FacebookPageID    string `json:"facebookPageId"`
	FacebookPageName  string `json:"facebookPageName"`
	InstagramUserID   string `json:"instagramUserId"`
	InstagramUsername string `json:"instagramUsername"`
}

type IOAuthUsecase interface {
	// CompleteOAuthFlow exchanges the callback code and stores a credential
	// row per Instagram-connected page.
	CompleteOAuthFlow(ctx context.Context, code string) ([]ConnectedAccount, error)
	GetConnectedAccounts(ctx context.Context) ([]*model.InstagramAccount, error)
}

type oauthUsecase struct {
	instagram   repository.IInstagram
	accountRepo repository.IInstagramAccount
	now         func() time.Time
}

func NewOAuthUsecase(instagram repository.IInstagram, accountRepo repository.IInstagramAccount) IOAuthUsecase {
	return &oauthUsecase{
		instagram:   instagram,
		accountRepo: accountRepo,
		now:         time.Now,
	}
}

func (u *oauthUsecase) CompleteOAuthFlow(ctx context.Context, code string) ([]ConnectedAccount, error) {
	log := logger.GetLogger()

	shortToken, err := u.instagram.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	longToken, err := u.instagram.ExchangeLongLivedToken(ctx, shortToken)
	if err != nil {
		return nil, err
	}
	facebookUserID, err := u.instagram.GetFacebookUserID(ctx, longToken.AccessToken)
	if err != nil {
		return nil, err
	}

	pages, err := u.instagram.GetUserPages(ctx, longToken.AccessToken)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no Facebook pages found for this account")
	}

	var connected []ConnectedAccount
	for _, page := range pages {
		instagramUserID := ""
		if page.InstagramBusinessAccount != nil {
			instagramUserID = page.InstagramBusinessAccount.ID
		} else {
			id, err := u.instagram.GetInstagramBusinessAccount(ctx, page.ID, page.AccessToken)
			if err != nil {
				log.WithField("page_id", page.ID).WithField("error", err).
					Info("Skipping page without Instagram business account")
				continue
			}
			instagramUserID = id
		}
		if instagramUserID == "" {
			continue
		}

		info, err := u.instagram.GetInstagramAccountInfo(ctx, instagramUserID, page.AccessToken)
		if err != nil {
			log.WithField("instagram_user_id", instagramUserID).WithField("error", err).
				Warn("Failed to fetch Instagram account info")
			info = &model.InstagramAccountInfo{ID: instagramUserID}
		}

		// Page tokens obtained with a long-lived user token share its
		// lifetime.
		account := &model.InstagramAccount{
			FacebookUserID:    facebookUserID,
			AccessToken:       page.AccessToken,
			TokenExpiresAt:    longToken.ExpiresAt,
			FacebookPageID:    page.ID,
			FacebookPageName:  page.Name,
			InstagramUserID:   instagramUserID,
			InstagramUsername: info.Username,
		}
		if err := u.accountRepo.Upsert(ctx, account); err != nil {
			return nil, err
		}
		connected = append(connected, ConnectedAccount{
			FacebookPageID:    page.ID,
			FacebookPageName:  page.Name,
			InstagramUserID:   instagramUserID,
			InstagramUsername: info.Username,
		})
	}

	if len(connected) == 0 {
		return nil, fmt.Errorf("no Instagram business accounts connected to your Facebook pages")
	}

	log.WithField("accounts", len(connected)).Info("OAuth flow completed")
	return connected, nil
}

func (u *oauthUsecase) GetConnectedAccounts(ctx context.Context) ([]*model.InstagramAccount, error) {
	return u.accountRepo.GetAll(ctx)
}
