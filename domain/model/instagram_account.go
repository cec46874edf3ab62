package model

import "time"

// InstagramAccount is one publishable Instagram business account discovered
// through the Facebook OAuth flow. The row is keyed by the parent Facebook
// page id; re-auth for the same page updates it in place.
type InstagramAccount struct {
	ID                int64     `json:"id"`
	FacebookUserID    string    `json:"facebook_user_id"`
	AccessToken       string    `json:"-"`
	TokenExpiresAt    time.Time `json:"token_expires_at"`
	FacebookPageID    string    `json:"facebook_page_id"`
	FacebookPageName  string    `json:"facebook_page_name"`
	InstagramUserID   string    `json:"instagram_user_id"`
	InstagramUsername string    `json:"instagram_username"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TokenExpired reports whether the stored page token is past its expiry.
func (a *InstagramAccount) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt.Before(now)
}

// FacebookPage is one entry of GET /me/accounts.
type FacebookPage struct {
	ID                       string             `json:"id"`
	Name                     string             `json:"name"`
	AccessToken              string             `json:"access_token"`
	InstagramBusinessAccount *InstagramIDHolder `json:"instagram_business_account,omitempty"`
}

// InstagramIDHolder wraps the nested id object the Graph API returns for
// connected Instagram accounts.
type InstagramIDHolder struct {
	ID string `json:"id"`
}

// InstagramAccountInfo is the public metadata of an IG business account.
type InstagramAccountInfo struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// LongLivedToken is the result of a long-lived token exchange or refresh.
type LongLivedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// PublishingLimit is the provider-reported content publishing quota.
type PublishingLimit struct {
	QuotaUsage int `json:"quota_usage"`
	QuotaTotal int `json:"quota_total"`
}

// Remaining returns the quota headroom, never negative.
func (l PublishingLimit) Remaining() int {
	if r := l.QuotaTotal - l.QuotaUsage; r > 0 {
		return r
	}
	return 0
}
