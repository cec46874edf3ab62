package model

import "time"

// Attempt statuses. One PostAttempt row is written per publish invocation
// whatever the outcome; rows are never updated afterwards.
const (
	AttemptSuccess        = "success"
	AttemptFailed         = "failed"
	AttemptRateLimited    = "rate_limited"
	AttemptTokenExpired   = "token_expired"
	AttemptContainerError = "container_error"
	AttemptPublishError   = "publish_error"
)

// PostAttempt is the append-only publish attempt log.
type PostAttempt struct {
	ID              int64     `json:"id"`
	LicenseID       *int64    `json:"license_id,omitempty"`
	FacebookPageID  string    `json:"facebook_page_id"`
	ImageURL        *string   `json:"image_url,omitempty"`
	WordpressPostID *string   `json:"wordpress_post_id,omitempty"`
	Status          string    `json:"status"`
	ErrorCode       *string   `json:"error_code,omitempty"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	QuotaUsage      *int      `json:"quota_usage,omitempty"`
	QuotaTotal      int       `json:"quota_total"`
	ContainerID     *string   `json:"container_id,omitempty"`
	MediaID         *string   `json:"media_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// AttemptStats is the per-status aggregate over a time window.
type AttemptStats struct {
	Status        string `json:"status"`
	Count         int    `json:"count"`
	MaxQuotaUsage int    `json:"max_quota_usage"`
}

// AttemptErrorSummary aggregates recent failures by error code/message.
type AttemptErrorSummary struct {
	ErrorCode    *string   `json:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Count        int       `json:"count"`
	LastOccurred time.Time `json:"last_occurred"`
}
