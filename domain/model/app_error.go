package model

import "fmt"

// Stable machine-readable error codes returned to callers.
const (
	CodeMissingParams        = "MISSING_PARAMS"
	CodeInvalidLicenseKey    = "INVALID_LICENSE_KEY"
	CodeCaptionTooLong       = "CAPTION_TOO_LONG"
	CodeIGUserNotFound       = "IG_USER_NOT_FOUND"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeContainerError       = "CONTAINER_ERROR"
	CodeContainerTimeout     = "CONTAINER_TIMEOUT"
	CodePublishError         = "PUBLISH_ERROR"
	CodeLicenseNotFound      = "LICENSE_NOT_FOUND"
	CodeLicenseInactive      = "LICENSE_INACTIVE"
	CodeDomainMismatch       = "DOMAIN_MISMATCH"
	CodeSubscriptionRequired = "SUBSCRIPTION_REQUIRED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// AppError carries a stable code, a user-facing message, and optional
// provider detail. Detail is logged but stripped from responses in the
// hardened deployment mode.
type AppError struct {
	// Success is always false; the plugin dispatches on this field.
	Success    bool   `json:"success"`
	Code       string `json:"code"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	Status     int    `json:"-"`
	QuotaUsage *int   `json:"quotaUsage,omitempty"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError builds an AppError with an HTTP-equivalent status.
func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// WithDetail attaches provider detail and returns the same error.
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}
