package model

import "time"

// License gates publish access for one plugin installation. Domain is bound
// on first successful validation and stays bound until explicitly reset.
type License struct {
	ID          int64      `json:"id"`
	LicenseKey  string     `json:"license_key"`
	Domain      *string    `json:"domain,omitempty"`
	IsActive    bool       `json:"is_active"`
	UserID      *int64     `json:"user_id,omitempty"`
	UserNo      *string    `json:"user_no,omitempty"`
	UserName    *string    `json:"user_name,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LicenseListing is a license joined with its owning user's subscription
// state, for the admin listing.
type LicenseListing struct {
	License
	SubscriptionStatus    *string    `json:"subscription_status,omitempty"`
	SubscriptionPeriodEnd *time.Time `json:"subscription_period_end,omitempty"`
	LoginAccount          *string    `json:"login_account,omitempty"`
}

// User carries only the fields this core reads: identity and the
// subscription snapshot maintained by the billing integration.
type User struct {
	ID                    int64      `json:"id"`
	LoginAccount          string     `json:"login_account"`
	StripeCustomerID      *string    `json:"stripe_customer_id,omitempty"`
	SubscriptionStatus    *string    `json:"subscription_status,omitempty"`
	SubscriptionPeriodEnd *time.Time `json:"subscription_period_end,omitempty"`
	TrialEnd              *time.Time `json:"trial_end,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// HasActiveSubscription applies the billing rule: an active subscription with
// a future period end, or a trial that has not expired yet.
func (u *User) HasActiveSubscription(now time.Time) bool {
	if u.SubscriptionStatus == nil {
		return false
	}
	switch *u.SubscriptionStatus {
	case "trialing":
		return u.TrialEnd != nil && u.TrialEnd.After(now)
	case "active":
		return u.SubscriptionPeriodEnd != nil && u.SubscriptionPeriodEnd.After(now)
	}
	return false
}
