package repository

import (
	"context"

	"ig-oauth-service/domain/model"
)

// ILicense persists license keys and their domain bindings.
type ILicense interface {
	FindByKey(ctx context.Context, licenseKey string) (*model.License, error)
	FindByUserID(ctx context.Context, userID int64) (*model.License, error)
	Create(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error)
	CreateForUser(ctx context.Context, licenseKey string, userID int64) (*model.License, error)
	// Activate binds the license to a domain only while it is unbound; it
	// reports whether the conditional update took effect.
	Activate(ctx context.Context, licenseKey, domain string) (bool, error)
	UpdateUserInfo(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error)
	Deactivate(ctx context.Context, licenseKey string) (*model.License, error)
	ResetDomain(ctx context.Context, licenseKey string) (*model.License, error)
	DeleteUnused(ctx context.Context, licenseKey string) (bool, error)
	GetAll(ctx context.Context) ([]*model.LicenseListing, error)
}

// IUser reads the account rows the license gate needs for subscription
// checks. Account creation and billing updates live outside this core.
type IUser interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByLoginAccount(ctx context.Context, loginAccount string) (*model.User, error)
}
