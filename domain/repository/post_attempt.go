package repository

import (
	"context"

	"ig-oauth-service/domain/model"
)

// IPostAttempt is the append-only publish attempt log.
type IPostAttempt interface {
	Create(ctx context.Context, attempt *model.PostAttempt) (*model.PostAttempt, error)
	FindByLicenseID(ctx context.Context, licenseID int64, limit, offset int) ([]*model.PostAttempt, error)
	Count(ctx context.Context, licenseID int64) (int, error)
	GetStats(ctx context.Context, licenseID int64, hours int) ([]*model.AttemptStats, error)
	GetRecentErrors(ctx context.Context, hours, limit int) ([]*model.AttemptErrorSummary, error)
}
