package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/domain/repository"
	"ig-oauth-service/infrastructure/logger"
)

const licenseKeyLength = 32

const licenseKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var licenseKeyPattern = regexp.MustCompile(`^[A-Z0-9]{32}$`)

type ILicenseUsecase interface {
	// Validate checks a key/domain pair and returns the license on success.
	// First use binds the license to the domain.
	Validate(ctx context.Context, licenseKey, domain string) (*model.License, error)
	Generate(ctx context.Context, userNo, userName *string) (*model.License, error)
	GenerateForUser(ctx context.Context, userID int64) (*model.License, error)
	GetForUser(ctx context.Context, userID int64) (*model.License, error)
	GetAll(ctx context.Context) ([]*model.LicenseListing, error)
	UpdateUserInfo(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error)
	Deactivate(ctx context.Context, licenseKey string) (*model.License, error)
	ResetDomain(ctx context.Context, licenseKey string) (*model.License, error)
	DeleteUnused(ctx context.Context, licenseKey string) error
	GetAttempts(ctx context.Context, licenseKey string, limit, offset int) ([]*model.PostAttempt, int, error)
	GetStats(ctx context.Context, licenseKey string, hours int) ([]*model.AttemptStats, error)
	GetRecentErrors(ctx context.Context, hours, limit int) ([]*model.AttemptErrorSummary, error)
}

type licenseUsecase struct {
	licenseRepo repository.ILicense
	userRepo    repository.IUser
	attemptRepo repository.IPostAttempt
	now         func() time.Time
}

func NewLicenseUsecase(licenseRepo repository.ILicense, userRepo repository.IUser, attemptRepo repository.IPostAttempt) ILicenseUsecase {
	return &licenseUsecase{
		licenseRepo: licenseRepo,
		userRepo:    userRepo,
		attemptRepo: attemptRepo,
		now:         time.Now,
	}
}

// generateLicenseKey produces a 32-character key over A-Z0-9.
func generateLicenseKey() (string, error) {
	buf := make([]byte, licenseKeyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate license key: %w", err)
	}
	for i, b := range buf {
		buf[i] = licenseKeyAlphabet[int(b)%len(licenseKeyAlphabet)]
	}
	return string(buf), nil
}

func (u *licenseUsecase) Validate(ctx context.Context, licenseKey, domain string) (*model.License, error) {
	if licenseKey == "" || domain == "" {
		return nil, model.NewAppError(model.CodeMissingParams, "License key and domain are required", http.StatusBadRequest)
	}
	if !licenseKeyPattern.MatchString(licenseKey) {
		return nil, model.NewAppError(model.CodeInvalidLicenseKey, "License key format is invalid", http.StatusBadRequest)
	}

	license, err := u.licenseRepo.FindByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, model.NewAppError(model.CodeLicenseNotFound, "Invalid license key", http.StatusForbidden)
	}
	if !license.IsActive {
		return nil, model.NewAppError(model.CodeLicenseInactive, "License has been deactivated", http.StatusForbidden)
	}

	if license.Domain == nil {
		bound, err := u.licenseRepo.Activate(ctx, licenseKey, domain)
		if err != nil {
			return nil, err
		}
		if !bound {
			// Another request bound it first; reload and fall through to
			// the comparison below.
			license, err = u.licenseRepo.FindByKey(ctx, licenseKey)
			if err != nil {
				return nil, err
			}
			if license == nil {
				return nil, model.NewAppError(model.CodeLicenseNotFound, "Invalid license key", http.StatusForbidden)
			}
		} else {
			logger.GetLogger().WithField("domain", domain).Info("License bound to domain")
			license, err = u.licenseRepo.FindByKey(ctx, licenseKey)
			if err != nil {
				return nil, err
			}
			if license == nil {
				return nil, model.NewAppError(model.CodeLicenseNotFound, "Invalid license key", http.StatusForbidden)
			}
		}
	}
	if license.Domain != nil && *license.Domain != domain {
		return nil, model.NewAppError(model.CodeDomainMismatch, "License is registered to a different domain", http.StatusForbidden)
	}

	if license.UserID != nil {
		user, err := u.userRepo.FindByID(ctx, *license.UserID)
		if err != nil {
			return nil, err
		}
		if user != nil && !user.HasActiveSubscription(u.now()) {
			return nil, model.NewAppError(model.CodeSubscriptionRequired, "An active subscription is required", http.StatusPaymentRequired)
		}
	}

	return license, nil
}

func (u *licenseUsecase) Generate(ctx context.Context, userNo, userName *string) (*model.License, error) {
	key, err := generateLicenseKey()
	if err != nil {
		return nil, err
	}
	return u.licenseRepo.Create(ctx, key, userNo, userName)
}

func (u *licenseUsecase) GenerateForUser(ctx context.Context, userID int64) (*model.License, error) {
	existing, err := u.licenseRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	key, err := generateLicenseKey()
	if err != nil {
		return nil, err
	}
	return u.licenseRepo.CreateForUser(ctx, key, userID)
}

func (u *licenseUsecase) GetForUser(ctx context.Context, userID int64) (*model.License, error) {
	return u.licenseRepo.FindByUserID(ctx, userID)
}

func (u *licenseUsecase) GetAll(ctx context.Context) ([]*model.LicenseListing, error) {
	return u.licenseRepo.GetAll(ctx)
}

func (u *licenseUsecase) UpdateUserInfo(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error) {
	license, err := u.licenseRepo.UpdateUserInfo(ctx, licenseKey, userNo, userName)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, model.NewAppError(model.CodeLicenseNotFound, "License not found", http.StatusNotFound)
	}
	return license, nil
}

func (u *licenseUsecase) Deactivate(ctx context.Context, licenseKey string) (*model.License, error) {
	license, err := u.licenseRepo.Deactivate(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, model.NewAppError(model.CodeLicenseNotFound, "License not found", http.StatusNotFound)
	}
	return license, nil
}

func (u *licenseUsecase) ResetDomain(ctx context.Context, licenseKey string) (*model.License, error) {
	license, err := u.licenseRepo.ResetDomain(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, model.NewAppError(model.CodeLicenseNotFound, "License not found", http.StatusNotFound)
	}
	logger.GetLogger().WithField("license_id", license.ID).Info("License domain reset")
	return license, nil
}

// DeleteUnused removes a license that was never bound to a domain. Bound
// licenses must be reset first so accidental deletion of a live install is
// a two-step operation.
func (u *licenseUsecase) DeleteUnused(ctx context.Context, licenseKey string) error {
	deleted, err := u.licenseRepo.DeleteUnused(ctx, licenseKey)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewAppError(model.CodeLicenseNotFound, "License not found or still bound to a domain", http.StatusNotFound)
	}
	return nil
}

func (u *licenseUsecase) GetAttempts(ctx context.Context, licenseKey string, limit, offset int) ([]*model.PostAttempt, int, error) {
	license, err := u.licenseRepo.FindByKey(ctx, licenseKey)
	if err != nil {
		return nil, 0, err
	}
	if license == nil {
		return nil, 0, model.NewAppError(model.CodeLicenseNotFound, "License not found", http.StatusNotFound)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	attempts, err := u.attemptRepo.FindByLicenseID(ctx, license.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.attemptRepo.Count(ctx, license.ID)
	if err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (u *licenseUsecase) GetStats(ctx context.Context, licenseKey string, hours int) ([]*model.AttemptStats, error) {
	license, err := u.licenseRepo.FindByKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, model.NewAppError(model.CodeLicenseNotFound, "License not found", http.StatusNotFound)
	}
	if hours <= 0 {
		hours = 24
	}
	return u.attemptRepo.GetStats(ctx, license.ID, hours)
}

func (u *licenseUsecase) GetRecentErrors(ctx context.Context, hours, limit int) ([]*model.AttemptErrorSummary, error) {
	if hours <= 0 {
		hours = 24
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return u.attemptRepo.GetRecentErrors(ctx, hours, limit)
}
