package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"ig-oauth-service/domain/model"
)

// fakeInstagram implements repository.IInstagram with overridable funcs and
// call counters.
type fakeInstagram struct {
	mu sync.Mutex

	exchangeCodeFn      func(code string) (string, error)
	exchangeLongLivedFn func(token string) (*model.LongLivedToken, error)
	userPagesFn         func(token string) ([]model.FacebookPage, error)
	publishingLimitFn   func(igUserID string) (*model.PublishingLimit, error)
	createContainerFn   func(igUserID, imageURL, caption string) (string, error)
	containerStatusFn   func(containerID string, call int) (string, error)
	publishContainerFn  func(igUserID, containerID string) (string, error)
	permalinkFn         func(mediaID string) (string, error)
	accountInfoFn       func(igUserID string) (*model.InstagramAccountInfo, error)

	limitCalls     int
	containerCalls int
	statusCalls    int
	publishCalls   int
	refreshCalls   int
}

func (f *fakeInstagram) ExchangeCode(ctx context.Context, code string) (string, error) {
	if f.exchangeCodeFn != nil {
		return f.exchangeCodeFn(code)
	}
	return "short-token", nil
}

func (f *fakeInstagram) ExchangeLongLivedToken(ctx context.Context, token string) (*model.LongLivedToken, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.exchangeLongLivedFn != nil {
		return f.exchangeLongLivedFn(token)
	}
	return &model.LongLivedToken{AccessToken: "long-" + token, ExpiresAt: time.Now().Add(60 * 24 * time.Hour)}, nil
}

func (f *fakeInstagram) GetFacebookUserID(ctx context.Context, accessToken string) (string, error) {
	return "fb-user-1", nil
}

func (f *fakeInstagram) GetUserPages(ctx context.Context, accessToken string) ([]model.FacebookPage, error) {
	if f.userPagesFn != nil {
		return f.userPagesFn(accessToken)
	}
	return nil, nil
}

func (f *fakeInstagram) GetInstagramBusinessAccount(ctx context.Context, pageID, pageAccessToken string) (string, error) {
	return "", errors.New("no instagram business account")
}

func (f *fakeInstagram) GetInstagramAccountInfo(ctx context.Context, instagramUserID, accessToken string) (*model.InstagramAccountInfo, error) {
	if f.accountInfoFn != nil {
		return f.accountInfoFn(instagramUserID)
	}
	return &model.InstagramAccountInfo{ID: instagramUserID, Username: "user_" + instagramUserID}, nil
}

func (f *fakeInstagram) GetPublishingLimit(ctx context.Context, instagramUserID, accessToken string) (*model.PublishingLimit, error) {
	f.mu.Lock()
	f.limitCalls++
	f.mu.Unlock()
	if f.publishingLimitFn != nil {
		return f.publishingLimitFn(instagramUserID)
	}
	return &model.PublishingLimit{QuotaUsage: 0, QuotaTotal: 25}, nil
}

func (f *fakeInstagram) CreateMediaContainer(ctx context.Context, instagramUserID, accessToken, imageURL, caption string) (string, error) {
	f.mu.Lock()
	f.containerCalls++
	f.mu.Unlock()
	if f.createContainerFn != nil {
		return f.createContainerFn(instagramUserID, imageURL, caption)
	}
	return "container-1", nil
}

func (f *fakeInstagram) GetContainerStatus(ctx context.Context, containerID, accessToken string) (string, error) {
	f.mu.Lock()
	f.statusCalls++
	call := f.statusCalls
	f.mu.Unlock()
	if f.containerStatusFn != nil {
		return f.containerStatusFn(containerID, call)
	}
	return "FINISHED", nil
}

func (f *fakeInstagram) PublishContainer(ctx context.Context, instagramUserID, accessToken, containerID string) (string, error) {
	f.mu.Lock()
	f.publishCalls++
	f.mu.Unlock()
	if f.publishContainerFn != nil {
		return f.publishContainerFn(instagramUserID, containerID)
	}
	return "media-1", nil
}

func (f *fakeInstagram) GetMediaPermalink(ctx context.Context, mediaID, accessToken string) (string, error) {
	if f.permalinkFn != nil {
		return f.permalinkFn(mediaID)
	}
	return "https://www.instagram.com/p/" + mediaID + "/", nil
}

// fakeAccountRepo is an in-memory credential store keyed by page id.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.InstagramAccount
	upserts  int
}

func newFakeAccountRepo(accounts ...*model.InstagramAccount) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: map[string]*model.InstagramAccount{}}
	for _, a := range accounts {
		repo.accounts[a.FacebookPageID] = a
	}
	return repo
}

func (r *fakeAccountRepo) FindByPageID(ctx context.Context, facebookPageID string) (*model.InstagramAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[facebookPageID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAccountRepo) FindByInstagramUserID(ctx context.Context, instagramUserID string) (*model.InstagramAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.InstagramUserID == instagramUserID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) FindByFacebookUserID(ctx context.Context, facebookUserID string) ([]*model.InstagramAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.InstagramAccount
	for _, a := range r.accounts {
		if a.FacebookUserID == facebookUserID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, account *model.InstagramAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	cp := *account
	r.accounts[account.FacebookPageID] = &cp
	return nil
}

func (r *fakeAccountRepo) UpdateToken(ctx context.Context, facebookPageID, accessToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[facebookPageID]
	if !ok {
		return errors.New("no credential stored for page " + facebookPageID)
	}
	a.AccessToken = accessToken
	a.TokenExpiresAt = expiresAt
	return nil
}

func (r *fakeAccountRepo) GetAll(ctx context.Context) ([]*model.InstagramAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.InstagramAccount
	for _, a := range r.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAccountRepo) GetExpiring(ctx context.Context, withinDays int) ([]*model.InstagramAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(time.Duration(withinDays) * 24 * time.Hour)
	var out []*model.InstagramAccount
	for _, a := range r.accounts {
		if a.TokenExpiresAt.Before(cutoff) && a.TokenExpiresAt.After(time.Now()) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) GetExpired(ctx context.Context) ([]*model.InstagramAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.InstagramAccount
	for _, a := range r.accounts {
		if a.TokenExpiresAt.Before(time.Now()) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeAttemptRepo records created attempts in order.
type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []*model.PostAttempt
}

func (r *fakeAttemptRepo) Create(ctx context.Context, attempt *model.PostAttempt) (*model.PostAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *attempt
	cp.ID = int64(len(r.attempts) + 1)
	cp.CreatedAt = time.Now()
	r.attempts = append(r.attempts, &cp)
	return &cp, nil
}

func (r *fakeAttemptRepo) FindByLicenseID(ctx context.Context, licenseID int64, limit, offset int) ([]*model.PostAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PostAttempt
	for _, a := range r.attempts {
		if a.LicenseID != nil && *a.LicenseID == licenseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAttemptRepo) Count(ctx context.Context, licenseID int64) (int, error) {
	list, _ := r.FindByLicenseID(ctx, licenseID, 0, 0)
	return len(list), nil
}

func (r *fakeAttemptRepo) GetStats(ctx context.Context, licenseID int64, hours int) ([]*model.AttemptStats, error) {
	return nil, nil
}

func (r *fakeAttemptRepo) GetRecentErrors(ctx context.Context, hours, limit int) ([]*model.AttemptErrorSummary, error) {
	return nil, nil
}

func (r *fakeAttemptRepo) last() *model.PostAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) == 0 {
		return nil
	}
	return r.attempts[len(r.attempts)-1]
}

func (r *fakeAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// fakeLicenseRepo is an in-memory license store.
type fakeLicenseRepo struct {
	mu       sync.Mutex
	licenses map[string]*model.License
	nextID   int64
}

func newFakeLicenseRepo(licenses ...*model.License) *fakeLicenseRepo {
	repo := &fakeLicenseRepo{licenses: map[string]*model.License{}, nextID: 100}
	for _, l := range licenses {
		repo.licenses[l.LicenseKey] = l
	}
	return repo
}

func (r *fakeLicenseRepo) FindByKey(ctx context.Context, licenseKey string) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[licenseKey]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLicenseRepo) FindByUserID(ctx context.Context, userID int64) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.licenses {
		if l.UserID != nil && *l.UserID == userID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeLicenseRepo) create(licenseKey string, userID *int64, userNo, userName *string) *model.License {
	r.nextID++
	l := &model.License{
		ID:         r.nextID,
		LicenseKey: licenseKey,
		IsActive:   true,
		UserID:     userID,
		UserNo:     userNo,
		UserName:   userName,
		CreatedAt:  time.Now(),
	}
	r.licenses[licenseKey] = l
	return l
}

func (r *fakeLicenseRepo) Create(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.create(licenseKey, nil, userNo, userName)
	return &cp, nil
}

func (r *fakeLicenseRepo) CreateForUser(ctx context.Context, licenseKey string, userID int64) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.create(licenseKey, &userID, nil, nil)
	return &cp, nil
}

func (r *fakeLicenseRepo) Activate(ctx context.Context, licenseKey, domain string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[licenseKey]
	if !ok || !l.IsActive || l.Domain != nil {
		return false, nil
	}
	d := domain
	now := time.Now()
	l.Domain = &d
	l.ActivatedAt = &now
	return true, nil
}

func (r *fakeLicenseRepo) UpdateUserInfo(ctx context.Context, licenseKey string, userNo, userName *string) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[licenseKey]
	if !ok {
		return nil, nil
	}
	l.UserNo = userNo
	l.UserName = userName
	cp := *l
	return &cp, nil
}

func (r *fakeLicenseRepo) Deactivate(ctx context.Context, licenseKey string) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[licenseKey]
	if !ok {
		return nil, nil
	}
	l.IsActive = false
	cp := *l
	return &cp, nil
}

func (r *fakeLicenseRepo) ResetDomain(ctx context.Context, licenseKey string) (*model.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[licenseKey]
	if !ok {
		return nil, nil
	}
	l.Domain = nil
	l.ActivatedAt = nil
	cp := *l
	return &cp, nil
}

func (r *fakeLicenseRepo) DeleteUnused(ctx context.Context, licenseKey string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.licenses[licenseKey]
	if !ok || l.Domain != nil {
		return false, nil
	}
	delete(r.licenses, licenseKey)
	return true, nil
}

func (r *fakeLicenseRepo) GetAll(ctx context.Context) ([]*model.LicenseListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.LicenseListing
	for _, l := range r.licenses {
		out = append(out, &model.LicenseListing{License: *l})
	}
	return out, nil
}

// fakeUserRepo serves subscription lookups.
type fakeUserRepo struct {
	users map[int64]*model.User
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if r.users == nil {
		return nil, nil
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *fakeUserRepo) FindByLoginAccount(ctx context.Context, loginAccount string) (*model.User, error) {
	for _, u := range r.users {
		if u.LoginAccount == loginAccount {
			return u, nil
		}
	}
	return nil, nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }

func timePtr(t time.Time) *time.Time { return &t }

// instantSleep advances without waiting so poll loops run fast in tests.
func instantSleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
