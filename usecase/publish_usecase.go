package usecase

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/domain/repository"
	"ig-oauth-service/infrastructure/cache"
	"ig-oauth-service/infrastructure/logger"
)

// AttemptEventSink receives every recorded attempt. Sinks are best-effort;
// a failing sink never affects the publish response.
type AttemptEventSink interface {
	PublishAttempt(ctx context.Context, attempt *model.PostAttempt)
}

// maxCaptionLength is the provider's caption limit.
const maxCaptionLength = 2200

// Container status codes reported by the Graph API.
const (
	containerFinished   = "FINISHED"
	containerError      = "ERROR"
	containerExpired    = "EXPIRED"
	containerInProgress = "IN_PROGRESS"
)

// PostRequest is one publish invocation.
type PostRequest struct {
	FacebookPageID  string
	ImageURL        string
	Caption         string
	WordpressPostID *string
	LicenseID       *int64
}

// PostResult reports a successful publish.
type PostResult struct {
	MediaID    string `json:"mediaId"`
	Permalink  string `json:"permalink,omitempty"`
	QuotaUsage int    `json:"quotaUsage"`
	QuotaTotal int    `json:"quotaTotal"`
}

type IPublishUsecase interface {
	// PostToInstagram runs the full publish workflow. Exactly one attempt
	// row is recorded per call, whatever the outcome.
	PostToInstagram(ctx context.Context, req PostRequest) (*PostResult, error)
	CheckLimit(ctx context.Context, facebookPageID string) (*model.PublishingLimit, error)
}

type publishUsecase struct {
	instagram   repository.IInstagram
	accountRepo repository.IInstagramAccount
	attemptRepo repository.IPostAttempt
	quotaCache  *cache.QuotaCache
	sinks       []AttemptEventSink

	pollInterval    time.Duration
	maxPollAttempts int
	now             func() time.Time
	sleep           func(ctx context.Context, d time.Duration) error
}

func NewPublishUsecase(
	instagram repository.IInstagram,
	accountRepo repository.IInstagramAccount,
	attemptRepo repository.IPostAttempt,
	quotaCache *cache.QuotaCache,
	pollInterval time.Duration,
	maxPollAttempts int,
	sinks ...AttemptEventSink,
) IPublishUsecase {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxPollAttempts <= 0 {
		maxPollAttempts = 30
	}
	return &publishUsecase{
		instagram:       instagram,
		accountRepo:     accountRepo,
		attemptRepo:     attemptRepo,
		quotaCache:      quotaCache,
		sinks:           sinks,
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
		now:             time.Now,
		sleep:           sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recordAttempt writes the attempt row and emits the event. Persistence
// failures are logged; they never mask the publish outcome.
func (u *publishUsecase) recordAttempt(ctx context.Context, attempt *model.PostAttempt) {
	created, err := u.attemptRepo.Create(ctx, attempt)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Failed to record post attempt")
		created = attempt
	}
	for _, sink := range u.sinks {
		sink.PublishAttempt(ctx, created)
	}
}

func (u *publishUsecase) failAttempt(ctx context.Context, req PostRequest, status string, appErr *model.AppError) *model.AppError {
	attempt := &model.PostAttempt{
		LicenseID:       req.LicenseID,
		FacebookPageID:  req.FacebookPageID,
		ImageURL:        strPtrOrNil(req.ImageURL),
		WordpressPostID: req.WordpressPostID,
		Status:          status,
		ErrorCode:       &appErr.Code,
		ErrorMessage:    &appErr.Message,
		QuotaUsage:      appErr.QuotaUsage,
	}
	u.recordAttempt(ctx, attempt)
	return appErr
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (u *publishUsecase) PostToInstagram(ctx context.Context, req PostRequest) (*PostResult, error) {
	log := logger.GetLogger().WithField("facebook_page_id", req.FacebookPageID)

	account, err := u.accountRepo.FindByPageID(ctx, req.FacebookPageID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, u.failAttempt(ctx, req, model.AttemptFailed,
			model.NewAppError(model.CodeIGUserNotFound, "No Instagram account connected for this page", http.StatusNotFound))
	}
	if account.TokenExpired(u.now()) {
		return nil, u.failAttempt(ctx, req, model.AttemptTokenExpired,
			model.NewAppError(model.CodeTokenExpired, "Access token has expired, please re-authenticate", http.StatusUnauthorized))
	}
	if utf8.RuneCountInString(req.Caption) > maxCaptionLength {
		return nil, u.failAttempt(ctx, req, model.AttemptFailed,
			model.NewAppError(model.CodeCaptionTooLong, "Caption exceeds the 2200 character limit", http.StatusBadRequest))
	}

	limit := u.quotaCache.Get(ctx, account.InstagramUserID)
	if limit == nil {
		limit, err = u.instagram.GetPublishingLimit(ctx, account.InstagramUserID, account.AccessToken)
		if err != nil {
			return nil, u.failAttempt(ctx, req, model.AttemptFailed,
				model.NewAppError(model.CodeInternalError, "Failed to check publishing limit", http.StatusBadGateway).WithDetail(err.Error()))
		}
		u.quotaCache.Set(ctx, account.InstagramUserID, limit)
	}
	quotaUsage := limit.QuotaUsage
	quotaTotal := limit.QuotaTotal
	if limit.Remaining() == 0 {
		appErr := model.NewAppError(model.CodeRateLimitExceeded, "Daily publishing limit reached", http.StatusTooManyRequests)
		appErr.QuotaUsage = &limit.QuotaUsage
		return nil, u.failAttempt(ctx, req, model.AttemptRateLimited, appErr)
	}

	containerID, err := u.instagram.CreateMediaContainer(ctx, account.InstagramUserID, account.AccessToken, req.ImageURL, req.Caption)
	if err != nil {
		return nil, u.failAttempt(ctx, req, model.AttemptContainerError,
			model.NewAppError(model.CodeContainerError, "Failed to create media container", http.StatusBadGateway).WithDetail(err.Error()))
	}
	log = log.WithField("container_id", containerID)

	if appErr := u.waitForContainer(ctx, account, containerID); appErr != nil {
		return nil, u.failAttemptWithContainer(ctx, req, containerID, appErr)
	}

	mediaID, err := u.instagram.PublishContainer(ctx, account.InstagramUserID, account.AccessToken, containerID)
	if err != nil {
		appErr := model.NewAppError(model.CodePublishError, "Failed to publish media", http.StatusBadGateway).WithDetail(err.Error())
		return nil, u.failAttemptWithContainer(ctx, req, containerID, appErr)
	}

	permalink, err := u.instagram.GetMediaPermalink(ctx, mediaID, account.AccessToken)
	if err != nil {
		log.WithField("error", err).Warn("Failed to fetch media permalink")
		permalink = ""
	}

	u.quotaCache.Invalidate(ctx, account.InstagramUserID)

	usage := quotaUsage + 1
	u.recordAttempt(ctx, &model.PostAttempt{
		LicenseID:       req.LicenseID,
		FacebookPageID:  req.FacebookPageID,
		ImageURL:        strPtrOrNil(req.ImageURL),
		WordpressPostID: req.WordpressPostID,
		Status:          model.AttemptSuccess,
		QuotaUsage:      &usage,
		QuotaTotal:      quotaTotal,
		ContainerID:     &containerID,
		MediaID:         &mediaID,
	})

	log.WithField("media_id", mediaID).Info("Media published")
	return &PostResult{
		MediaID:    mediaID,
		Permalink:  permalink,
		QuotaUsage: usage,
		QuotaTotal: quotaTotal,
	}, nil
}

func (u *publishUsecase) failAttemptWithContainer(ctx context.Context, req PostRequest, containerID string, appErr *model.AppError) *model.AppError {
	status := model.AttemptContainerError
	if appErr.Code == model.CodePublishError {
		status = model.AttemptPublishError
	}
	attempt := &model.PostAttempt{
		LicenseID:       req.LicenseID,
		FacebookPageID:  req.FacebookPageID,
		ImageURL:        strPtrOrNil(req.ImageURL),
		WordpressPostID: req.WordpressPostID,
		Status:          status,
		ErrorCode:       &appErr.Code,
		ErrorMessage:    &appErr.Message,
		ContainerID:     &containerID,
	}
	u.recordAttempt(ctx, attempt)
	return appErr
}

// waitForContainer polls the container until it is ready. Transient status
// errors count against the attempt budget instead of aborting; the provider
// occasionally returns errors for containers that finish moments later.
func (u *publishUsecase) waitForContainer(ctx context.Context, account *model.InstagramAccount, containerID string) *model.AppError {
	log := logger.GetLogger().WithField("container_id", containerID)
	for i := 0; i < u.maxPollAttempts; i++ {
		status, err := u.instagram.GetContainerStatus(ctx, containerID, account.AccessToken)
		if err != nil {
			log.WithField("error", err).Warn("Container status check failed, retrying")
		} else {
			switch status {
			case containerFinished:
				return nil
			case containerError, containerExpired, "":
				detail := "container status " + status
				if status == "" {
					detail = "container status missing"
				}
				return model.NewAppError(model.CodeContainerError, "Media container processing failed", http.StatusBadGateway).
					WithDetail(detail)
			case containerInProgress:
				// keep waiting
			default:
				log.WithField("status", status).Warn("Unexpected container status")
			}
		}
		if i < u.maxPollAttempts-1 {
			if err := u.sleep(ctx, u.pollInterval); err != nil {
				return model.NewAppError(model.CodeContainerError, "Publish cancelled", http.StatusBadGateway).WithDetail(err.Error())
			}
		}
	}
	return model.NewAppError(model.CodeContainerTimeout, "Media container was not ready in time", http.StatusGatewayTimeout)
}

func (u *publishUsecase) CheckLimit(ctx context.Context, facebookPageID string) (*model.PublishingLimit, error) {
	account, err := u.accountRepo.FindByPageID(ctx, facebookPageID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, model.NewAppError(model.CodeIGUserNotFound, "No Instagram account connected for this page", http.StatusNotFound)
	}
	if account.TokenExpired(u.now()) {
		return nil, model.NewAppError(model.CodeTokenExpired, "Access token has expired, please re-authenticate", http.StatusUnauthorized)
	}
	if limit := u.quotaCache.Get(ctx, account.InstagramUserID); limit != nil {
		return limit, nil
	}
	limit, err := u.instagram.GetPublishingLimit(ctx, account.InstagramUserID, account.AccessToken)
	if err != nil {
		return nil, err
	}
	u.quotaCache.Set(ctx, account.InstagramUserID, limit)
	return limit, nil
}
