package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ig-oauth-service/usecase"
)

type ITokenHandler interface {
	Refresh(ctx *gin.Context)
	RefreshAll(ctx *gin.Context)
	GetExpiring(ctx *gin.Context)
	GetExpired(ctx *gin.Context)
}

type tokenHandler struct {
	scheduler *usecase.TokenScheduler
}

func NewTokenHandler(scheduler *usecase.TokenScheduler) ITokenHandler {
	return &tokenHandler{scheduler: scheduler}
}

// Refresh refreshes one page's token on demand.
func (h *tokenHandler) Refresh(ctx *gin.Context) {
	facebookPageID := ctx.Param("facebookPageId")
	account, err := h.scheduler.RefreshPage(ctx.Request.Context(), facebookPageID)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":        true,
		"facebookPageId": account.FacebookPageID,
		"tokenExpiresAt": account.TokenExpiresAt,
	})
}

// RefreshAll runs one refresh sweep immediately.
func (h *tokenHandler) RefreshAll(ctx *gin.Context) {
	summary, err := h.scheduler.RefreshAll(ctx.Request.Context())
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"refreshed": summary.Refreshed,
		"failed":    summary.Failed,
	})
}

// GetExpiring lists credentials expiring within the requested horizon.
func (h *tokenHandler) GetExpiring(ctx *gin.Context) {
	days, _ := strconv.Atoi(ctx.DefaultQuery("days", "30"))
	accounts, err := h.scheduler.GetExpiring(ctx.Request.Context(), days)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	type expiring struct {
		FacebookPageID   string    `json:"facebookPageId"`
		FacebookPageName string    `json:"facebookPageName"`
		TokenExpiresAt   time.Time `json:"tokenExpiresAt"`
		DaysLeft         int       `json:"daysLeft"`
	}
	now := time.Now()
	out := make([]expiring, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, expiring{
			FacebookPageID:   a.FacebookPageID,
			FacebookPageName: a.FacebookPageName,
			TokenExpiresAt:   a.TokenExpiresAt,
			DaysLeft:         int(a.TokenExpiresAt.Sub(now).Hours() / 24),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"accounts": out})
}

// GetExpired lists credentials that need a full re-authentication.
func (h *tokenHandler) GetExpired(ctx *gin.Context) {
	accounts, err := h.scheduler.GetExpired(ctx.Request.Context())
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"accounts": accounts})
}
