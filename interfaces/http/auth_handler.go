package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ig-oauth-service/infrastructure/clients/instagram"
	"ig-oauth-service/infrastructure/logger"
	"ig-oauth-service/usecase"
)

const stateTTL = 10 * time.Minute

type IAuthHandler interface {
	Login(ctx *gin.Context)
	Callback(ctx *gin.Context)
	Status(ctx *gin.Context)
}

type authHandler struct {
	client       *instagram.Client
	oauthUsecase usecase.IOAuthUsecase

	stateMu sync.Mutex
	states  map[string]time.Time
}

func NewAuthHandler(client *instagram.Client, oauthUsecase usecase.IOAuthUsecase) IAuthHandler {
	return &authHandler{
		client:       client,
		oauthUsecase: oauthUsecase,
		states:       map[string]time.Time{},
	}
}

func (h *authHandler) newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)

	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	now := time.Now()
	for s, issued := range h.states {
		if now.Sub(issued) > stateTTL {
			delete(h.states, s)
		}
	}
	h.states[state] = now
	return state, nil
}

func (h *authHandler) consumeState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	issued, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(issued) <= stateTTL
}

// Login redirects the browser to the Facebook consent screen.
func (h *authHandler) Login(ctx *gin.Context) {
	state, err := h.newState()
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, h.client.AuthCodeURL(state))
}

// Callback completes the OAuth flow after consent.
func (h *authHandler) Callback(ctx *gin.Context) {
	if errParam := ctx.Query("error"); errParam != "" {
		logger.GetLogger().WithField("error", errParam).Warn("OAuth consent denied")
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Authorization was denied",
		})
		return
	}
	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing authorization code",
		})
		return
	}
	if !h.consumeState(ctx.Query("state")) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid or missing state",
		})
		return
	}

	connected, err := h.oauthUsecase.CompleteOAuthFlow(ctx.Request.Context(), code)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("OAuth flow failed")
		ctx.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Instagram accounts connected",
		"accounts": connected,
	})
}

// Status lists the stored credentials and their token expiry.
func (h *authHandler) Status(ctx *gin.Context) {
	accounts, err := h.oauthUsecase.GetConnectedAccounts(ctx.Request.Context())
	if err != nil {
		RespondError(ctx, err)
		return
	}
	type accountStatus struct {
		FacebookPageID    string    `json:"facebookPageId"`
		FacebookPageName  string    `json:"facebookPageName"`
		InstagramUserID   string    `json:"instagramUserId"`
		InstagramUsername string    `json:"instagramUsername"`
		TokenExpiresAt    time.Time `json:"tokenExpiresAt"`
		TokenExpired      bool      `json:"tokenExpired"`
	}
	now := time.Now()
	out := make([]accountStatus, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountStatus{
			FacebookPageID:    a.FacebookPageID,
			FacebookPageName:  a.FacebookPageName,
			InstagramUserID:   a.InstagramUserID,
			InstagramUsername: a.InstagramUsername,
			TokenExpiresAt:    a.TokenExpiresAt,
			TokenExpired:      a.TokenExpired(now),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"connected": len(out) > 0,
		"accounts":  out,
	})
}
