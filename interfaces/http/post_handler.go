package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/usecase"
)

type IPostHandler interface {
	Post(ctx *gin.Context)
	GetLimit(ctx *gin.Context)
	History(ctx *gin.Context)
}

type postHandler struct {
	publishUsecase usecase.IPublishUsecase
	licenseUsecase usecase.ILicenseUsecase
}

func NewPostHandler(publishUsecase usecase.IPublishUsecase, licenseUsecase usecase.ILicenseUsecase) IPostHandler {
	return &postHandler{
		publishUsecase: publishUsecase,
		licenseUsecase: licenseUsecase,
	}
}

type postRequestBody struct {
	FacebookPageID  string  `json:"facebook_page_id"`
	ImageURL        string  `json:"image_url"`
	Caption         string  `json:"caption"`
	WordpressPostID *string `json:"wordpress_post_id"`
}

// Post publishes an image to the page's Instagram account.
func (h *postHandler) Post(ctx *gin.Context) {
	var body postRequestBody
	if err := ctx.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		RespondError(ctx, model.NewAppError(model.CodeMissingParams, "Invalid request body", http.StatusBadRequest))
		return
	}
	if body.FacebookPageID == "" || body.ImageURL == "" {
		RespondError(ctx, model.NewAppError(model.CodeMissingParams, "facebook_page_id and image_url are required", http.StatusBadRequest))
		return
	}

	req := usecase.PostRequest{
		FacebookPageID:  body.FacebookPageID,
		ImageURL:        body.ImageURL,
		Caption:         body.Caption,
		WordpressPostID: body.WordpressPostID,
	}
	if license := LicenseFromContext(ctx); license != nil {
		req.LicenseID = &license.ID
	}

	result, err := h.publishUsecase.PostToInstagram(ctx.Request.Context(), req)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"mediaId":    result.MediaID,
		"permalink":  result.Permalink,
		"quotaUsage": result.QuotaUsage,
		"quotaTotal": result.QuotaTotal,
	})
}

// GetLimit reports the page's remaining daily publishing quota.
func (h *postHandler) GetLimit(ctx *gin.Context) {
	facebookPageID := ctx.Param("facebookPageId")
	limit, err := h.publishUsecase.CheckLimit(ctx.Request.Context(), facebookPageID)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"quotaUsage": limit.QuotaUsage,
		"quotaTotal": limit.QuotaTotal,
		"remaining":  limit.Remaining(),
	})
}

// History pages through the caller's publish attempts.
func (h *postHandler) History(ctx *gin.Context) {
	license := LicenseFromContext(ctx)
	if license == nil {
		RespondError(ctx, model.NewAppError(model.CodeUnauthorized, "License validation required", http.StatusUnauthorized))
		return
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	attempts, total, err := h.licenseUsecase.GetAttempts(ctx.Request.Context(), license.LicenseKey, limit, offset)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}
