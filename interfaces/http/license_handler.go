package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/infrastructure/filecsv"
	"ig-oauth-service/infrastructure/logger"
	"ig-oauth-service/usecase"
)

type ILicenseHandler interface {
	Validate(ctx *gin.Context)
	Generate(ctx *gin.Context)
	GetAll(ctx *gin.Context)
	UpdateUserInfo(ctx *gin.Context)
	Deactivate(ctx *gin.Context)
	ResetDomain(ctx *gin.Context)
	Delete(ctx *gin.Context)
	ExportCSV(ctx *gin.Context)
	Attempts(ctx *gin.Context)
	AttemptStats(ctx *gin.Context)
	RecentErrors(ctx *gin.Context)
}

type licenseHandler struct {
	licenseUsecase usecase.ILicenseUsecase
}

func NewLicenseHandler(licenseUsecase usecase.ILicenseUsecase) ILicenseHandler {
	return &licenseHandler{licenseUsecase: licenseUsecase}
}

// Validate is the public endpoint the plugin calls to check its key.
func (h *licenseHandler) Validate(ctx *gin.Context) {
	var body struct {
		LicenseKey string `json:"license_key"`
		Domain     string `json:"domain"`
	}
	if err := ctx.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		RespondError(ctx, model.NewAppError(model.CodeMissingParams, "License key and domain are required", http.StatusBadRequest))
		return
	}
	license, err := h.licenseUsecase.Validate(ctx.Request.Context(), body.LicenseKey, body.Domain)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"domain":      license.Domain,
		"activatedAt": license.ActivatedAt,
	})
}

// Generate creates a new license key.
func (h *licenseHandler) Generate(ctx *gin.Context) {
	var body struct {
		UserNo   *string `json:"user_no"`
		UserName *string `json:"user_name"`
		UserID   *int64  `json:"user_id"`
	}
	// An empty body generates an unassigned key.
	_ = ctx.ShouldBindBodyWith(&body, binding.JSON)

	var (
		license *model.License
		err     error
	)
	if body.UserID != nil {
		license, err = h.licenseUsecase.GenerateForUser(ctx.Request.Context(), *body.UserID)
	} else {
		license, err = h.licenseUsecase.Generate(ctx.Request.Context(), body.UserNo, body.UserName)
	}
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "license": license})
}

// GetAll lists every license with its owner's subscription state.
func (h *licenseHandler) GetAll(ctx *gin.Context) {
	licenses, err := h.licenseUsecase.GetAll(ctx.Request.Context())
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"licenses": licenses, "total": len(licenses)})
}

// ExportCSV downloads the license listing as a CSV file.
func (h *licenseHandler) ExportCSV(ctx *gin.Context) {
	licenses, err := h.licenseUsecase.GetAll(ctx.Request.Context())
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.Header("Content-Type", "text/csv")
	ctx.Header("Content-Disposition", `attachment; filename="licenses.csv"`)
	if err := filecsv.WriteLicenses(ctx.Writer, licenses); err != nil {
		logger.GetLogger().WithField("error", err).Error("License CSV export failed")
	}
}

func (h *licenseHandler) UpdateUserInfo(ctx *gin.Context) {
	var body struct {
		UserNo   *string `json:"user_no"`
		UserName *string `json:"user_name"`
	}
	if err := ctx.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		RespondError(ctx, model.NewAppError(model.CodeMissingParams, "Invalid request body", http.StatusBadRequest))
		return
	}
	license, err := h.licenseUsecase.UpdateUserInfo(ctx.Request.Context(), ctx.Param("licenseKey"), body.UserNo, body.UserName)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "license": license})
}

func (h *licenseHandler) Deactivate(ctx *gin.Context) {
	license, err := h.licenseUsecase.Deactivate(ctx.Request.Context(), ctx.Param("licenseKey"))
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "license": license})
}

// ResetDomain unbinds a license so it can be activated on a new site.
func (h *licenseHandler) ResetDomain(ctx *gin.Context) {
	license, err := h.licenseUsecase.ResetDomain(ctx.Request.Context(), ctx.Param("licenseKey"))
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "license": license})
}

// Delete removes a key that was never activated.
func (h *licenseHandler) Delete(ctx *gin.Context) {
	if err := h.licenseUsecase.DeleteUnused(ctx.Request.Context(), ctx.Param("licenseKey")); err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// Attempts pages through one license's publish attempts.
func (h *licenseHandler) Attempts(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	attempts, total, err := h.licenseUsecase.GetAttempts(ctx.Request.Context(), ctx.Param("licenseKey"), limit, offset)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"attempts": attempts, "total": total})
}

// AttemptStats aggregates one license's attempts by status.
func (h *licenseHandler) AttemptStats(ctx *gin.Context) {
	hours, _ := strconv.Atoi(ctx.DefaultQuery("hours", "24"))
	stats, err := h.licenseUsecase.GetStats(ctx.Request.Context(), ctx.Param("licenseKey"), hours)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"stats": stats, "hours": hours})
}

// RecentErrors summarizes failures across all licenses.
func (h *licenseHandler) RecentErrors(ctx *gin.Context) {
	hours, _ := strconv.Atoi(ctx.DefaultQuery("hours", "24"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	errorsOut, err := h.licenseUsecase.GetRecentErrors(ctx.Request.Context(), hours, limit)
	if err != nil {
		RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"errors": errorsOut, "hours": hours})
}
