package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ig-oauth-service/domain/model"
	"ig-oauth-service/infrastructure/configuration"
	"ig-oauth-service/infrastructure/logger"
)

// ContextLicenseKey is the gin context key the license gate stores the
// validated license under.
const ContextLicenseKey = "license"

// LicenseFromContext returns the license stored by the gate, or nil.
func LicenseFromContext(ctx *gin.Context) *model.License {
	v, ok := ctx.Get(ContextLicenseKey)
	if !ok {
		return nil
	}
	license, _ := v.(*model.License)
	return license
}

// RespondError maps an error to its HTTP response. AppError carries its own
// status and code; anything else becomes a generic 500 so internal detail
// never leaks. In hardened mode provider detail is stripped from AppError
// responses too.
func RespondError(ctx *gin.Context, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		out := *appErr
		if configuration.IsHardened() {
			out.Detail = ""
		}
		ctx.AbortWithStatusJSON(appErr.Status, out)
		return
	}
	logger.GetLogger().WithField("error", err).Error("Unhandled error")
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, model.AppError{
		Code:    model.CodeInternalError,
		Message: "Internal server error",
	})
}
