package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	httpHandler "ig-oauth-service/interfaces/http"
	"ig-oauth-service/usecase"
)

type licenseCredentials struct {
	LicenseKey string `json:"license_key"`
	Domain     string `json:"domain"`
}

// LicenseGate validates the caller's license key and domain before the
// plugin endpoints run. Credentials come from headers, query parameters or
// the JSON body, in that order. Handlers behind the gate read the body with
// ShouldBindBodyWith so the gate's read does not consume it.
func LicenseGate(licenseUsecase usecase.ILicenseUsecase) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader("X-License-Key")
		domain := ctx.GetHeader("X-License-Domain")
		if key == "" {
			key = ctx.Query("license_key")
		}
		if domain == "" {
			domain = ctx.Query("domain")
		}
		if (key == "" || domain == "") && ctx.Request.Body != nil {
			var creds licenseCredentials
			if err := ctx.ShouldBindBodyWith(&creds, binding.JSON); err == nil {
				if key == "" {
					key = creds.LicenseKey
				}
				if domain == "" {
					domain = creds.Domain
				}
			}
		}

		license, err := licenseUsecase.Validate(ctx.Request.Context(), key, domain)
		if err != nil {
			httpHandler.RespondError(ctx, err)
			return
		}
		ctx.Set(httpHandler.ContextLicenseKey, license)
		ctx.Next()
	}
}
