package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ig-oauth-service/infrastructure/configuration"
	"ig-oauth-service/infrastructure/realtime"
	httpHandler "ig-oauth-service/interfaces/http"
	"ig-oauth-service/interfaces/middleware"
	"ig-oauth-service/usecase"
)

func InitiateRouter(
	authHandler httpHandler.IAuthHandler,
	postHandler httpHandler.IPostHandler,
	tokenHandler httpHandler.ITokenHandler,
	licenseHandler httpHandler.ILicenseHandler,
	licenseUsecase usecase.ILicenseUsecase,
	attemptHub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     configuration.C.App.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-License-Key", "X-License-Domain"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// OAuth flow, reached from the browser.
	router.GET("/auth/instagram", authHandler.Login)
	router.GET("/auth/instagram/callback", authHandler.Callback)
	router.GET("/auth/status", authHandler.Status)

	// Public license check for the plugin installer.
	router.POST("/api/license/validate", licenseHandler.Validate)

	// Plugin endpoints, gated on a valid license.
	plugin := router.Group("api/post")
	plugin.Use(middleware.LicenseGate(licenseUsecase))
	plugin.POST("/instagram", postHandler.Post)
	plugin.GET("/limit/:facebookPageId", postHandler.GetLimit)
	plugin.GET("/history", postHandler.History)

	// Admin endpoints behind JWT.
	admin := router.Group("api")
	admin.Use(middleware.Auth())

	admin.POST("/tokens/refresh/:facebookPageId", tokenHandler.Refresh)
	admin.POST("/tokens/refresh-all", tokenHandler.RefreshAll)
	admin.GET("/tokens/expiring", tokenHandler.GetExpiring)
	admin.GET("/tokens/expired", tokenHandler.GetExpired)

	admin.POST("/license/generate", licenseHandler.Generate)
	admin.GET("/license", licenseHandler.GetAll)
	admin.GET("/license/export", licenseHandler.ExportCSV)
	admin.PUT("/license/:licenseKey/user", licenseHandler.UpdateUserInfo)
	admin.POST("/license/:licenseKey/deactivate", licenseHandler.Deactivate)
	admin.POST("/license/:licenseKey/reset-domain", licenseHandler.ResetDomain)
	admin.DELETE("/license/:licenseKey", licenseHandler.Delete)
	admin.GET("/license/:licenseKey/attempts", licenseHandler.Attempts)
	admin.GET("/license/:licenseKey/attempts-stats", licenseHandler.AttemptStats)
	admin.GET("/license/recent-errors", licenseHandler.RecentErrors)

	// Live attempt feed for the admin dashboard.
	if attemptHub != nil {
		admin.GET("/attempts/stream", func(ctx *gin.Context) { attemptHub.Serve(ctx) })
	}

	return router
}
