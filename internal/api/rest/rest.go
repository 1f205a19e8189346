package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-boxoffice/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Catalog browsing (public read access)
		v1.GET("/boxes", handler.ListBoxes)
		v1.GET("/boxes/:id", handler.GetBox)

		// Purchases (open; eligibility is enforced by the engine)
		v1.POST("/purchases/coin", handler.PurchaseCoin)
		v1.POST("/purchases/token", handler.PurchaseToken)
		v1.POST("/purchases/free", handler.PurchaseFree)

		// Authorization self-check (open, side-effect free)
		v1.GET("/purchases/verify", handler.VerifyAuthorization)

		// Catalog administration (requires authentication)
		v1.POST("/boxes", middleware.Auth(authCfg), handler.CreateBox)
		v1.POST("/boxes/:id/enable", middleware.Auth(authCfg), handler.EnableBox)
		v1.POST("/boxes/:id/disable", middleware.Auth(authCfg), handler.DisableBox)
		v1.PUT("/boxes/:id/price", middleware.Auth(authCfg), handler.SetBoxPrice)
		v1.PUT("/boxes/:id/signature-requirement", middleware.Auth(authCfg), handler.SetBoxSignatureRequirement)

		// Sale administration (requires authentication)
		v1.GET("/sale", middleware.Auth(authCfg), handler.GetSaleState)
		v1.POST("/sale/pause", middleware.Auth(authCfg), handler.PauseSale)
		v1.POST("/sale/unpause", middleware.Auth(authCfg), handler.UnpauseSale)
		v1.PUT("/sale/payment-address", middleware.Auth(authCfg), handler.SetPaymentAddress)
		v1.PUT("/sale/signer-address", middleware.Auth(authCfg), handler.SetSignerAddress)
		v1.PUT("/sale/base-uri", middleware.Auth(authCfg), handler.SetBaseURI)

		// Webhook endpoints (requires authentication)
		v1.POST("/webhooks/endpoints", middleware.Auth(authCfg), handler.CreateWebhookEndpoint)
	}
}
