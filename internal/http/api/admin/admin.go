package admin

import (
	"github.com/gin-gonic/gin"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/http/api/admin/handlers"
)

// RegisterAdminRoutes registers the back office routes.
func RegisterAdminRoutes(r *gin.Engine, svc api.Services) {
	if r == nil || svc.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(svc.DB)
	r.GET("/healthz", healthHandler.Healthz)

	admin := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(svc.DB, svc.JWT)
	loginLimit := apphttp.RateLimitMiddleware(svc.LoginLimiter, "admin-login")
	admin.POST("/login/prepare", loginLimit, authHandler.LoginPrepare)
	admin.POST("/login", loginLimit, authHandler.Login)

	authed := admin.Group("")
	authed.Use(apphttp.AdminAuthMiddleware(svc.DB, svc.JWT))

	adminHandler := handlers.NewAdminHandler(svc.DB)
	authed.PUT("/me/password", adminHandler.ChangePassword)

	mfaHandler := handlers.NewMFAHandler(svc.DB, svc.TOTPIssuer)
	authed.GET("/mfa", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.DELETE("/mfa/totp", mfaHandler.DisableTOTP)

	giftCardHandler := handlers.NewGiftCardHandler(svc.GiftCards)
	authed.GET("/gift-cards", giftCardHandler.List)
	authed.POST("/gift-cards", giftCardHandler.Issue)
	authed.GET("/gift-cards/:id", giftCardHandler.Get)
	authed.PUT("/gift-cards/:id/balance", giftCardHandler.Adjust)
	authed.PUT("/gift-cards/:id/status", giftCardHandler.SetStatus)
	authed.DELETE("/gift-cards/:id", giftCardHandler.Delete)
	authed.GET("/gift-cards/:id/transactions", giftCardHandler.Transactions)
	authed.GET("/transactions", giftCardHandler.Transactions)

	bookingHandler := handlers.NewBookingHandler(svc.Bookings, svc.Checkout)
	authed.GET("/bookings", bookingHandler.List)
	authed.GET("/bookings/:number", bookingHandler.Get)
	authed.POST("/bookings/:number/cancel", bookingHandler.Cancel)

	intentHandler := handlers.NewIntentHandler(svc.Checkout)
	authed.GET("/checkout-intents", intentHandler.List)

	settingsHandler := handlers.NewSettingsHandler(svc.DB)
	authed.GET("/settings", settingsHandler.List)
	authed.PUT("/settings/:key", settingsHandler.Update)

	super := authed.Group("")
	super.Use(apphttp.SuperAdminMiddleware())

	super.GET("/admins", adminHandler.List)
	super.POST("/admins", adminHandler.Create)
	super.PUT("/admins/:id/active", adminHandler.SetActive)

	employeeHandler := handlers.NewEmployeeHandler(svc.Employees)
	super.GET("/employees", employeeHandler.List)
	super.POST("/employees", employeeHandler.Create)
	super.PUT("/employees/:id", employeeHandler.Update)
	super.POST("/employees/:id/archive", employeeHandler.Archive)
	super.DELETE("/employees/:id", employeeHandler.Delete)
}
