package staff

import (
	"github.com/gin-gonic/gin"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/http/api/staff/handlers"
)

// RegisterStaffRoutes registers the redemption routes used at the counter.
func RegisterStaffRoutes(r *gin.Engine, svc api.Services) {
	if r == nil || svc.DB == nil {
		return
	}

	staff := r.Group("/v0/staff")

	authHandler := handlers.NewAuthHandler(svc.Employees, svc.JWT)
	staff.POST("/login", apphttp.RateLimitMiddleware(svc.LoginLimiter, "staff-login"), authHandler.Login)

	authed := staff.Group("")
	authed.Use(apphttp.StaffAuthMiddleware(svc.DB, svc.JWT))

	giftCardHandler := handlers.NewGiftCardHandler(svc.GiftCards)
	authed.GET("/gift-cards/:code", giftCardHandler.Lookup)
	authed.POST("/gift-cards/:code/deduct", giftCardHandler.Deduct)
	authed.POST("/gift-cards/:code/refund", giftCardHandler.Refund)
	authed.GET("/gift-cards/:code/transactions", giftCardHandler.Transactions)
}
