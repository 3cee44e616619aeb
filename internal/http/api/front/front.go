package front

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/http/api/front/handlers"
)

// RegisterFrontRoutes registers the public site routes.
func RegisterFrontRoutes(r *gin.Engine, svc api.Services) {
	if r == nil || svc.Checkout == nil {
		return
	}

	front := r.Group("/v0/front")
	if len(svc.CORSOrigins) > 0 {
		front.Use(cors.New(cors.Config{
			AllowOrigins:     svc.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	giftCardHandler := handlers.NewGiftCardHandler(svc.GiftCards, svc.Checkout)
	front.POST("/gift-cards/checkout", giftCardHandler.Checkout)
	front.GET("/gift-cards/bonus", giftCardHandler.Bonus)
	front.GET("/gift-cards/:code/balance", apphttp.RateLimitMiddleware(svc.BalanceLimiter, "balance"), giftCardHandler.Balance)

	bookingHandler := handlers.NewBookingHandler(svc.Bookings, svc.Checkout)
	front.GET("/bookings/families", bookingHandler.Families)
	front.GET("/bookings/availability", bookingHandler.Availability)
	front.POST("/bookings", bookingHandler.Create)
	front.POST("/bookings/checkout", bookingHandler.Checkout)
	front.GET("/bookings/:number", bookingHandler.Get)

	checkoutHandler := handlers.NewCheckoutHandler(svc.Checkout, svc.Gateway)
	front.GET("/checkout/status", checkoutHandler.Status)

	// The processor calls the webhook server to server, outside the CORS group.
	r.POST("/v0/webhooks/payment", checkoutHandler.Webhook)
}
