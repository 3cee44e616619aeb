package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/ratelimit"
)

// RateLimitMiddleware rejects clients that exceed limiter's budget for scope.
// A nil limiter disables the check; limiter errors fail open.
func RateLimitMiddleware(limiter ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		allowed, errAllow := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if errAllow != nil {
			log.WithError(errAllow).WithField("scope", scope).Warn("rate limit check failed")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
