// Package api holds what the front, staff and admin route groups share.
package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/config"
	"github.com/tablehouse/eventdesk/internal/employee"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/money"
	"github.com/tablehouse/eventdesk/internal/payment"
	"github.com/tablehouse/eventdesk/internal/ratelimit"
	"github.com/tablehouse/eventdesk/internal/reservation"
	"gorm.io/gorm"
)

// Services bundles the domain services route handlers call into.
type Services struct {
	DB             *gorm.DB
	GiftCards      *giftcard.Engine
	Orders         *giftcard.OrderService
	Bookings       *reservation.Service
	Checkout       *checkout.Service
	Employees      *employee.Service
	Gateway        payment.Gateway
	JWT            config.JWTConfig
	CORSOrigins    []string
	BalanceLimiter ratelimit.Limiter
	LoginLimiter   ratelimit.Limiter
	TOTPIssuer     string
}

// ParseID reads a numeric path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// QueryInt reads an integer query parameter, returning 0 when absent or malformed.
func QueryInt(c *gin.Context, name string) int {
	value, errParse := strconv.Atoi(strings.TrimSpace(c.Query(name)))
	if errParse != nil {
		return 0
	}
	return value
}

// AmountCents converts a request amount to cents. Amounts that do not fit are a validation error.
func AmountCents(amount decimal.Decimal) (int64, error) {
	cents, errConvert := money.ToCents(amount)
	if errConvert != nil {
		return 0, apperr.Validation("amount out of range")
	}
	return cents, nil
}
