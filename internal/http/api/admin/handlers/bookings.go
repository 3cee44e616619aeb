package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/checkout"
	apphttp "github.com/tablehouse/eventdesk/internal/http"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/reservation"
)

// BookingHandler lists and cancels bookings.
type BookingHandler struct {
	bookings *reservation.Service
	checkout *checkout.Service
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *reservation.Service, checkoutService *checkout.Service) *BookingHandler {
	return &BookingHandler{bookings: bookings, checkout: checkoutService}
}

// List returns a filtered page of bookings.
func (h *BookingHandler) List(c *gin.Context) {
	rows, total, errList := h.bookings.List(c.Request.Context(), reservation.ListFilter{
		Kind:   strings.TrimSpace(c.Query("kind")),
		Date:   strings.TrimSpace(c.Query("date")),
		Status: strings.TrimSpace(c.Query("status")),
		Search: c.Query("search"),
		Page:   api.QueryInt(c, "page"),
		Limit:  api.QueryInt(c, "limit"),
	})
	if errList != nil {
		apperr.Respond(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.BookingView(row))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": out, "total": total})
}

// Get returns one booking by number.
func (h *BookingHandler) Get(c *gin.Context) {
	booking, errGet := h.bookings.Get(c.Request.Context(), c.Param("number"))
	if errGet != nil {
		apperr.Respond(c, errGet)
		return
	}
	c.JSON(http.StatusOK, api.BookingView(*booking))
}

// Cancel frees a booking's capacity. ?refund=true also returns the payment.
func (h *BookingHandler) Cancel(c *gin.Context) {
	refund := c.Query("refund") == "true"
	booking, errCancel := h.checkout.CancelBooking(c.Request.Context(), c.Param("number"), refund)
	if errCancel != nil {
		apperr.Respond(c, errCancel)
		return
	}
	log.WithFields(log.Fields{
		"booking": booking.BookingNumber,
		"refund":  refund,
		"admin":   apphttp.AdminUsername(c),
	}).Info("booking cancelled")
	c.JSON(http.StatusOK, api.BookingView(*booking))
}
