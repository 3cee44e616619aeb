package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/checkout"
	"github.com/tablehouse/eventdesk/internal/http/api"
	"github.com/tablehouse/eventdesk/internal/money"
	"github.com/tablehouse/eventdesk/internal/reservation"
)

// BookingHandler serves reservations and ticket purchases.
type BookingHandler struct {
	bookings *reservation.Service
	checkout *checkout.Service
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *reservation.Service, checkoutService *checkout.Service) *BookingHandler {
	return &BookingHandler{bookings: bookings, checkout: checkoutService}
}

// Families lists the booking types with their slots and current prices.
func (h *BookingHandler) Families(c *gin.Context) {
	out := make([]gin.H, 0, len(reservation.Kinds()))
	for _, kind := range reservation.Kinds() {
		family, _ := reservation.Lookup(kind)
		out = append(out, gin.H{
			"kind":           family.Kind,
			"title":          family.Title,
			"paid":           family.Paid,
			"per_unit_price": family.PerUnitPrice,
			"unit_price":     money.Float(family.UnitPriceCents()),
			"max_party_size": family.MaxPartySize,
			"slots":          family.Slots,
		})
	}
	c.JSON(http.StatusOK, gin.H{"families": out})
}

// Availability reports remaining capacity of one dated slot.
func (h *BookingHandler) Availability(c *gin.Context) {
	kind := strings.TrimSpace(c.Query("kind"))
	date := strings.TrimSpace(c.Query("date"))
	if kind == "" || date == "" {
		apperr.Respond(c, apperr.Validation("kind and date are required"))
		return
	}
	avail, errAvail := h.bookings.Availability(c.Request.Context(), kind, date, strings.TrimSpace(c.Query("time_slot")))
	if errAvail != nil {
		apperr.Respond(c, errAvail)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// Create books a family that needs no payment.
func (h *BookingHandler) Create(c *gin.Context) {
	var body reservation.Request
	if !bindJSON(c, &body) {
		return
	}
	if family, ok := reservation.Lookup(strings.TrimSpace(body.Kind)); ok && family.Paid {
		apperr.Respond(c, apperr.Validation(family.Title+" requires payment; use checkout"))
		return
	}
	body.CheckoutSessionID = ""
	body.AmountCents = 0
	booking, errConfirm := h.bookings.Confirm(c.Request.Context(), body)
	if errConfirm != nil {
		apperr.Respond(c, errConfirm)
		return
	}
	c.JSON(http.StatusCreated, api.BookingView(*booking))
}

// Checkout opens a payment session for a paid booking.
func (h *BookingHandler) Checkout(c *gin.Context) {
	var body reservation.Request
	if !bindJSON(c, &body) {
		return
	}
	started, errStart := h.checkout.StartBookingCheckout(c.Request.Context(), body)
	if errStart != nil {
		apperr.Respond(c, errStart)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"intent_id":  started.IntentID,
		"session_id": started.SessionID,
		"url":        started.URL,
		"amount":     money.Float(started.AmountCents),
	})
}

// Get returns a booking to the guest who made it.
func (h *BookingHandler) Get(c *gin.Context) {
	booking, errGet := h.bookings.Get(c.Request.Context(), c.Param("number"))
	if errGet != nil {
		apperr.Respond(c, errGet)
		return
	}
	if !strings.EqualFold(strings.TrimSpace(c.Query("email")), booking.Email) {
		apperr.Respond(c, apperr.NotFound("Booking not found"))
		return
	}
	c.JSON(http.StatusOK, api.BookingView(*booking))
}
