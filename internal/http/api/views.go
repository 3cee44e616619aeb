package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/money"
)

// BalanceView is the public view of a card: no owner contact details.
func BalanceView(card models.GiftCard) gin.H {
	return gin.H{
		"code":             card.Code,
		"status":           card.Status,
		"remaining_amount": money.Float(card.RemainingCents),
		"original_amount":  money.Float(card.OriginalCents),
		"is_bonus":         card.IsBonus,
	}
}

// CardView is the staff and admin view of a card.
func CardView(card models.GiftCard) gin.H {
	view := BalanceView(card)
	view["id"] = card.ID
	view["owner_name"] = card.OwnerName
	view["owner_email"] = card.OwnerEmail
	view["buyer_name"] = card.BuyerName
	view["buyer_email"] = card.BuyerEmail
	view["is_gift"] = card.IsGift
	view["channel"] = card.Channel
	view["parent_card_code"] = card.ParentCardCode
	view["order_id"] = card.OrderID
	view["personal_message"] = card.PersonalMessage
	view["created_at"] = card.CreatedAt
	view["updated_at"] = card.UpdatedAt
	return view
}

// CardViews maps CardView over cards.
func CardViews(cards []models.GiftCard) []gin.H {
	out := make([]gin.H, 0, len(cards))
	for _, card := range cards {
		out = append(out, CardView(card))
	}
	return out
}

// TransactionView renders one audit entry.
func TransactionView(entry models.GiftCardTransaction) gin.H {
	return gin.H{
		"id":               entry.ID,
		"card_id":          entry.CardID,
		"card_code":        entry.CardCode,
		"card_owner_name":  entry.CardOwnerName,
		"type":             entry.Type,
		"amount":           money.Float(entry.AmountCents),
		"previous_balance": money.Float(entry.PreviousBalanceCents),
		"new_balance":      money.Float(entry.NewBalanceCents),
		"employee_id":      entry.EmployeeID,
		"employee_name":    entry.EmployeeName,
		"actor":            entry.Actor,
		"note":             entry.Note,
		"created_at":       entry.CreatedAt,
	}
}

// TransactionViews maps TransactionView over entries.
func TransactionViews(entries []models.GiftCardTransaction) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, TransactionView(entry))
	}
	return out
}

// BalanceChangeView renders the outcome of a deduction, refund or adjustment.
func BalanceChangeView(change *giftcard.BalanceChange) gin.H {
	return gin.H{
		"code":             change.Card.Code,
		"previous_balance": money.Float(change.PreviousBalanceCents),
		"new_balance":      money.Float(change.NewBalanceCents),
		"status":           change.Status,
		"transaction_id":   change.Transaction.ID,
	}
}

// BookingView renders a booking.
func BookingView(booking models.Booking) gin.H {
	return gin.H{
		"id":               booking.ID,
		"kind":             booking.Kind,
		"booking_number":   booking.BookingNumber,
		"name":             booking.Name,
		"email":            booking.Email,
		"phone":            booking.Phone,
		"date":             booking.Date,
		"time_slot":        booking.TimeSlot,
		"party_size":       booking.PartySize,
		"special_requests": booking.SpecialRequests,
		"status":           booking.Status,
		"payment_status":   booking.PaymentStatus,
		"amount":           money.Float(booking.AmountCents),
		"created_at":       booking.CreatedAt,
	}
}

// IntentView renders a checkout intent without its payload.
func IntentView(intent models.CheckoutIntent) gin.H {
	return gin.H{
		"intent_id":      intent.IntentID,
		"kind":           intent.Kind,
		"status":         intent.Status,
		"session_id":     intent.SessionID,
		"customer_email": intent.CustomerEmail,
		"amount":         money.Float(intent.AmountCents),
		"payment_ref":    intent.PaymentRef,
		"result_ref":     intent.ResultRef,
		"failure_reason": intent.FailureReason,
		"completed_at":   intent.CompletedAt,
		"created_at":     intent.CreatedAt,
	}
}
