package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/money"
	"github.com/tablehouse/eventdesk/internal/settings"
)

// Message kinds.
const (
	KindGiftReceived        = "gift_received"
	KindOrderConfirmation   = "order_confirmation"
	KindBookingConfirmation = "booking_confirmation"
)

var funcs = template.FuncMap{"money": money.Format}

var giftReceivedTmpl = template.Must(template.New(KindGiftReceived).Funcs(funcs).Parse(
	`Hi {{.Card.OwnerName}},

{{.Card.BuyerName}} sent you a {{money .Card.OriginalCents}} gift card for {{.Site}}.
{{- if .Card.PersonalMessage}}

"{{.Card.PersonalMessage}}"
{{- end}}

Your gift card code: {{.Card.Code}}

Show this code to our staff to redeem it.{{if .BaseURL}} Check your balance any time at {{.BaseURL}}/gift-cards/balance.{{end}}
`))

var orderConfirmationTmpl = template.Must(template.New(KindOrderConfirmation).Funcs(funcs).Parse(
	`Hi {{.Order.BuyerName}},

Thank you for your gift card order {{.Order.OrderID}} at {{.Site}}.

{{range .Purchased -}}
- {{.Code}}: {{money .OriginalCents}}{{if .IsGift}} for {{.OwnerName}} ({{.OwnerEmail}}){{end}}
{{end -}}
{{if .Bonus}}
Your bonus cards:
{{range .Bonus -}}
- {{.Code}}: {{money .OriginalCents}}
{{end -}}
{{end}}
Total paid: {{money .Order.TotalCents}}
`))

var bookingConfirmationTmpl = template.Must(template.New(KindBookingConfirmation).Funcs(funcs).Parse(
	`Hi {{.Booking.Name}},

Your {{.Title}} at {{.Site}} is confirmed.

Confirmation number: {{.Booking.BookingNumber}}
Date: {{.Booking.Date}}
{{- if ne .Booking.TimeSlot "event"}}
Time: {{.Booking.TimeSlot}}
{{- end}}
{{.UnitLabel}}: {{.Booking.PartySize}}
{{- if gt .Booking.AmountCents 0}}
Paid: {{money .Booking.AmountCents}}
{{- end}}

We look forward to seeing you.
`))

// Notifier renders site messages and hands them to a Sender.
type Notifier struct {
	sender  Sender
	baseURL string
}

// NewNotifier builds a notifier. baseURL is used for links in messages.
func NewNotifier(sender Sender, baseURL string) *Notifier {
	if sender == nil {
		sender = LogSender{}
	}
	return &Notifier{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

func (n *Notifier) site() string {
	return settings.String(settings.SiteNameKey, settings.DefaultSiteName)
}

// GiftReceived tells the recipient of a gifted card about it.
func (n *Notifier) GiftReceived(ctx context.Context, card models.GiftCard) error {
	body, errRender := render(giftReceivedTmpl, map[string]any{"Card": card, "Site": n.site(), "BaseURL": n.baseURL})
	if errRender != nil {
		return errRender
	}
	return n.sender.Send(ctx, Message{
		To:      card.OwnerEmail,
		Subject: fmt.Sprintf("%s sent you a %s gift card", card.BuyerName, money.Format(card.OriginalCents)),
		Body:    body,
		Kind:    KindGiftReceived,
	})
}

// OrderConfirmation sends the buyer one summary of every card in the order.
func (n *Notifier) OrderConfirmation(ctx context.Context, order models.GiftCardOrder, purchased, bonus []models.GiftCard) error {
	body, errRender := render(orderConfirmationTmpl, map[string]any{
		"Order":     order,
		"Purchased": purchased,
		"Bonus":     bonus,
		"Site":      n.site(),
	})
	if errRender != nil {
		return errRender
	}
	return n.sender.Send(ctx, Message{
		To:      order.BuyerEmail,
		Subject: fmt.Sprintf("Your %s gift card order", n.site()),
		Body:    body,
		Kind:    KindOrderConfirmation,
	})
}

// BookingConfirmation sends the guest their booking details.
func (n *Notifier) BookingConfirmation(ctx context.Context, booking models.Booking) error {
	title, unitLabel := "reservation", "Guests"
	switch booking.Kind {
	case models.BookingKindValentines:
		title = "Valentine's Day reservation"
	case models.BookingKindKDV:
		title, unitLabel = "Kamloops Dance Vibes tickets", "Tickets"
	case models.BookingKindHalloween:
		title, unitLabel = "Halloween tickets", "Tickets"
	}
	body, errRender := render(bookingConfirmationTmpl, map[string]any{
		"Booking":   booking,
		"Title":     title,
		"UnitLabel": unitLabel,
		"Site":      n.site(),
	})
	if errRender != nil {
		return errRender
	}
	return n.sender.Send(ctx, Message{
		To:      booking.Email,
		Subject: fmt.Sprintf("Confirmed: %s %s", title, booking.BookingNumber),
		Body:    body,
		Kind:    KindBookingConfirmation,
	})
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if errExec := tmpl.Execute(&buf, data); errExec != nil {
		return "", fmt.Errorf("notify: render %s: %w", tmpl.Name(), errExec)
	}
	return buf.String(), nil
}
