package reservation

import (
	"github.com/tablehouse/eventdesk/internal/codegen"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/settings"
)

// EventSlot is the single slot label used by ticketed events.
const EventSlot = "event"

// Family describes one kind of booking: how it is numbered, priced and capped.
type Family struct {
	Kind         string         // Booking kind stored on rows.
	Title        string         // Human readable name.
	Format       codegen.Format // Booking number format.
	Paid         bool           // Requires a checkout before confirmation.
	PerUnitPrice bool           // Price multiplies by units when true.
	CountsGuests bool           // Units are guests or tickets rather than bookings.
	MaxPartySize int            // Largest party or ticket count per booking.
	Slots        []string       // Allowed time slots.

	capacityKey     string
	defaultCapacity int
	priceKey        string
	defaultPrice    int
}

var families = map[string]Family{
	models.BookingKindTable: {
		Kind:            models.BookingKindTable,
		Title:           "Table reservation",
		Format:          codegen.Table,
		CountsGuests:    true,
		MaxPartySize:    8,
		Slots:           []string{"17:00", "17:30", "18:00", "18:30", "19:00", "19:30", "20:00", "20:30"},
		capacityKey:     settings.TableSlotCapacityKey,
		defaultCapacity: settings.DefaultTableSlotCapacity,
	},
	models.BookingKindValentines: {
		Kind:            models.BookingKindValentines,
		Title:           "Valentine's Day dinner",
		Format:          codegen.Valentines,
		Paid:            true,
		MaxPartySize:    2,
		Slots:           []string{"17:00", "19:00", "21:00"},
		capacityKey:     settings.ValentinesSlotCapacityKey,
		defaultCapacity: settings.DefaultValentinesSlotCapacity,
		priceKey:        settings.ValentinesDepositCentsKey,
		defaultPrice:    settings.DefaultValentinesDepositCents,
	},
	models.BookingKindKDV: {
		Kind:            models.BookingKindKDV,
		Title:           "Kamloops Dance Vibes ticket",
		Format:          codegen.KDV,
		Paid:            true,
		PerUnitPrice:    true,
		CountsGuests:    true,
		MaxPartySize:    10,
		Slots:           []string{EventSlot},
		capacityKey:     settings.KDVTicketCapacityKey,
		defaultCapacity: settings.DefaultKDVTicketCapacity,
		priceKey:        settings.KDVTicketPriceCentsKey,
		defaultPrice:    settings.DefaultKDVTicketPriceCents,
	},
	models.BookingKindHalloween: {
		Kind:            models.BookingKindHalloween,
		Title:           "Halloween ticket",
		Format:          codegen.Halloween,
		Paid:            true,
		PerUnitPrice:    true,
		CountsGuests:    true,
		MaxPartySize:    10,
		Slots:           []string{EventSlot},
		capacityKey:     settings.HalloweenTicketCapacityKey,
		defaultCapacity: settings.DefaultHalloweenTicketCapacity,
		priceKey:        settings.HalloweenTicketPriceCentsKey,
		defaultPrice:    settings.DefaultHalloweenTicketPriceCents,
	},
}

// Lookup returns the family for kind.
func Lookup(kind string) (Family, bool) {
	f, ok := families[kind]
	return f, ok
}

// Kinds lists every booking kind.
func Kinds() []string {
	return []string{models.BookingKindTable, models.BookingKindValentines, models.BookingKindKDV, models.BookingKindHalloween}
}

// Capacity returns the configured capacity of one slot.
func (f Family) Capacity() int {
	return settings.Int(f.capacityKey, f.defaultCapacity)
}

// UnitPriceCents returns the configured price of one booking or ticket.
func (f Family) UnitPriceCents() int64 {
	if !f.Paid {
		return 0
	}
	return int64(settings.Int(f.priceKey, f.defaultPrice))
}

// Units returns how much capacity a booking of partySize consumes.
func (f Family) Units(partySize int) int {
	if f.CountsGuests {
		return partySize
	}
	return 1
}

// PriceCents returns the amount charged for a booking of partySize.
func (f Family) PriceCents(partySize int) int64 {
	if f.PerUnitPrice {
		return f.UnitPriceCents() * int64(partySize)
	}
	return f.UnitPriceCents()
}

// HasSlot reports whether slot is offered by the family.
func (f Family) HasSlot(slot string) bool {
	for _, s := range f.Slots {
		if s == slot {
			return true
		}
	}
	return false
}
