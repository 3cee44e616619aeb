package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the site name used in emails.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback site name.
	DefaultSiteName = "Table House"

	// TableSlotCapacityKey is the number of guests a table reservation slot holds.
	TableSlotCapacityKey = "TABLE_SLOT_CAPACITY"
	// DefaultTableSlotCapacity is the fallback table slot capacity.
	DefaultTableSlotCapacity = 10
	// ValentinesSlotCapacityKey is the number of Valentine's reservations per date and slot.
	ValentinesSlotCapacityKey = "VALENTINES_SLOT_CAPACITY"
	// DefaultValentinesSlotCapacity is the fallback Valentine's capacity.
	DefaultValentinesSlotCapacity = 4
	// KDVTicketCapacityKey is the number of Kamloops Dance Vibes tickets per event date.
	KDVTicketCapacityKey = "KDV_TICKET_CAPACITY"
	// DefaultKDVTicketCapacity is the fallback KDV capacity.
	DefaultKDVTicketCapacity = 150
	// HalloweenTicketCapacityKey is the number of Halloween tickets per event date.
	HalloweenTicketCapacityKey = "HALLOWEEN_TICKET_CAPACITY"
	// DefaultHalloweenTicketCapacity is the fallback Halloween capacity.
	DefaultHalloweenTicketCapacity = 120

	// ValentinesDepositCentsKey is the deposit charged per Valentine's reservation.
	ValentinesDepositCentsKey = "VALENTINES_DEPOSIT_CENTS"
	// DefaultValentinesDepositCents is the fallback Valentine's deposit.
	DefaultValentinesDepositCents = 5_000
	// KDVTicketPriceCentsKey is the price of one KDV ticket.
	KDVTicketPriceCentsKey = "KDV_TICKET_PRICE_CENTS"
	// DefaultKDVTicketPriceCents is the fallback KDV ticket price.
	DefaultKDVTicketPriceCents = 2_500
	// HalloweenTicketPriceCentsKey is the price of one Halloween ticket.
	HalloweenTicketPriceCentsKey = "HALLOWEEN_TICKET_PRICE_CENTS"
	// DefaultHalloweenTicketPriceCents is the fallback Halloween ticket price.
	DefaultHalloweenTicketPriceCents = 3_000

	// CheckoutIntentTTLMinutesKey controls when abandoned checkout intents expire.
	CheckoutIntentTTLMinutesKey = "CHECKOUT_INTENT_TTL_MINUTES"
	// DefaultCheckoutIntentTTLMinutes outlives the gateway's 24 hour session expiry.
	DefaultCheckoutIntentTTLMinutes = 48 * 60
	// IntentSweepIntervalSecondsKey controls how often the intent sweeper runs.
	IntentSweepIntervalSecondsKey = "INTENT_SWEEP_INTERVAL_SECONDS"
	// DefaultIntentSweepIntervalSeconds is the fallback sweep interval.
	DefaultIntentSweepIntervalSeconds = 600
)

// Defaults lists every known setting with its fallback value.
func Defaults() map[string]any {
	return map[string]any{
		SiteNameKey:                   DefaultSiteName,
		TableSlotCapacityKey:          DefaultTableSlotCapacity,
		ValentinesSlotCapacityKey:     DefaultValentinesSlotCapacity,
		KDVTicketCapacityKey:          DefaultKDVTicketCapacity,
		HalloweenTicketCapacityKey:    DefaultHalloweenTicketCapacity,
		ValentinesDepositCentsKey:     DefaultValentinesDepositCents,
		KDVTicketPriceCentsKey:        DefaultKDVTicketPriceCents,
		HalloweenTicketPriceCentsKey:  DefaultHalloweenTicketPriceCents,
		CheckoutIntentTTLMinutesKey:   DefaultCheckoutIntentTTLMinutes,
		IntentSweepIntervalSecondsKey: DefaultIntentSweepIntervalSeconds,
	}
}
