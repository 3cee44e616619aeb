// Package reservation confirms table reservations and event tickets against slot capacity.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/codegen"
	dbutil "github.com/tablehouse/eventdesk/internal/db"
	"github.com/tablehouse/eventdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// errSessionBooked signals that another booking already holds the checkout session.
var errSessionBooked = errors.New("reservation: checkout session already booked")

// Request is a booking to confirm.
type Request struct {
	Kind              string `json:"kind"`                // Booking family.
	Name              string `json:"name"`                // Contact name.
	Email             string `json:"email"`               // Contact email.
	Phone             string `json:"phone"`               // Contact phone.
	Date              string `json:"date"`                // YYYY-MM-DD.
	TimeSlot          string `json:"time_slot"`           // Slot label.
	PartySize         int    `json:"party_size"`          // Guests or tickets.
	SpecialRequests   string `json:"special_requests"`    // Optional notes.
	CheckoutSessionID string `json:"checkout_session_id"` // Paying session for paid families.
	AmountCents       int64  `json:"amount_cents"`        // Amount paid.
}

// Availability reports the state of one slot.
type Availability struct {
	Kind      string `json:"kind"`      // Booking family.
	Date      string `json:"date"`      // YYYY-MM-DD.
	TimeSlot  string `json:"time_slot"` // Slot label.
	Capacity  int    `json:"capacity"`  // Units the slot holds.
	Confirmed int    `json:"confirmed"` // Units already held.
	Remaining int    `json:"remaining"` // Units still free.
}

// Notifier sends the booking confirmation message.
type Notifier interface {
	BookingConfirmation(ctx context.Context, booking models.Booking) error
}

// Service confirms and cancels bookings.
type Service struct {
	db       *gorm.DB
	notifier Notifier
	now      func() time.Time
}

// NewService builds a reservation service. notifier may be nil.
func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier, now: time.Now}
}

// Normalize fills defaults and validates req, returning its family.
func (s *Service) Normalize(req *Request) (Family, error) {
	family, ok := Lookup(strings.TrimSpace(req.Kind))
	if !ok {
		return Family{}, apperr.Validation(fmt.Sprintf("Unknown booking type %q", req.Kind))
	}
	req.Kind = family.Kind
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.SpecialRequests = strings.TrimSpace(req.SpecialRequests)
	req.TimeSlot = strings.TrimSpace(req.TimeSlot)
	if req.TimeSlot == "" && len(family.Slots) == 1 {
		req.TimeSlot = family.Slots[0]
	}

	if req.Name == "" || req.Email == "" {
		return family, apperr.Validation("Name and email are required")
	}
	if !strings.Contains(req.Email, "@") {
		return family, apperr.Validation("Email is invalid")
	}
	if len(req.SpecialRequests) > 1000 {
		return family, apperr.Validation("Special requests are too long")
	}
	date, errDate := time.ParseInLocation(dateLayout, strings.TrimSpace(req.Date), time.Local)
	if errDate != nil {
		return family, apperr.Validation("Date must be formatted as YYYY-MM-DD")
	}
	req.Date = date.Format(dateLayout)
	today := s.now().Format(dateLayout)
	if req.Date < today {
		return family, apperr.Validation("Date is in the past")
	}
	if !family.HasSlot(req.TimeSlot) {
		return family, apperr.Validation(fmt.Sprintf("Time slot %q is not offered", req.TimeSlot))
	}
	if req.PartySize < 1 || req.PartySize > family.MaxPartySize {
		return family, apperr.Validation(fmt.Sprintf("Party size must be between 1 and %d", family.MaxPartySize))
	}
	return family, nil
}

// CountConfirmed returns the units held by confirmed bookings of a slot.
func (s *Service) CountConfirmed(ctx context.Context, kind, date, timeSlot string) (int, error) {
	family, ok := Lookup(kind)
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("Unknown booking type %q", kind))
	}
	expr := "COUNT(*)"
	if family.CountsGuests {
		expr = "COALESCE(SUM(party_size), 0)"
	}
	var total int64
	errCount := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Select(expr).
		Where("kind = ? AND date = ? AND time_slot = ? AND status = ?", kind, date, timeSlot, models.BookingStatusConfirmed).
		Scan(&total).Error
	if errCount != nil {
		return 0, fmt.Errorf("reservation: count confirmed: %w", errCount)
	}
	return int(total), nil
}

// Availability reports capacity and usage of a slot.
func (s *Service) Availability(ctx context.Context, kind, date, timeSlot string) (*Availability, error) {
	family, ok := Lookup(kind)
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("Unknown booking type %q", kind))
	}
	if timeSlot == "" && len(family.Slots) == 1 {
		timeSlot = family.Slots[0]
	}
	confirmed, errCount := s.CountConfirmed(ctx, kind, date, timeSlot)
	if errCount != nil {
		return nil, errCount
	}
	capacity := family.Capacity()
	remaining := capacity - confirmed
	if remaining < 0 {
		remaining = 0
	}
	return &Availability{
		Kind:      kind,
		Date:      date,
		TimeSlot:  timeSlot,
		Capacity:  capacity,
		Confirmed: confirmed,
		Remaining: remaining,
	}, nil
}

// CheckAvailability validates req and fails with CapacityExceeded when the slot cannot take it.
// It is advisory; Confirm enforces capacity atomically.
func (s *Service) CheckAvailability(ctx context.Context, req *Request) (Family, error) {
	family, errNormalize := s.Normalize(req)
	if errNormalize != nil {
		return family, errNormalize
	}
	avail, errAvail := s.Availability(ctx, req.Kind, req.Date, req.TimeSlot)
	if errAvail != nil {
		return family, errAvail
	}
	if family.Units(req.PartySize) > avail.Remaining {
		return family, apperr.New(apperr.KindCapacityExceeded, "This time slot is fully booked")
	}
	return family, nil
}

// Confirm holds capacity for req and stores the booking in one transaction.
// Confirming the same checkout session twice returns the original booking.
func (s *Service) Confirm(ctx context.Context, req Request) (*models.Booking, error) {
	family, errNormalize := s.Normalize(&req)
	if errNormalize != nil {
		return nil, errNormalize
	}
	if family.Paid && req.CheckoutSessionID == "" {
		return nil, apperr.Validation("Paid bookings require a checkout session")
	}

	var booking *models.Booking
	created := false
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.CheckoutSessionID != "" {
			existing, errExisting := findBySession(ctx, tx, req.CheckoutSessionID)
			if errExisting != nil {
				return errExisting
			}
			if existing != nil {
				booking = existing
				return nil
			}
		}

		units := family.Units(req.PartySize)
		if errHold := holdCapacity(ctx, tx, req.Kind, req.Date, req.TimeSlot, units, family.Capacity()); errHold != nil {
			return errHold
		}

		row := models.Booking{
			Kind:            req.Kind,
			Name:            req.Name,
			Email:           req.Email,
			Phone:           req.Phone,
			Date:            req.Date,
			TimeSlot:        req.TimeSlot,
			PartySize:       req.PartySize,
			SpecialRequests: req.SpecialRequests,
			Status:          models.BookingStatusConfirmed,
			PaymentStatus:   models.PaymentStatusNotRequired,
			AmountCents:     req.AmountCents,
		}
		if family.Paid {
			row.PaymentStatus = models.PaymentStatusPaid
		}
		if req.CheckoutSessionID != "" {
			sessionID := req.CheckoutSessionID
			row.CheckoutSessionID = &sessionID
		}
		if errInsert := insertBooking(ctx, tx, family.Format, &row); errInsert != nil {
			return errInsert
		}
		booking = &row
		created = true
		return nil
	})
	if errors.Is(errTx, errSessionBooked) {
		existing, errExisting := findBySession(ctx, s.db, req.CheckoutSessionID)
		if errExisting != nil {
			return nil, errExisting
		}
		if existing != nil {
			return existing, nil
		}
	}
	if errTx != nil {
		return nil, errTx
	}

	if created {
		log.WithFields(log.Fields{
			"kind":   booking.Kind,
			"number": booking.BookingNumber,
			"date":   booking.Date,
			"slot":   booking.TimeSlot,
			"units":  family.Units(booking.PartySize),
		}).Info("booking confirmed")
		if s.notifier != nil {
			if errSend := s.notifier.BookingConfirmation(ctx, *booking); errSend != nil {
				log.WithError(errSend).WithField("number", booking.BookingNumber).Warn("booking confirmation failed")
			}
		}
	}
	return booking, nil
}

// holdCapacity adds units to the slot counter unless that would exceed capacity.
func holdCapacity(ctx context.Context, tx *gorm.DB, kind, date, timeSlot string, units, capacity int) error {
	slot := models.BookingSlot{Kind: kind, Date: date, TimeSlot: timeSlot}
	errUpsert := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slot).Error
	if errUpsert != nil {
		return fmt.Errorf("reservation: upsert slot: %w", errUpsert)
	}
	res := tx.WithContext(ctx).
		Model(&models.BookingSlot{}).
		Where("kind = ? AND date = ? AND time_slot = ? AND confirmed_units + ? <= ?", kind, date, timeSlot, units, capacity).
		Update("confirmed_units", gorm.Expr("confirmed_units + ?", units))
	if res.Error != nil {
		return fmt.Errorf("reservation: hold capacity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindCapacityExceeded, "This time slot is fully booked")
	}
	return nil
}

// releaseCapacity returns units to the slot counter.
func releaseCapacity(ctx context.Context, tx *gorm.DB, kind, date, timeSlot string, units int) error {
	errRelease := tx.WithContext(ctx).
		Model(&models.BookingSlot{}).
		Where("kind = ? AND date = ? AND time_slot = ? AND confirmed_units >= ?", kind, date, timeSlot, units).
		Update("confirmed_units", gorm.Expr("confirmed_units - ?", units)).Error
	if errRelease != nil {
		return fmt.Errorf("reservation: release capacity: %w", errRelease)
	}
	return nil
}

// insertBooking assigns a fresh booking number and inserts row, retrying on number collisions.
func insertBooking(ctx context.Context, tx *gorm.DB, format codegen.Format, row *models.Booking) error {
	exists := func(ctx context.Context, candidate string) (bool, error) {
		var count int64
		errCount := tx.WithContext(ctx).Model(&models.Booking{}).Where("booking_number = ?", candidate).Count(&count).Error
		return count > 0, errCount
	}
	for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
		number, errNumber := codegen.Generate(ctx, format, exists)
		if errNumber != nil {
			return errNumber
		}
		row.ID = 0
		row.BookingNumber = number
		errInsert := tx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			return inner.Create(row).Error
		})
		if errInsert == nil {
			return nil
		}
		if !dbutil.IsUniqueViolation(errInsert) {
			return fmt.Errorf("reservation: insert booking: %w", errInsert)
		}
		taken, errTaken := exists(ctx, number)
		if errTaken != nil {
			return errTaken
		}
		if !taken {
			return errSessionBooked
		}
	}
	return apperr.New(apperr.KindCodeSpaceExhausted, "Could not allocate a unique booking number")
}

func findBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	errFind := tx.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&booking).Error
	if errFind != nil {
		if dbutil.IsNotFound(errFind) {
			return nil, nil
		}
		return nil, fmt.Errorf("reservation: find by session: %w", errFind)
	}
	return &booking, nil
}

// Get loads a booking by number.
func (s *Service) Get(ctx context.Context, number string) (*models.Booking, error) {
	var booking models.Booking
	errFind := s.db.WithContext(ctx).Where("booking_number = ?", strings.ToUpper(strings.TrimSpace(number))).First(&booking).Error
	if errFind != nil {
		if dbutil.IsNotFound(errFind) {
			return nil, apperr.NotFound("Booking not found")
		}
		return nil, fmt.Errorf("reservation: get booking: %w", errFind)
	}
	return &booking, nil
}

// Cancel marks a booking cancelled and frees its capacity.
func (s *Service) Cancel(ctx context.Context, number string) (*models.Booking, error) {
	var booking models.Booking
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("booking_number = ?", strings.ToUpper(strings.TrimSpace(number))).
			First(&booking).Error
		if errFind != nil {
			if dbutil.IsNotFound(errFind) {
				return apperr.NotFound("Booking not found")
			}
			return fmt.Errorf("reservation: load booking: %w", errFind)
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, models.BookingStatusConfirmed).
			Updates(map[string]any{"status": models.BookingStatusCancelled, "updated_at": s.now().UTC()})
		if res.Error != nil {
			return fmt.Errorf("reservation: cancel booking: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("Booking is already cancelled")
		}
		booking.Status = models.BookingStatusCancelled
		family, _ := Lookup(booking.Kind)
		return releaseCapacity(ctx, tx, booking.Kind, booking.Date, booking.TimeSlot, family.Units(booking.PartySize))
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithField("number", booking.BookingNumber).Info("booking cancelled")
	return &booking, nil
}

// MarkRefunded records that the payment of a booking was returned.
func (s *Service) MarkRefunded(ctx context.Context, number string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("booking_number = ? AND payment_status = ?", number, models.PaymentStatusPaid).
		Updates(map[string]any{"payment_status": models.PaymentStatusRefunded, "updated_at": s.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("reservation: mark refunded: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.InvalidState("Booking has no payment to refund")
	}
	return nil
}

// ListFilter narrows a booking listing.
type ListFilter struct {
	Kind   string // Booking family.
	Date   string // YYYY-MM-DD.
	Status string // confirmed or cancelled.
	Search string // Matches number, name or email.
	Page   int    // 1-based page.
	Limit  int    // Page size.
}

// List returns a page of bookings and the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Booking, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Booking{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := dbutil.NormalizeLikePattern(s.db, "%"+search+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(s.db, "booking_number")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(s.db, "name")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(s.db, "email"),
			pattern, pattern, pattern,
		)
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("reservation: count bookings: %w", errCount)
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var bookings []models.Booking
	errFind := q.Order("date ASC").Order("time_slot ASC").Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&bookings).Error
	if errFind != nil {
		return nil, 0, fmt.Errorf("reservation: list bookings: %w", errFind)
	}
	return bookings, total, nil
}
