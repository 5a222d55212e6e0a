// Package booking implements the booking state machine and its coupling to
// unit occupancy.
//
// Pending is the only non-terminal state. A decision moves a booking out of
// Pending with a conditional update, so of two concurrent decisions exactly one
// succeeds and the other fails with an invalid transition.
package booking

import (
	"context"
	"strings"
	"time"

	"rental-portal/internal/errorx"
	"rental-portal/internal/listing"
	"rental-portal/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Recorder receives booking outcomes for metrics. err is nil on success.
type Recorder interface {
	BookingSubmitted(err error)
	BookingDecided(d models.Decision, err error)
}

type nopRecorder struct{}

func (nopRecorder) BookingSubmitted(error) {}
func (nopRecorder) BookingDecided(models.Decision, error) {}

// Reindexer refreshes the search view of a property after its occupancy changed
type Reindexer interface {
	Reindex(ctx context.Context, propertyID uint)
}

// Option configures a Service
type Option func(*Service)

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithReindexer refreshes listings after approvals and releases
func WithReindexer(r Reindexer) Option {
	return func(s *Service) {
		s.reindex = r
	}
}

// Service handles booking operations
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics Recorder
	reindex Reindexer
	now     func() time.Time
}

// NewService creates a new booking service
func NewService(db *gorm.DB, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{db: db, log: log, metrics: nopRecorder{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput is a tenant's booking request
type SubmitInput struct {
	ApartmentID uint       `json:"apartment_id" binding:"required"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Message     *string    `json:"message,omitempty"`
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Submit records a Pending booking. Bookings on the same unit are not checked
// for overlapping dates and may coexist while Pending.
func (s *Service) Submit(ctx context.Context, actor models.Actor, in SubmitInput) (b *models.Booking, err error) {
	defer func() { s.metrics.BookingSubmitted(err) }()

	if !actor.Authenticated {
		return nil, errorx.Authorization("authentication required")
	}

	var unit models.Apartment
	if err := s.db.WithContext(ctx).Preload("Property").First(&unit, in.ApartmentID).Error; err != nil {
		return nil, errorx.FromStore(err, "unit %d", in.ApartmentID)
	}
	if landlordID, ok := unit.LandlordID(); ok && landlordID == actor.ID {
		return nil, errorx.SelfBooking("landlord %s cannot book unit %d of their own property", actor.ID, unit.ID)
	}
	if !actor.HasRole(models.RoleTenant) {
		return nil, errorx.Authorization("only tenants can submit bookings")
	}

	if in.StartDate.IsZero() {
		return nil, errorx.Validation("start date is required")
	}
	start := dateOnly(in.StartDate)
	var end *time.Time
	if in.EndDate != nil {
		e := dateOnly(*in.EndDate)
		if e.Before(start) {
			return nil, errorx.Validation("end date %s is before start date %s", e.Format(time.DateOnly), start.Format(time.DateOnly))
		}
		end = &e
	}
	var message *string
	if in.Message != nil {
		if m := strings.TrimSpace(*in.Message); m != "" {
			message = &m
		}
	}

	b = &models.Booking{
		TenantID:    actor.ID,
		ApartmentID: unit.ID,
		StartDate:   start,
		EndDate:     end,
		Message:     message,
		Status:      models.BookingPending,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Omit("Apartment").Create(b).Error; err != nil {
		return nil, errorx.FromStore(err, "create booking")
	}

	s.log.Info("booking submitted",
		zap.Uint("booking_id", b.ID),
		zap.Uint("unit_id", unit.ID),
		zap.String("tenant_id", actor.ID.String()))
	return b, nil
}

// authorizeDecision allows admins and the owning landlord any decision, and the
// booking's tenant only to cancel
func authorizeDecision(actor models.Actor, b *models.Booking, unit *models.Apartment, d models.Decision) error {
	if actor.IsAdmin() {
		return nil
	}
	if landlordID, ok := unit.LandlordID(); ok && actor.HasRole(models.RoleLandlord) && actor.Is(landlordID) {
		return nil
	}
	if actor.HasRole(models.RoleTenant) && actor.Is(b.TenantID) {
		if d == models.DecisionCancel {
			return nil
		}
		return errorx.Authorization("tenants can only cancel their bookings")
	}
	return errorx.Authorization("not allowed to decide booking %d", b.ID)
}

// Decide moves a Pending booking to the decision's target state. Approval marks
// the unit Occupied with the tenant's full name in the same transaction.
func (s *Service) Decide(ctx context.Context, actor models.Actor, bookingID uint, d models.Decision) (b *models.Booking, err error) {
	defer func() { s.metrics.BookingDecided(d, err) }()

	target := d.Target()
	if target == "" {
		return nil, errorx.Validation("invalid decision %q", d)
	}

	var (
		booking    models.Booking
		propertyID uint
		occupancy  bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, bookingID).Error; err != nil {
			return errorx.FromStore(err, "booking %d", bookingID)
		}
		var unit models.Apartment
		if err := tx.Preload("Property").First(&unit, booking.ApartmentID).Error; err != nil {
			return errorx.FromStore(err, "unit %d of booking %d", booking.ApartmentID, bookingID)
		}
		propertyID = unit.PropertyID

		if err := authorizeDecision(actor, &booking, &unit, d); err != nil {
			return err
		}
		if booking.Status.IsTerminal() {
			return errorx.InvalidTransition("booking %d is already %s", bookingID, booking.Status)
		}
		before := booking

		now := s.now()
		decidedBy := actor.ID
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingID, models.BookingPending).
			Updates(map[string]any{
				"status":        target,
				"decided_at":    now,
				"decided_by_id": decidedBy,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errorx.InvalidTransition("booking %d is no longer Pending", bookingID)
		}
		booking.Status = target
		booking.DecidedAt = &now
		booking.DecidedByID = &decidedBy

		switch d {
		case models.DecisionApprove:
			var tenant models.Identity
			if err := tx.First(&tenant, "id = ?", booking.TenantID).Error; err != nil {
				return errorx.FromStore(err, "tenant %s of booking %d", booking.TenantID, bookingID)
			}
			if strings.TrimSpace(tenant.FullName) == "" {
				return errorx.DataIntegrity("tenant %s has no full name", tenant.ID)
			}
			if _, err := listing.SetOccupancy(tx, unit.ID, models.OccupancyOccupied, tenant.FullName); err != nil {
				return err
			}
			occupancy = true
		case models.DecisionCancel:
			held, err := holdsUnit(tx, &before, unit.ID)
			if err != nil {
				return err
			}
			if held {
				if _, err := listing.SetOccupancy(tx, unit.ID, models.OccupancyVacant, ""); err != nil {
					return err
				}
				occupancy = true
			}
		}
		return nil
	})
	if err != nil {
		if errorx.KindOf(err) == "" {
			err = errorx.FromStore(err, "decide booking %d", bookingID)
		}
		s.log.Warn("booking decision rejected",
			zap.Uint("booking_id", bookingID),
			zap.String("decision", string(d)),
			zap.String("actor_id", actor.ID.String()),
			zap.Error(err))
		return nil, err
	}

	s.log.Info("booking decided",
		zap.Uint("booking_id", bookingID),
		zap.String("decision", string(d)),
		zap.String("status", string(booking.Status)),
		zap.String("actor_id", actor.ID.String()),
		zap.Bool("occupancy_changed", occupancy))
	if occupancy && s.reindex != nil {
		s.reindex.Reindex(ctx, propertyID)
	}
	return &booking, nil
}

// holdsUnit reports whether b is the booking that put the unit in its current
// Occupied state: b was Approved, the unit is labelled with b's tenant and no
// newer Approved booking exists on the unit. A Pending booking never holds it.
func holdsUnit(tx *gorm.DB, b *models.Booking, unitID uint) (bool, error) {
	if b.Status != models.BookingApproved {
		return false, nil
	}

	var unit models.Apartment
	if err := tx.First(&unit, unitID).Error; err != nil {
		return false, errorx.FromStore(err, "unit %d", unitID)
	}
	if !unit.IsOccupied() {
		return false, nil
	}
	var tenant models.Identity
	if err := tx.First(&tenant, "id = ?", b.TenantID).Error; err != nil {
		return false, errorx.FromStore(err, "tenant %s", b.TenantID)
	}
	if unit.TenantLabel() != strings.TrimSpace(tenant.FullName) {
		return false, nil
	}

	var newer int64
	err := tx.Model(&models.Booking{}).
		Where("apartment_id = ? AND status = ? AND id > ?", unitID, models.BookingApproved, b.ID).
		Count(&newer).Error
	if err != nil {
		return false, err
	}
	return newer == 0, nil
}

// ListFilter narrows List
type ListFilter struct {
	Status *models.BookingStatus
}

// List returns the bookings visible to the actor, newest first: all for an
// admin, those on owned properties for a landlord, their own for a tenant.
func (s *Service) List(ctx context.Context, actor models.Actor, f ListFilter) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).Model(&models.Booking{})
	switch {
	case actor.IsAdmin():
	case actor.HasRole(models.RoleLandlord):
		q = q.Joins("JOIN apartments ON apartments.id = bookings.apartment_id").
			Joins("JOIN properties ON properties.id = apartments.property_id").
			Where("properties.landlord_id = ?", actor.ID)
	case actor.HasRole(models.RoleTenant):
		q = q.Where("bookings.tenant_id = ?", actor.ID)
	default:
		return nil, errorx.Authorization("authentication required")
	}
	if f.Status != nil {
		if !f.Status.Valid() {
			return nil, errorx.Validation("invalid booking status %q", *f.Status)
		}
		q = q.Where("bookings.status = ?", *f.Status)
	}

	var bookings []models.Booking
	err := q.Preload("Apartment.Property").
		Order("bookings.created_at DESC").
		Order("bookings.id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, errorx.FromStore(err, "list bookings")
	}
	return bookings, nil
}

// Get returns one booking. Tenants see only their own, landlords only those on
// their units.
func (s *Service) Get(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).Preload("Apartment.Property").First(&b, id).Error; err != nil {
		return nil, errorx.FromStore(err, "booking %d", id)
	}
	if !canView(actor, &b) {
		return nil, errorx.Authorization("not allowed to view booking %d", id)
	}
	return &b, nil
}

func canView(actor models.Actor, b *models.Booking) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.HasRole(models.RoleTenant) {
		return actor.Is(b.TenantID)
	}
	if actor.HasRole(models.RoleLandlord) && b.Apartment != nil {
		landlordID, ok := b.Apartment.LandlordID()
		return ok && actor.Is(landlordID)
	}
	return false
}

// PendingFor counts Pending bookings on a unit
func (s *Service) PendingFor(ctx context.Context, unitID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("apartment_id = ? AND status = ?", unitID, models.BookingPending).
		Count(&n).Error
	if err != nil {
		return 0, errorx.FromStore(err, "count pending bookings of unit %d", unitID)
	}
	return n, nil
}
