// Package listing is the catalog of properties and their apartment units.
//
// Every write to a unit's occupancy goes through SetOccupancy, which locks the
// unit row and enforces the Occupied/tenant-name invariant. The booking engine
// calls it inside its own transaction.
package listing

import (
	"context"
	"strings"
	"time"

	"rental-portal/internal/errorx"
	"rental-portal/internal/models"
	"rental-portal/internal/stats"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Listing is a property with its derived unit statistics
type Listing struct {
	Property     models.Property        `json:"property"`
	Stats        stats.Stats            `json:"stats"`
	Availability models.OccupancyStatus `json:"availability"`
}

// Recorder receives catalog events for metrics
type Recorder interface {
	ManualOverride(status models.OccupancyStatus)
}

type nopRecorder struct{}

func (nopRecorder) ManualOverride(models.OccupancyStatus) {}

// Option configures a Service
type Option func(*Service)

// WithIndexer pushes catalog changes to a search index
func WithIndexer(ix Indexer) Option {
	return func(s *Service) {
		if ix != nil {
			s.index = ix
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// Service handles property and unit operations
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	index   Indexer
	metrics Recorder
	now     func() time.Time
}

// NewService creates a new listing service
func NewService(db *gorm.DB, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		db:      db,
		log:     log,
		index:   NopIndexer{},
		metrics: nopRecorder{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PropertyInput carries the editable fields of a property
type PropertyInput struct {
	Title        string          `json:"title" binding:"required"`
	Description  string          `json:"description"`
	PropertyType string          `json:"property_type" binding:"required"`
	Address      string          `json:"address"`
	MainImage    models.MediaRef `json:"main_image"`
}

func (in PropertyInput) apply(p *models.Property) error {
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > 200 {
		return errorx.Validation("title must be 1-200 characters")
	}
	typ, ok := models.ParsePropertyType(in.PropertyType)
	if !ok {
		return errorx.Validation("invalid property type %q", in.PropertyType)
	}
	address := strings.TrimSpace(in.Address)
	if len(address) > 300 {
		return errorx.Validation("address exceeds 300 characters")
	}

	p.Title = title
	p.Description = in.Description
	p.PropertyType = typ
	p.Address = address
	p.MainImage = in.MainImage
	return nil
}

// authorizeOwner allows the owning landlord or an admin
func authorizeOwner(actor models.Actor, p *models.Property) error {
	if actor.IsAdmin() || (actor.HasRole(models.RoleLandlord) && p.OwnedBy(actor.ID)) {
		return nil
	}
	return errorx.Authorization("property %d is not owned by %s", p.ID, actor.ID)
}

// CreateProperty lists a new property owned by the acting landlord
func (s *Service) CreateProperty(ctx context.Context, actor models.Actor, in PropertyInput) (*models.Property, error) {
	if !actor.HasRole(models.RoleLandlord) {
		return nil, errorx.Authorization("only landlords can list properties")
	}
	p := &models.Property{LandlordID: actor.ID, DateAdded: s.now()}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, errorx.FromStore(err, "create property")
	}

	s.log.Info("property created",
		zap.Uint("property_id", p.ID),
		zap.String("landlord_id", actor.ID.String()))
	s.Reindex(ctx, p.ID)
	return p, nil
}

// UpdateProperty edits a property's details
func (s *Service) UpdateProperty(ctx context.Context, actor models.Actor, id uint, in PropertyInput) (*models.Property, error) {
	p, err := s.findProperty(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, p); err != nil {
		return nil, err
	}
	if err := in.apply(p); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(p).
		Select("title", "description", "property_type", "address", "main_image", "updated_at").
		Updates(p).Error
	if err != nil {
		return nil, errorx.FromStore(err, "update property %d", id)
	}

	s.log.Info("property updated", zap.Uint("property_id", id))
	s.Reindex(ctx, id)
	return p, nil
}

// DeleteProperty removes a property with its units, media and bookings in one
// transaction. Each removed booking is recorded in the delete log.
func (s *Service) DeleteProperty(ctx context.Context, actor models.Actor, id uint) error {
	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.findProperty(tx, id)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, p); err != nil {
			return err
		}

		var unitIDs []uint
		if err := tx.Model(&models.Apartment{}).Where("property_id = ?", id).Pluck("id", &unitIDs).Error; err != nil {
			return err
		}
		if len(unitIDs) > 0 {
			var bookings []models.Booking
			if err := tx.Where("apartment_id IN ?", unitIDs).Find(&bookings).Error; err != nil {
				return err
			}
			if len(bookings) > 0 {
				logs := make([]models.BookingDeleteLog, 0, len(bookings))
				for _, b := range bookings {
					logs = append(logs, models.BookingDeleteLog{
						BookingID:   b.ID,
						TenantID:    b.TenantID,
						ApartmentID: b.ApartmentID,
						Status:      b.Status,
						BookedAt:    b.CreatedAt,
						Reason:      models.DeleteReasonCascade,
					})
				}
				if err := tx.Create(&logs).Error; err != nil {
					return err
				}
				if err := tx.Where("apartment_id IN ?", unitIDs).Delete(&models.Booking{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("apartment_id IN ?", unitIDs).Delete(&models.ApartmentMedia{}).Error; err != nil {
				return err
			}
			if err := tx.Where("property_id = ?", id).Delete(&models.Apartment{}).Error; err != nil {
				return err
			}
		}
		removed = len(unitIDs)
		return tx.Delete(&models.Property{}, id).Error
	})
	if err != nil {
		if errorx.KindOf(err) != "" {
			return err
		}
		return errorx.FromStore(err, "delete property %d", id)
	}

	s.log.Info("property deleted",
		zap.Uint("property_id", id),
		zap.Int("units", removed),
		zap.String("actor_id", actor.ID.String()))
	if err := s.index.RemoveProperty(ctx, id); err != nil {
		s.log.Warn("failed to remove property from index", zap.Uint("property_id", id), zap.Error(err))
	}
	return nil
}

func (s *Service) findProperty(db *gorm.DB, id uint) (*models.Property, error) {
	var p models.Property
	if err := db.First(&p, id).Error; err != nil {
		return nil, errorx.FromStore(err, "property %d", id)
	}
	return &p, nil
}

// GetProperty returns a property with its units
func (s *Service) GetProperty(ctx context.Context, id uint) (*models.Property, error) {
	var p models.Property
	err := s.db.WithContext(ctx).
		Preload("Apartments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&p, id).Error
	if err != nil {
		return nil, errorx.FromStore(err, "property %d", id)
	}
	return &p, nil
}

// GetListing returns a property with its units and derived statistics
func (s *Service) GetListing(ctx context.Context, id uint) (*Listing, error) {
	p, err := s.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	listings, err := s.listingsFor(ctx, []models.Property{*p})
	if err != nil {
		return nil, err
	}
	return &listings[0], nil
}

// PropertiesOf returns the properties owned by a landlord, newest first
func (s *Service) PropertiesOf(ctx context.Context, landlordID uuid.UUID) ([]models.Property, error) {
	var props []models.Property
	err := s.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("date_added DESC").Order("id DESC").
		Find(&props).Error
	if err != nil {
		return nil, errorx.FromStore(err, "list properties of %s", landlordID)
	}
	return props, nil
}

// Reindex pushes the current state of a property to the search index.
// Failures are logged; the index is a derived view.
func (s *Service) Reindex(ctx context.Context, propertyID uint) {
	if _, ok := s.index.(NopIndexer); ok {
		return
	}
	l, err := s.GetListing(ctx, propertyID)
	if err != nil {
		s.log.Warn("failed to load property for indexing", zap.Uint("property_id", propertyID), zap.Error(err))
		return
	}
	if err := s.index.IndexListing(ctx, *l); err != nil {
		s.log.Warn("failed to index property", zap.Uint("property_id", propertyID), zap.Error(err))
	}
}
