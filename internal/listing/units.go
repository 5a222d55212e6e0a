package listing

import (
	"context"
	"strings"

	"rental-portal/internal/database"
	"rental-portal/internal/errorx"
	"rental-portal/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRent is the first value that no longer fits decimal(10,2)
var maxRent = decimal.New(1, 8)

// ValidateRent requires a non-negative amount with at most 2 fractional and 8
// integer digits
func ValidateRent(rent decimal.Decimal) error {
	if rent.IsNegative() {
		return errorx.Validation("rent must not be negative")
	}
	if !rent.Equal(rent.Round(2)) {
		return errorx.Validation("rent %s has more than 2 decimal places", rent)
	}
	if rent.GreaterThanOrEqual(maxRent) {
		return errorx.Validation("rent %s exceeds 8 integer digits", rent)
	}
	return nil
}

// MediaInput is one attachment of a unit
type MediaInput struct {
	Kind models.MediaKind `json:"kind"`
	Ref  models.MediaRef  `json:"ref"`
}

// UnitInput carries the editable fields of a unit. Status and tenant name are
// changed only through UpdateUnitStatus or a booking decision.
// Rent is required; a nil Bedrooms keeps the unit's current count.
type UnitInput struct {
	UnitNumber string           `json:"unit_number" binding:"required"`
	Bedrooms   *int             `json:"bedrooms"`
	Rent       *decimal.Decimal `json:"rent"`
	Notes      string           `json:"notes"`
	Media      []MediaInput     `json:"media"`
}

func (in UnitInput) apply(a *models.Apartment) error {
	label := strings.TrimSpace(in.UnitNumber)
	if label == "" || len(label) > 50 {
		return errorx.Validation("unit number must be 1-50 characters")
	}
	bedrooms := a.Bedrooms
	if in.Bedrooms != nil {
		bedrooms = *in.Bedrooms
	}
	if bedrooms < 0 {
		return errorx.Validation("bedrooms must not be negative")
	}
	if in.Rent == nil {
		return errorx.Validation("rent is required")
	}
	if err := ValidateRent(*in.Rent); err != nil {
		return err
	}

	a.UnitNumber = label
	a.Bedrooms = bedrooms
	a.Rent = *in.Rent
	a.Notes = in.Notes
	return nil
}

func mediaRows(unitID uint, in []MediaInput) ([]models.ApartmentMedia, error) {
	rows := make([]models.ApartmentMedia, 0, len(in))
	for i, m := range in {
		kind := m.Kind
		if kind == "" {
			kind = models.MediaImage
		}
		if kind != models.MediaImage && kind != models.MediaVideo {
			return nil, errorx.Validation("invalid media kind %q", m.Kind)
		}
		ref := models.MediaRef(strings.TrimSpace(string(m.Ref)))
		if ref == "" {
			return nil, errorx.Validation("media reference %d is empty", i)
		}
		rows = append(rows, models.ApartmentMedia{
			ApartmentID: unitID,
			Kind:        kind,
			Ref:         ref,
			SortOrder:   i,
		})
	}
	return rows, nil
}

// CreateUnit adds a Vacant unit to a property
func (s *Service) CreateUnit(ctx context.Context, actor models.Actor, propertyID uint, in UnitInput) (*models.Apartment, error) {
	p, err := s.findProperty(s.db.WithContext(ctx), propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(actor, p); err != nil {
		return nil, err
	}

	unit := &models.Apartment{
		PropertyID: propertyID,
		Bedrooms:   1,
		Status:     models.OccupancyVacant,
		DateAdded:  s.now(),
	}
	if err := in.apply(unit); err != nil {
		return nil, err
	}
	media, err := mediaRows(0, in.Media)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Media", "Bookings", "Property").Create(unit).Error; err != nil {
			return err
		}
		if len(media) == 0 {
			return nil
		}
		for i := range media {
			media[i].ApartmentID = unit.ID
		}
		if err := tx.Create(&media).Error; err != nil {
			return err
		}
		unit.Media = media
		return nil
	})
	if err != nil {
		return nil, errorx.FromStore(err, "create unit on property %d", propertyID)
	}

	unit.Property = p
	s.log.Info("unit created",
		zap.Uint("unit_id", unit.ID),
		zap.Uint("property_id", propertyID),
		zap.String("rent", unit.Rent.StringFixed(2)))
	s.Reindex(ctx, propertyID)
	return unit, nil
}

// UpdateUnit edits a unit's label, bedrooms, rent, notes and, when given, media
func (s *Service) UpdateUnit(ctx context.Context, actor models.Actor, unitID uint, in UnitInput) (*models.Apartment, error) {
	var unit *models.Apartment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		unit, err = lockUnit(tx, unitID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, unit.Property); err != nil {
			return err
		}
		if err := in.apply(unit); err != nil {
			return err
		}
		if err := tx.Model(unit).
			Select("unit_number", "bedrooms", "rent", "notes", "updated_at").
			Updates(unit).Error; err != nil {
			return err
		}
		if in.Media == nil {
			return nil
		}
		media, err := mediaRows(unitID, in.Media)
		if err != nil {
			return err
		}
		if err := tx.Where("apartment_id = ?", unitID).Delete(&models.ApartmentMedia{}).Error; err != nil {
			return err
		}
		if len(media) > 0 {
			if err := tx.Create(&media).Error; err != nil {
				return err
			}
		}
		unit.Media = media
		return nil
	})
	if err != nil {
		if errorx.KindOf(err) != "" {
			return nil, err
		}
		return nil, errorx.FromStore(err, "update unit %d", unitID)
	}

	s.log.Info("unit updated", zap.Uint("unit_id", unitID))
	s.Reindex(ctx, unit.PropertyID)
	return unit, nil
}

// GetUnit returns a unit with its property and media
func (s *Service) GetUnit(ctx context.Context, id uint) (*models.Apartment, error) {
	var unit models.Apartment
	err := s.db.WithContext(ctx).
		Preload("Property").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		First(&unit, id).Error
	if err != nil {
		return nil, errorx.FromStore(err, "unit %d", id)
	}
	return &unit, nil
}

// ListUnits returns the units of a property in insertion order
func (s *Service) ListUnits(ctx context.Context, propertyID uint) ([]models.Apartment, error) {
	if _, err := s.findProperty(s.db.WithContext(ctx), propertyID); err != nil {
		return nil, err
	}
	var units []models.Apartment
	err := s.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Order("id").
		Find(&units).Error
	if err != nil {
		return nil, errorx.FromStore(err, "list units of property %d", propertyID)
	}
	return units, nil
}

// UpdateUnitStatus is the manual occupancy override of the owning landlord or
// an admin. It does not touch bookings on the unit.
func (s *Service) UpdateUnitStatus(ctx context.Context, actor models.Actor, unitID uint, status models.OccupancyStatus, tenantName string) (*models.Apartment, error) {
	if !status.Valid() {
		return nil, errorx.Validation("invalid occupancy status %q", status)
	}

	var unit *models.Apartment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := lockUnit(tx, unitID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(actor, locked.Property); err != nil {
			return err
		}
		unit, err = writeOccupancy(tx, locked, status, tenantName)
		return err
	})
	if err != nil {
		if errorx.KindOf(err) != "" {
			return nil, err
		}
		return nil, errorx.FromStore(err, "update status of unit %d", unitID)
	}

	s.metrics.ManualOverride(status)
	s.log.Info("unit status changed",
		zap.Uint("unit_id", unitID),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.ID.String()),
		zap.Bool("manual_override", true))
	s.Reindex(ctx, unit.PropertyID)
	return unit, nil
}

// SetOccupancy is the single write path for a unit's status and tenant name.
// tx must be a transaction; the unit row stays locked until it commits.
// Occupied requires a non-empty tenant name; Vacant clears it.
func SetOccupancy(tx *gorm.DB, unitID uint, status models.OccupancyStatus, tenantName string) (*models.Apartment, error) {
	if !status.Valid() {
		return nil, errorx.Validation("invalid occupancy status %q", status)
	}
	unit, err := lockUnit(tx, unitID)
	if err != nil {
		return nil, err
	}
	return writeOccupancy(tx, unit, status, tenantName)
}

func writeOccupancy(tx *gorm.DB, unit *models.Apartment, status models.OccupancyStatus, tenantName string) (*models.Apartment, error) {
	switch status {
	case models.OccupancyOccupied:
		if err := unit.MarkOccupied(tenantName); err != nil {
			return nil, err
		}
	case models.OccupancyVacant:
		unit.MarkVacant()
	}
	if err := unit.CheckOccupancy(); err != nil {
		return nil, err
	}

	err := tx.Model(unit).Updates(map[string]any{
		"status":      unit.Status,
		"tenant_name": unit.TenantName,
	}).Error
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// lockUnit reads a unit with its property under a row lock
func lockUnit(tx *gorm.DB, unitID uint) (*models.Apartment, error) {
	var unit models.Apartment
	if err := database.ForUpdate(tx).First(&unit, unitID).Error; err != nil {
		return nil, errorx.FromStore(err, "unit %d", unitID)
	}
	var p models.Property
	if err := tx.First(&p, unit.PropertyID).Error; err != nil {
		return nil, errorx.FromStore(err, "property %d of unit %d", unit.PropertyID, unitID)
	}
	unit.Property = &p
	return &unit, nil
}
