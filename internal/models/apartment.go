package models

import (
	"strings"
	"time"

	"rental-portal/internal/errorx"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OccupancyStatus is the Vacant/Occupied state of a unit
type OccupancyStatus string

const (
	OccupancyVacant   OccupancyStatus = "Vacant"
	OccupancyOccupied OccupancyStatus = "Occupied"
)

// Valid reports whether s is one of the known occupancy states
func (s OccupancyStatus) Valid() bool {
	return s == OccupancyVacant || s == OccupancyOccupied
}

// ParseOccupancyStatus accepts any letter case
func ParseOccupancyStatus(s string) (OccupancyStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vacant":
		return OccupancyVacant, true
	case "occupied":
		return OccupancyOccupied, true
	}
	return "", false
}

// Apartment is a rentable unit owned by a Property.
// Status == Occupied exactly when TenantName is non-empty.
type Apartment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint      `gorm:"not null;index" json:"property_id"`
	Property   *Property `gorm:"foreignKey:PropertyID" json:"-"`

	UnitNumber string          `gorm:"type:varchar(50);not null" json:"unit_number"`
	Bedrooms   int             `gorm:"not null" json:"bedrooms"`
	Rent       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rent"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`

	Status     OccupancyStatus `gorm:"type:varchar(20);not null;default:'Vacant';index" json:"status"`
	TenantName *string         `gorm:"type:varchar(100)" json:"tenant_name,omitempty"`

	Media    []ApartmentMedia `gorm:"foreignKey:ApartmentID;constraint:OnDelete:CASCADE" json:"media,omitempty"`
	Bookings []Booking        `gorm:"foreignKey:ApartmentID;constraint:OnDelete:CASCADE" json:"-"`

	DateAdded time.Time `gorm:"not null" json:"date_added"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Apartment) TableName() string {
	return "apartments"
}

// LandlordID derives the owning landlord from the loaded property.
// ok is false when the property was not loaded.
func (a *Apartment) LandlordID() (id uuid.UUID, ok bool) {
	if a.Property == nil {
		return uuid.Nil, false
	}
	return a.Property.LandlordID, true
}

// TenantLabel returns the tenant name or "" when vacant
func (a *Apartment) TenantLabel() string {
	if a.TenantName == nil {
		return ""
	}
	return *a.TenantName
}

// IsOccupied reports whether the unit has a tenant
func (a *Apartment) IsOccupied() bool {
	return a.Status == OccupancyOccupied
}

// MarkOccupied sets the unit to Occupied with the given tenant label
func (a *Apartment) MarkOccupied(tenantName string) error {
	name := strings.TrimSpace(tenantName)
	if name == "" {
		return errorx.Validation("tenant name is required to mark unit %d occupied", a.ID)
	}
	if len(name) > 100 {
		return errorx.Validation("tenant name exceeds 100 characters")
	}
	a.Status = OccupancyOccupied
	a.TenantName = &name
	return nil
}

// MarkVacant clears the tenant label
func (a *Apartment) MarkVacant() {
	a.Status = OccupancyVacant
	a.TenantName = nil
}

// CheckOccupancy verifies the status/tenant-name invariant
func (a *Apartment) CheckOccupancy() error {
	switch a.Status {
	case OccupancyOccupied:
		if strings.TrimSpace(a.TenantLabel()) == "" {
			return errorx.DataIntegrity("unit %d is Occupied without a tenant name", a.ID)
		}
	case OccupancyVacant:
		if a.TenantLabel() != "" {
			return errorx.DataIntegrity("unit %d is Vacant but labelled %q", a.ID, a.TenantLabel())
		}
	default:
		return errorx.DataIntegrity("unit %d has unknown status %q", a.ID, a.Status)
	}
	return nil
}
