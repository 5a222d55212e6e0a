package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MediaRef is an opaque reference (URL-like) to an uploaded image or video.
// It is stored and returned, never interpreted.
type MediaRef string

// PropertyType is the kind of building
type PropertyType string

const (
	PropertyTypeHouse     PropertyType = "House"
	PropertyTypeApartment PropertyType = "Apartment"
	PropertyTypeStudio    PropertyType = "Studio"
)

// Valid reports whether t is one of the known property types
func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeApartment, PropertyTypeStudio:
		return true
	}
	return false
}

// ParsePropertyType accepts any letter case ("house", "HOUSE")
func ParsePropertyType(s string) (PropertyType, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	t := PropertyType(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
	return t, t.Valid()
}

type Property struct {
	// Basic info
	ID           uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	LandlordID   uuid.UUID    `gorm:"type:char(36);not null;index" json:"landlord_id"`
	Title        string       `gorm:"type:varchar(200);not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	PropertyType PropertyType `gorm:"type:varchar(50);not null;index" json:"property_type"`
	Address      string       `gorm:"type:varchar(300)" json:"address"`
	MainImage    MediaRef     `gorm:"type:varchar(500)" json:"main_image,omitempty"`

	// Units
	Apartments []Apartment `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"apartments,omitempty"`

	// Timestamps
	DateAdded time.Time `gorm:"not null;index" json:"date_added"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Property) TableName() string {
	return "properties"
}

// OwnedBy reports whether the landlord with the given id owns the property
func (p *Property) OwnedBy(id uuid.UUID) bool {
	return id != uuid.Nil && p.LandlordID == id
}
