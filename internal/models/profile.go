package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantProfile extends a TENANT identity, one-to-one
type TenantProfile struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IdentityID        uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"identity_id"`
	CurrentAddress    string    `gorm:"type:varchar(255)" json:"current_address,omitempty"`
	PreferredLocation string    `gorm:"type:varchar(255)" json:"preferred_location,omitempty"`
	Occupation        string    `gorm:"type:varchar(100)" json:"occupation,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (TenantProfile) TableName() string {
	return "tenant_profiles"
}

// LandlordProfile extends a LANDLORD identity, one-to-one
type LandlordProfile struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	IdentityID           uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"identity_id"`
	PropertyName         string    `gorm:"type:varchar(255)" json:"property_name,omitempty"`
	CompanyName          string    `gorm:"type:varchar(255)" json:"company_name,omitempty"`
	BusinessPermitNumber string    `gorm:"type:varchar(100)" json:"business_permit_number,omitempty"`
	Address              string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	NationalID           string    `gorm:"type:varchar(20)" json:"national_id,omitempty"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (LandlordProfile) TableName() string {
	return "landlord_profiles"
}
