package models

import (
	"strings"
	"time"

	"rental-portal/internal/errorx"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account roles
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleLandlord Role = "LANDLORD"
	RoleTenant   Role = "TENANT"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLandlord, RoleTenant:
		return true
	}
	return false
}

// ParseRole accepts any letter case
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// IdentityStatus is the soft lifecycle of an account
type IdentityStatus string

const (
	IdentityActive    IdentityStatus = "ACTIVE"
	IdentityInactive  IdentityStatus = "INACTIVE"
	IdentitySuspended IdentityStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses
func (s IdentityStatus) Valid() bool {
	switch s {
	case IdentityActive, IdentityInactive, IdentitySuspended:
		return true
	}
	return false
}

// VerificationStatus tracks admin verification of an account
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Valid reports whether s is one of the known verification states
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

// Identity is an account. It is never hard-deleted.
type Identity struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Username          string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"username"`
	Email             string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FullName          string    `gorm:"type:varchar(100);not null" json:"full_name"`
	PhoneNumber       string    `gorm:"type:varchar(15)" json:"phone_number,omitempty"`
	ProfilePictureURL MediaRef  `gorm:"type:varchar(500)" json:"profile_picture_url,omitempty"`
	Bio               string    `gorm:"type:text" json:"bio,omitempty"`

	Role   Role           `gorm:"type:varchar(20);not null;index" json:"role"`
	Status IdentityStatus `gorm:"type:varchar(10);not null;default:'ACTIVE'" json:"status"`

	// Verification
	VerificationStatus VerificationStatus `gorm:"type:varchar(10);not null;default:'PENDING'" json:"verification_status"`
	VerificationNotes  string             `gorm:"type:text" json:"verification_notes,omitempty"`
	VerificationDate   *time.Time         `json:"verification_date,omitempty"`
	VerifiedByID       *uuid.UUID         `gorm:"type:char(36)" json:"verified_by_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Identity) TableName() string {
	return "identities"
}

// IsActive reports whether the account may act
func (i *Identity) IsActive() bool {
	return i.Status == IdentityActive
}

// BeforeCreate assigns the id and rejects roles outside the closed set
func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	if !i.Role.Valid() {
		return errorx.Validation("invalid role %q", i.Role)
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = IdentityActive
	}
	if i.VerificationStatus == "" {
		i.VerificationStatus = VerificationPending
	}
	return nil
}

// AfterCreate is the only place a profile is created automatically. It runs in
// the same transaction as the identity insert.
func (i *Identity) AfterCreate(tx *gorm.DB) error {
	switch i.Role {
	case RoleTenant:
		return tx.Create(&TenantProfile{IdentityID: i.ID}).Error
	case RoleLandlord:
		return tx.Create(&LandlordProfile{IdentityID: i.ID}).Error
	}
	return nil
}
