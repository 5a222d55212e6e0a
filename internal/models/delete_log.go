package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingDeleteLog represents a record of physically deleted bookings
type BookingDeleteLog struct {
	ID          uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	BookingID   uint          `gorm:"not null;index" json:"booking_id"`
	TenantID    uuid.UUID     `gorm:"type:char(36);not null" json:"tenant_id"`
	ApartmentID uint          `gorm:"not null" json:"apartment_id"`
	Status      BookingStatus `gorm:"type:varchar(20);not null" json:"status"`
	BookedAt    time.Time     `json:"booked_at"`
	DeletedAt   time.Time     `gorm:"not null;autoCreateTime;index" json:"deleted_at"`
	Reason      string        `gorm:"type:varchar(50);not null" json:"reason"`
}

// TableName specifies the table name
func (BookingDeleteLog) TableName() string {
	return "booking_delete_logs"
}

// DeleteReason constants
const (
	DeleteReasonExpired = "retention_expired"
	DeleteReasonCascade = "property_deleted"
)
