package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the state of a booking. Pending is the only non-terminal state.
type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingApproved  BookingStatus = "Approved"
	BookingRejected  BookingStatus = "Rejected"
	BookingCancelled BookingStatus = "Cancelled"
)

// Valid reports whether s is one of the known booking states
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	return s != BookingPending
}

// Decision is an authorized actor's verdict on a Pending booking
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionCancel  Decision = "cancel"
)

// ParseDecision accepts any letter case
func ParseDecision(s string) (Decision, bool) {
	d := Decision(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DecisionApprove, DecisionReject, DecisionCancel:
		return d, true
	}
	return "", false
}

// Target returns the status a booking moves to under the decision
func (d Decision) Target() BookingStatus {
	switch d {
	case DecisionApprove:
		return BookingApproved
	case DecisionReject:
		return BookingRejected
	case DecisionCancel:
		return BookingCancelled
	}
	return ""
}

// Booking links a tenant to a unit. Many bookings may reference one unit over time.
type Booking struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:char(36);not null;index" json:"tenant_id"`
	ApartmentID uint       `gorm:"not null;index" json:"apartment_id"`
	Apartment   *Apartment `gorm:"foreignKey:ApartmentID" json:"apartment,omitempty"`

	StartDate time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate   *time.Time `gorm:"type:date" json:"end_date,omitempty"` // nil means open-ended
	Message   *string    `gorm:"type:text" json:"message,omitempty"`

	Status      BookingStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	CreatedAt   time.Time     `gorm:"not null;index" json:"created_at"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
	DecidedByID *uuid.UUID    `gorm:"type:char(36)" json:"decided_by_id,omitempty"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}
