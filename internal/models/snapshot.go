package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OccupancySnapshot represents a daily snapshot of a property's occupancy
type OccupancySnapshot struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint      `gorm:"not null;index:idx_property_date" json:"property_id"`
	SnapshotAt time.Time `gorm:"type:date;not null;index:idx_property_date,priority:2;index:idx_snapshot_date" json:"snapshot_at"`

	// Occupancy at snapshot time
	TotalUnits    int64           `gorm:"not null" json:"total_units"`
	OccupiedUnits int64           `gorm:"not null" json:"occupied_units"`
	OccupancyRate decimal.Decimal `gorm:"type:decimal(5,1);not null" json:"occupancy_rate"`
	AverageRent   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"average_rent"`

	// Change detection
	HasChanged bool   `gorm:"default:false" json:"has_changed"`
	ChangeNote string `gorm:"type:text" json:"change_note,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (OccupancySnapshot) TableName() string {
	return "occupancy_snapshots"
}
