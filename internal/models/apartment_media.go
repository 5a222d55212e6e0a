package models

import "time"

// MediaKind distinguishes images from videos attached to a unit
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ApartmentMedia represents an image or video associated with a unit
type ApartmentMedia struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ApartmentID uint      `gorm:"not null;index" json:"apartment_id"`
	Kind        MediaKind `gorm:"type:varchar(10);not null" json:"kind"`
	Ref         MediaRef  `gorm:"type:varchar(500);not null" json:"ref"`
	SortOrder   int       `gorm:"not null;default:0;index" json:"sort_order"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for ApartmentMedia
func (ApartmentMedia) TableName() string {
	return "apartment_media"
}
