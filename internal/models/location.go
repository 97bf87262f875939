package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is an append-only position reading. The reading with the greatest
// RecordedAt is the user's current location.
type Location struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;index:idx_locations_user_recorded,priority:1" json:"userId"`
	Latitude   float64   `gorm:"not null" json:"latitude"`
	Longitude  float64   `gorm:"not null" json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	RecordedAt time.Time `gorm:"not null;index:idx_locations_user_recorded,priority:2" json:"recordedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.RecordedAt.IsZero() {
		l.RecordedAt = time.Now().UTC()
	}
	return nil
}
