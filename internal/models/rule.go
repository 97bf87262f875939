package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultFallSensitivity   = 0.8
	DefaultImmobilityTimeout = 300

	MinFallSensitivity   = 0.1
	MaxFallSensitivity   = 1.0
	MinImmobilityTimeout = 60
	MaxImmobilityTimeout = 3600
)

// DetectionRule holds per-user detection thresholds. At most one per user.
type DetectionRule struct {
	ID                string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	UserID            string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"userId"`
	FallSensitivity   float64   `gorm:"not null" json:"fallSensitivity"`
	ImmobilityTimeout int       `gorm:"not null" json:"immobilityTimeout"` // seconds
	IsActive          bool      `gorm:"not null" json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (r *DetectionRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
