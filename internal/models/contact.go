package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EmergencyContact struct {
	ID        string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"userId"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(64);not null" json:"phone"`
	Email     *string   `gorm:"type:varchar(255)" json:"email"`
	Relation  *string   `gorm:"type:varchar(64)" json:"relation"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *EmergencyContact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
