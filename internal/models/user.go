package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Name           *string   `gorm:"type:varchar(255)" json:"name"`
	Phone          *string   `gorm:"type:varchar(64)" json:"phone"`
	TelegramChatID *string   `gorm:"type:varchar(64)" json:"telegramChatId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Alerts            []Alert            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"alerts,omitempty"`
	Locations         []Location         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"locations,omitempty"`
	EmergencyContacts []EmergencyContact `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"emergencyContacts,omitempty"`
	DetectionRules    []DetectionRule    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"detectionRules,omitempty"`

	Counts *UserCounts `gorm:"-" json:"counts,omitempty"`
}

type UserCounts struct {
	Alerts            int64 `json:"alerts"`
	Locations         int64 `json:"locations"`
	EmergencyContacts int64 `json:"emergencyContacts"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// LatestLocation returns the first loaded location, which reads order newest first.
func (u *User) LatestLocation() *Location {
	if len(u.Locations) == 0 {
		return nil
	}
	return &u.Locations[0]
}
