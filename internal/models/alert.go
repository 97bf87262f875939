package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertCategory string

const (
	AlertCategoryFallDetected       AlertCategory = "FALL_DETECTED"
	AlertCategoryImmobilityDetected AlertCategory = "IMMOBILITY_DETECTED"
	AlertCategoryRouteDeviation     AlertCategory = "ROUTE_DEVIATION"
	AlertCategoryDangerZoneEntry    AlertCategory = "DANGER_ZONE_ENTRY"
	AlertCategoryManualEmergency    AlertCategory = "MANUAL_EMERGENCY"
)

var alertCategories = []AlertCategory{
	AlertCategoryFallDetected,
	AlertCategoryImmobilityDetected,
	AlertCategoryRouteDeviation,
	AlertCategoryDangerZoneEntry,
	AlertCategoryManualEmergency,
}

// AlertCategories returns the closed set of categories in display order.
func AlertCategories() []AlertCategory {
	out := make([]AlertCategory, len(alertCategories))
	copy(out, alertCategories)
	return out
}

func (c AlertCategory) Valid() bool {
	for _, v := range alertCategories {
		if c == v {
			return true
		}
	}
	return false
}

type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

var severityRank = map[AlertSeverity]int{
	AlertSeverityLow:      1,
	AlertSeverityMedium:   2,
	AlertSeverityHigh:     3,
	AlertSeverityCritical: 4,
}

// AlertSeverities returns the severities from least to most urgent.
func AlertSeverities() []AlertSeverity {
	return []AlertSeverity{AlertSeverityLow, AlertSeverityMedium, AlertSeverityHigh, AlertSeverityCritical}
}

func (s AlertSeverity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank orders severities, 0 for unknown values.
func (s AlertSeverity) Rank() int {
	return severityRank[s]
}

type Alert struct {
	ID         string        `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID     string        `gorm:"type:varchar(64);not null;index" json:"userId"`
	Category   AlertCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	Severity   AlertSeverity `gorm:"type:varchar(16);not null" json:"severity"`
	Message    string        `gorm:"type:text;not null" json:"message"`
	Latitude   *float64      `json:"latitude"`
	Longitude  *float64      `json:"longitude"`
	IsResolved bool          `gorm:"not null;index" json:"isResolved"`
	ResolvedAt *time.Time    `json:"resolvedAt"`
	CreatedAt  time.Time     `gorm:"index" json:"createdAt"`
	User       *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// HasCoordinates reports whether both coordinates are present.
func (a *Alert) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}
