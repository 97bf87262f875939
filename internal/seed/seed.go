// Package seed loads a fixed demo data set. Every record has a stable id,
// so seeding twice leaves existing rows untouched.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mr1hm/safetywatch/internal/models"
)

// Store inserts records, skipping any whose key already exists.
type Store interface {
	InsertIgnore(ctx context.Context, records any) error
}

type Dataset struct {
	Users     []models.User
	Contacts  []models.EmergencyContact
	Rules     []models.DetectionRule
	Locations []models.Location
	Alerts    []models.Alert
}

type Summary struct {
	Users      int
	Contacts   int
	Rules      int
	Locations  int
	Alerts     int
	Unresolved int
	Critical   int
	High       int
}

func ptr[T any](v T) *T { return &v }

func user(id, email, name, phone string) models.User {
	return models.User{ID: id, Email: email, Name: ptr(name), Phone: ptr(phone)}
}

func contact(userID, name, phone, email, relation string) models.EmergencyContact {
	c := models.EmergencyContact{
		ID:       "contact_" + userID + "_" + strings.Join(strings.Fields(strings.ToLower(name)), "_"),
		UserID:   userID,
		Name:     name,
		Phone:    phone,
		Relation: ptr(relation),
	}
	if email != "" {
		c.Email = ptr(email)
	}
	return c
}

func rule(userID string, sensitivity float64, timeout int, active bool) models.DetectionRule {
	return models.DetectionRule{
		ID:                "rule_" + userID,
		UserID:            userID,
		FallSensitivity:   sensitivity,
		ImmobilityTimeout: timeout,
		IsActive:          active,
	}
}

// Build returns the demo data with timestamps relative to now.
func Build(now time.Time) Dataset {
	ago := func(d time.Duration) time.Time { return now.Add(-d) }

	const (
		john  = "user_john_doe"
		jane  = "user_jane_smith"
		bob   = "user_bob_wilson"
		alice = "user_alice_johnson"
		mike  = "user_mike_brown"
	)

	ds := Dataset{
		Users: []models.User{
			user(john, "john.doe@example.com", "John Doe", "+1-555-0101"),
			user(jane, "jane.smith@example.com", "Jane Smith", "+1-555-0102"),
			user(bob, "bob.wilson@example.com", "Bob Wilson", "+1-555-0103"),
			user(alice, "alice.johnson@example.com", "Alice Johnson", "+1-555-0104"),
			user(mike, "mike.brown@example.com", "Mike Brown", "+1-555-0105"),
		},
		Contacts: []models.EmergencyContact{
			contact(john, "Sarah Doe", "+1-555-0201", "sarah.doe@example.com", "Spouse"),
			contact(john, "Emergency Services", "911", "", "Emergency"),
			contact(john, "Dr. Smith", "+1-555-0301", "dr.smith@hospital.com", "Doctor"),
			contact(jane, "Tom Smith", "+1-555-0202", "tom.smith@example.com", "Brother"),
			contact(jane, "Emergency Services", "911", "", "Emergency"),
			contact(bob, "Mary Wilson", "+1-555-0203", "mary.wilson@example.com", "Wife"),
			contact(bob, "Emergency Services", "911", "", "Emergency"),
			contact(alice, "David Johnson", "+1-555-0204", "david.johnson@example.com", "Husband"),
			contact(alice, "Emergency Services", "911", "", "Emergency"),
			contact(mike, "Lisa Brown", "+1-555-0205", "lisa.brown@example.com", "Sister"),
			contact(mike, "Emergency Services", "911", "", "Emergency"),
		},
		Rules: []models.DetectionRule{
			rule(john, 0.8, 300, true),
			rule(jane, 0.7, 600, true),
			rule(bob, 0.9, 180, true),
			rule(alice, 0.75, 450, true),
			rule(mike, 0.85, 240, false),
		},
	}

	type loc struct {
		userID                     string
		lat, long, accuracy, speed float64
		heading                    *float64
		age                        time.Duration
	}
	for i, l := range []loc{
		{john, 40.7829, -73.9654, 5.0, 0.0, nil, 5 * time.Minute},
		{john, 40.7831, -73.9652, 4.2, 1.2, ptr(45.0), 3 * time.Minute},
		{jane, 40.758, -73.9855, 3.8, 2.1, ptr(180.0), 10 * time.Minute},
		{jane, 40.7578, -73.9857, 4.1, 0.5, ptr(90.0), 2 * time.Minute},
		{bob, 40.7061, -73.9969, 6.2, 3.5, ptr(270.0), 15 * time.Minute},
		{alice, 40.7074, -74.0113, 4.8, 1.8, ptr(135.0), 7 * time.Minute},
		{mike, 40.748, -74.0048, 5.5, 0.8, ptr(225.0), 12 * time.Minute},
	} {
		ds.Locations = append(ds.Locations, models.Location{
			ID:         fmt.Sprintf("location_%d", i+1),
			UserID:     l.userID,
			Latitude:   l.lat,
			Longitude:  l.long,
			Accuracy:   ptr(l.accuracy),
			Speed:      ptr(l.speed),
			Heading:    l.heading,
			RecordedAt: ago(l.age),
			CreatedAt:  ago(l.age),
		})
	}

	type alert struct {
		userID    string
		category  models.AlertCategory
		severity  models.AlertSeverity
		message   string
		lat, long float64
		created   time.Duration
		// resolved is zero for open alerts.
		resolved time.Duration
	}
	for i, a := range []alert{
		{john, models.AlertCategoryFallDetected, models.AlertSeverityCritical, "Severe fall detected at Central Park. User may be unconscious.", 40.7829, -73.9654, 5 * time.Minute, 0},
		{bob, models.AlertCategoryImmobilityDetected, models.AlertSeverityHigh, "No movement detected for 15 minutes. Last known location: Brooklyn Bridge.", 40.7061, -73.9969, 15 * time.Minute, 0},
		{jane, models.AlertCategoryRouteDeviation, models.AlertSeverityMedium, "User has deviated from planned route by more than 500 meters.", 40.7578, -73.9857, 8 * time.Minute, 0},
		{alice, models.AlertCategoryManualEmergency, models.AlertSeverityHigh, "User manually triggered emergency alert. Reported feeling unwell.", 40.7074, -74.0113, 45 * time.Minute, 30 * time.Minute},
		{mike, models.AlertCategoryDangerZoneEntry, models.AlertSeverityMedium, "User entered restricted construction zone area.", 40.748, -74.0048, 35 * time.Minute, 20 * time.Minute},
		{john, models.AlertCategoryFallDetected, models.AlertSeverityMedium, "Minor fall detected. User recovered quickly.", 40.7825, -73.9658, 3 * time.Hour, 2 * time.Hour},
		{jane, models.AlertCategoryImmobilityDetected, models.AlertSeverityLow, "Extended rest period detected. User was taking a planned break.", 40.7582, -73.9851, 5 * time.Hour, 4 * time.Hour},
		{bob, models.AlertCategoryRouteDeviation, models.AlertSeverityLow, "Minor route deviation to avoid construction.", 40.7065, -73.9965, 24 * time.Hour, 20 * time.Hour},
		{alice, models.AlertCategoryFallDetected, models.AlertSeverityLow, "Stumble detected, user maintained balance.", 40.7076, -74.0115, 25 * time.Hour, 22 * time.Hour},
		{mike, models.AlertCategoryImmobilityDetected, models.AlertSeverityMedium, "Extended immobility during lunch break.", 40.7485, -74.0045, 28 * time.Hour, 26 * time.Hour},
	} {
		m := models.Alert{
			ID:        fmt.Sprintf("alert_%d", i+1),
			UserID:    a.userID,
			Category:  a.category,
			Severity:  a.severity,
			Message:   a.message,
			Latitude:  ptr(a.lat),
			Longitude: ptr(a.long),
			CreatedAt: ago(a.created),
		}
		if a.resolved > 0 {
			m.IsResolved = true
			m.ResolvedAt = ptr(ago(a.resolved))
		}
		ds.Alerts = append(ds.Alerts, m)
	}

	return ds
}

// Summarize counts the data set the way the seed command reports it.
func (ds Dataset) Summarize() Summary {
	s := Summary{
		Users:     len(ds.Users),
		Contacts:  len(ds.Contacts),
		Rules:     len(ds.Rules),
		Locations: len(ds.Locations),
		Alerts:    len(ds.Alerts),
	}
	for _, a := range ds.Alerts {
		if !a.IsResolved {
			s.Unresolved++
		}
		switch a.Severity {
		case models.AlertSeverityCritical:
			s.Critical++
		case models.AlertSeverityHigh:
			s.High++
		}
	}
	return s
}

// Run inserts the data set. Parents go first so foreign keys hold.
func Run(ctx context.Context, store Store, now time.Time) (Summary, error) {
	ds := Build(now.UTC())

	steps := []struct {
		name    string
		records any
	}{
		{"users", &ds.Users},
		{"emergency contacts", &ds.Contacts},
		{"detection rules", &ds.Rules},
		{"locations", &ds.Locations},
		{"alerts", &ds.Alerts},
	}
	for _, step := range steps {
		if err := store.InsertIgnore(ctx, step.records); err != nil {
			return Summary{}, fmt.Errorf("failed to seed %s: %w", step.name, err)
		}
		slog.Info("seeded", "table", step.name)
	}
	return ds.Summarize(), nil
}
