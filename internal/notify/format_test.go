package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/safetywatch/internal/models"
)

func ptr[T any](v T) *T { return &v }

func sampleAlert() models.Alert {
	return models.Alert{
		ID:        "alert_1",
		UserID:    "user_john_doe",
		Category:  models.AlertCategoryFallDetected,
		Severity:  models.AlertSeverityCritical,
		Message:   "Severe fall <near> the stairs & landing",
		Latitude:  ptr(40.7829),
		Longitude: ptr(-73.9654),
		CreatedAt: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
		User:      &models.User{ID: "user_john_doe", Email: "john.doe@example.com", Name: ptr("John Doe"), TelegramChatID: ptr("42")},
	}
}

func TestFormatAlertHTML(t *testing.T) {
	msg := FormatAlertHTML(sampleAlert())

	assert.Contains(t, msg, "🚨 <b>SAFETY ALERT</b> 🔴")
	assert.Contains(t, msg, "<b>Alert Type:</b> FALL DETECTED")
	assert.Contains(t, msg, "<b>Severity:</b> 🔴 CRITICAL")
	assert.Contains(t, msg, "<b>Time:</b> 2026-05-04 10:30:00 UTC")
	assert.Contains(t, msg, "<b>Affected User:</b> John Doe")
	assert.Contains(t, msg, "Severe fall &lt;near&gt; the stairs &amp; landing")
	assert.Contains(t, msg, `<a href="https://www.google.com/maps?q=40.7829,-73.9654">View on Google Maps</a>`)
	assert.Contains(t, msg, "Alert ID: alert_1")
}

func TestFormatAlertHTML_AllUnderscoresReplaced(t *testing.T) {
	a := sampleAlert()
	a.Category = models.AlertCategoryDangerZoneEntry

	msg := FormatAlertHTML(a)
	assert.Contains(t, msg, "DANGER ZONE ENTRY")
	assert.NotContains(t, msg, "DANGER_ZONE")
}

func TestFormatAlertHTML_ZeroCoordinateStillLinks(t *testing.T) {
	a := sampleAlert()
	a.Latitude = ptr(0.0)
	a.Longitude = ptr(0.0)

	assert.Contains(t, FormatAlertHTML(a), "maps?q=0,0")
}

func TestFormatAlertHTML_NoLocation(t *testing.T) {
	a := sampleAlert()
	a.Longitude = nil

	assert.NotContains(t, FormatAlertHTML(a), "Google Maps")
}

func TestFormatAlertHTML_FallbackUser(t *testing.T) {
	a := sampleAlert()
	a.User.Name = nil
	assert.Contains(t, FormatAlertHTML(a), "<b>Affected User:</b> john.doe@example.com")

	a.User = nil
	assert.Contains(t, FormatAlertHTML(a), "<b>Affected User:</b> Unknown User")
}

func TestSeverityEmoji(t *testing.T) {
	tests := map[models.AlertSeverity]string{
		models.AlertSeverityCritical: "🔴",
		models.AlertSeverityHigh:     "🟠",
		models.AlertSeverityMedium:   "🟡",
		models.AlertSeverityLow:      "🔵",
		"UNKNOWN":                    "⚪",
	}
	for sev, want := range tests {
		assert.Equal(t, want, severityEmoji(sev), string(sev))
	}
}

func TestFormatAlertText(t *testing.T) {
	msg := FormatAlertText(sampleAlert())

	assert.True(t, strings.HasPrefix(msg, "[CRITICAL] FALL DETECTED for John Doe"))
	assert.Contains(t, msg, "Severe fall <near> the stairs & landing")
	assert.Contains(t, msg, "Alert ID: alert_1")
}

func TestWelcomeMessage(t *testing.T) {
	assert.Contains(t, WelcomeMessage("Jane <Smith>"), "Hi Jane &lt;Smith&gt;!")
	assert.Contains(t, WelcomeMessage(""), "Hi there!")
}
