package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/mr1hm/safetywatch/internal/models"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

func severityEmoji(s models.AlertSeverity) string {
	switch s {
	case models.AlertSeverityCritical:
		return "🔴"
	case models.AlertSeverityHigh:
		return "🟠"
	case models.AlertSeverityMedium:
		return "🟡"
	case models.AlertSeverityLow:
		return "🔵"
	}
	return "⚪"
}

func categoryEmoji(c models.AlertCategory) string {
	switch c {
	case models.AlertCategoryFallDetected:
		return "🚨"
	case models.AlertCategoryImmobilityDetected:
		return "⏰"
	case models.AlertCategoryRouteDeviation:
		return "🗺️"
	case models.AlertCategoryDangerZoneEntry:
		return "⛔"
	case models.AlertCategoryManualEmergency:
		return "⚠️"
	}
	return "📢"
}

// categoryLabel turns FALL_DETECTED into "FALL DETECTED".
func categoryLabel(c models.AlertCategory) string {
	return strings.ReplaceAll(string(c), "_", " ")
}

func affectedUser(a models.Alert) string {
	if a.User == nil {
		return "Unknown User"
	}
	return a.User.DisplayName()
}

func mapsURL(lat, long float64) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(long, 'f', -1, 64)
}

// FormatAlertHTML renders an alert for Telegram's HTML parse mode. User
// supplied text is escaped.
func FormatAlertHTML(a models.Alert) string {
	sev := severityEmoji(a.Severity)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>SAFETY ALERT</b> %s\n\n", categoryEmoji(a.Category), sev)
	fmt.Fprintf(&b, "<b>Alert Type:</b> %s\n", categoryLabel(a.Category))
	fmt.Fprintf(&b, "<b>Severity:</b> %s %s\n", sev, a.Severity)
	fmt.Fprintf(&b, "<b>Time:</b> %s\n", a.CreatedAt.UTC().Format(timeLayout))
	fmt.Fprintf(&b, "<b>Affected User:</b> %s\n\n", html.EscapeString(affectedUser(a)))
	fmt.Fprintf(&b, "<b>Message:</b>\n%s", html.EscapeString(a.Message))

	if a.HasCoordinates() {
		fmt.Fprintf(&b, "\n\n📍 <b>Location:</b> <a href=\"%s\">View on Google Maps</a>", mapsURL(*a.Latitude, *a.Longitude))
	}

	fmt.Fprintf(&b, "\n\n⏰ <i>Alert ID: %s</i>", html.EscapeString(a.ID))
	return b.String()
}

// FormatAlertText is the plain variant used for operator broadcasts.
func FormatAlertText(a models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s for %s at %s\n", a.Severity, categoryLabel(a.Category), affectedUser(a), a.CreatedAt.UTC().Format(timeLayout))
	b.WriteString(a.Message)
	if a.HasCoordinates() {
		fmt.Fprintf(&b, "\nLocation: %s", mapsURL(*a.Latitude, *a.Longitude))
	}
	fmt.Fprintf(&b, "\nAlert ID: %s", a.ID)
	return b.String()
}

// AlertTitle is a one-line subject for services that support titles.
func AlertTitle(a models.Alert) string {
	return fmt.Sprintf("%s %s alert", a.Severity, categoryLabel(a.Category))
}

func WelcomeMessage(name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(`🎉 <b>Welcome to SafetyWatch!</b>

Hi %s! You've been connected to the emergency alert system.

<b>What you'll receive:</b>
🚨 Fall detection alerts
⏰ Immobility warnings
🗺️ Route deviation notifications
⛔ Danger zone entries
⚠️ Manual emergency triggers

<b>Alert Severity Levels:</b>
🔴 <b>CRITICAL</b> - Immediate emergency response required
🟠 <b>HIGH</b> - Urgent attention needed
🟡 <b>MEDIUM</b> - Important but not urgent
🔵 <b>LOW</b> - Informational alert

Stay safe! 🛡️`, html.EscapeString(name))
}
