package api

import (
	"github.com/mr1hm/safetywatch/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func point(lat, long float64) Geometry {
	return Geometry{Type: "Point", Coordinates: []float64{long, lat}}
}

// snapshotGeoJSON places unresolved alerts that carry coordinates and each
// user's latest location on a map layer.
func snapshotGeoJSON(snap *models.Snapshot) FeatureCollection {
	features := make([]Feature, 0, len(snap.Alerts)+len(snap.Users))

	for _, a := range snap.Alerts {
		if !a.HasCoordinates() {
			continue
		}
		props := map[string]any{
			"kind":      "alert",
			"id":        a.ID,
			"userId":    a.UserID,
			"category":  a.Category,
			"severity":  a.Severity,
			"message":   a.Message,
			"createdAt": a.CreatedAt,
		}
		if a.User != nil {
			props["userName"] = a.User.DisplayName()
		}
		features = append(features, Feature{
			Type:       "Feature",
			Geometry:   point(*a.Latitude, *a.Longitude),
			Properties: props,
		})
	}

	for _, u := range snap.Users {
		loc := u.LatestLocation()
		if loc == nil {
			continue
		}
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(loc.Latitude, loc.Longitude),
			Properties: map[string]any{
				"kind":       "user",
				"id":         u.ID,
				"name":       u.DisplayName(),
				"recordedAt": loc.RecordedAt,
				"accuracy":   loc.Accuracy,
			},
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
