package models

import "time"

// Snapshot is the payload pushed to live dashboards.
type Snapshot struct {
	Alerts    []Alert   `json:"alerts"`
	Users     []User    `json:"users"`
	Timestamp time.Time `json:"timestamp"`
}
