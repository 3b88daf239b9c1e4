package models

import "time"

// AlertSeverity classifies an alert for display and delivery.
type AlertSeverity string

const (
	AlertInfo    AlertSeverity = "INFO"
	AlertSuccess AlertSeverity = "SUCCESS"
	AlertWarning AlertSeverity = "WARNING"
	AlertError   AlertSeverity = "ERROR"
)

// Alert is a human-readable notice produced by the engine.
type Alert struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Message   string        `json:"message" db:"message"`
	Severity  AlertSeverity `json:"severity" db:"severity"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}
