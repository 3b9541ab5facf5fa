package models

import "time"

// Severity is the coarse damage class shown next to a score.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
)

// SeverityFor maps a damage score onto its severity class.
func SeverityFor(score int) Severity {
	switch {
	case score > 75:
		return SeverityCritical
	case score > 50:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityModerate, SeverityMinor:
		return true
	}
	return false
}

// Status is the triage state of a report in the portal.
type Status string

const (
	StatusPriority Status = "Priority"
	StatusPending  Status = "Pending"
)

// Assessment is the structured result of looking at one road photo.
type Assessment struct {
	DamageScore       int      `json:"damage_score"`
	DamageType        string   `json:"damage_type"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	RecommendedAction string   `json:"recommended_action"`
}

// StoredReport is one row of the reports table.
type StoredReport struct {
	Id          int64
	DamageScore int
	CreatedAt   time.Time
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Escalation is emitted once an assessment crosses the damage threshold.
type Escalation struct {
	ReportID    string    `json:"report_id"`
	DamageScore int       `json:"damage_score"`
	DamageType  string    `json:"damage_type"`
	Severity    Severity  `json:"severity"`
	Status      Status    `json:"status"`
	Location    string    `json:"location"`
	Coordinates *Location `json:"coordinates,omitempty"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// BroadcastMessage wraps every payload pushed to websocket listeners.
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
