// Package policy decides when a damage assessment is escalated and how the
// resulting notice is labelled.
package policy

import (
	"fmt"
	"strconv"
	"time"

	"saferoads/models"
)

const LocationUnavailable = "Location unavailable"

// ShouldEscalate is true when the score is strictly above the threshold.
func ShouldEscalate(score, threshold int) bool {
	return score > threshold
}

// StatusFor is the only rule deriving a report status from its score.
func StatusFor(score, threshold int) models.Status {
	if ShouldEscalate(score, threshold) {
		return models.StatusPriority
	}
	return models.StatusPending
}

// IsPriority selects reports for the authority view. Reports stored with an explicit
// Priority status stay listed even if their score is at or below the threshold.
func IsPriority(status models.Status, score, threshold int) bool {
	return status == models.StatusPriority || ShouldEscalate(score, threshold)
}

// DisplayReportID is the last six digits of the millisecond clock. It is shown to the
// citizen as a reference only; it is not unique and is not stored anywhere.
func DisplayReportID(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return ms
}

// FormatLocation renders coordinates to four decimals.
func FormatLocation(loc *models.Location) string {
	if loc == nil {
		return LocationUnavailable
	}
	return fmt.Sprintf("%.4f, %.4f", loc.Lat, loc.Lng)
}

// NewEscalation builds the notice for an assessment that crossed the threshold.
func NewEscalation(a models.Assessment, threshold int, source string, now time.Time, loc *models.Location) models.Escalation {
	return models.Escalation{
		ReportID:    DisplayReportID(now),
		DamageScore: a.DamageScore,
		DamageType:  a.DamageType,
		Severity:    a.Severity,
		Status:      StatusFor(a.DamageScore, threshold),
		Location:    FormatLocation(loc),
		Coordinates: loc,
		Source:      source,
		CreatedAt:   now,
	}
}
