package policy

import (
	"testing"
	"time"

	"saferoads/models"
)

func TestShouldEscalate(t *testing.T) {
	testCases := []struct {
		score int
		want  bool
	}{
		{0, false},
		{74, false},
		{75, false},
		{76, true},
		{100, true},
	}
	for _, tc := range testCases {
		if got := ShouldEscalate(tc.score, 75); got != tc.want {
			t.Errorf("ShouldEscalate(%d, 75) = %v, want %v", tc.score, got, tc.want)
		}
	}
	for s := 0; s <= 100; s++ {
		if ShouldEscalate(s, 75) != (s > 75) {
			t.Fatalf("ShouldEscalate(%d, 75) disagrees with s > 75", s)
		}
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(76, 75); got != models.StatusPriority {
		t.Errorf("expected Priority, got %s", got)
	}
	if got := StatusFor(75, 75); got != models.StatusPending {
		t.Errorf("expected Pending, got %s", got)
	}
	if got := StatusFor(50, 40); got != models.StatusPriority {
		t.Errorf("threshold must come from the caller, got %s", got)
	}
}

func TestIsPriority(t *testing.T) {
	if !IsPriority(models.StatusPriority, 10, 75) {
		t.Error("explicit Priority status must be listed")
	}
	if !IsPriority(models.StatusPending, 80, 75) {
		t.Error("score above threshold must be listed")
	}
	if IsPriority(models.StatusPending, 75, 75) {
		t.Error("score at threshold with Pending status must not be listed")
	}
}

func TestDisplayReportID(t *testing.T) {
	now := time.UnixMilli(1767700123456)
	if got := DisplayReportID(now); got != "123456" {
		t.Errorf("expected 123456, got %s", got)
	}
	if got := DisplayReportID(time.UnixMilli(42)); got != "42" {
		t.Errorf("expected short clocks to pass through, got %s", got)
	}
}

func TestFormatLocation(t *testing.T) {
	if got := FormatLocation(nil); got != "Location unavailable" {
		t.Errorf("expected marker, got %q", got)
	}
	got := FormatLocation(&models.Location{Lat: 22.57264, Lng: 88.36389})
	if got != "22.5726, 88.3639" {
		t.Errorf("unexpected %q", got)
	}
}

func TestNewEscalation(t *testing.T) {
	now := time.UnixMilli(1767700654321)
	a := models.Assessment{DamageScore: 88, DamageType: "Severe Pothole/Crack", Severity: models.SeverityCritical}

	e := NewEscalation(a, 75, "Gemini", now, nil)

	if e.ReportID != "654321" || e.Status != models.StatusPriority || e.Location != LocationUnavailable {
		t.Errorf("unexpected escalation %+v", e)
	}
	if e.Coordinates != nil {
		t.Error("expected no coordinates")
	}
}
