package api

import "time"

const (
	ScanEndpoint        = "/scan"
	ReportsEndpoint     = "/reports"
	EmergencyEndpoint   = "/emergency"
	AirEndpoint         = "/air"
	ConfigEndpoint      = "/config"
	HealthEndpoint      = "/health"
	MetricsEndpoint     = "/metrics"
	EscalationsEndpoint = "/ws/escalations"
	PortalPrefix        = "/portal"

	// ImageField is the multipart form field carrying the photo.
	ImageField = "image"
)

type ScanResponse struct {
	Success      bool `json:"success"`
	DamageScore  int  `json:"damage_score"`
	AutoReported bool `json:"auto_reported"`
}

type Report struct {
	Id          int64     `json:"id"`
	DamageScore int       `json:"damage_score"`
	CreatedAt   time.Time `json:"created_at"`
}

type EmergencyService struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type LocationQuery struct {
	Lat string `form:"lat"`
	Lon string `form:"lon"`
}

// ConfigResponse exposes the thresholds owned by the server to remote clients.
type ConfigResponse struct {
	DamageThreshold       int     `json:"damage_threshold"`
	VisibilityThresholdKm float64 `json:"visibility_threshold_km"`
	EmergencyRadiusMeters int     `json:"emergency_radius_m"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	ErrScanFailed      = "AI Scan Failed"
	ErrReportsFailed   = "Failed to load reports"
	ErrEmergencyFailed = "Emergency lookup failed"
	ErrWeatherFailed   = "Weather fetch failed"
)
