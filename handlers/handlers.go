package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"saferoads/api"
	"saferoads/config"
	"saferoads/intake"
	"saferoads/models"
	"saferoads/osm"
	"saferoads/service"
	"saferoads/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// AirQuality proxies the upstream air pollution endpoint.
type AirQuality interface {
	AirPollution(ctx context.Context, lat, lon string) (json.RawMessage, error)
}

// Handlers represents the HTTP handlers
type Handlers struct {
	cfg       *config.Config
	scans     *service.ScanService
	emergency osm.EmergencyFinder
	air       AirQuality
	hub       *websocket.Hub
}

// NewHandlers creates new HTTP handlers. hub may be nil.
func NewHandlers(cfg *config.Config, scans *service.ScanService, emergency osm.EmergencyFinder, air AirQuality, hub *websocket.Hub) *Handlers {
	return &Handlers{
		cfg:       cfg,
		scans:     scans,
		emergency: emergency,
		air:       air,
		hub:       hub,
	}
}

func fail(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: message})
}

// Scan assesses an uploaded photo and records its damage score.
func (h *Handlers) Scan(c *gin.Context) {
	fileHeader, err := c.FormFile(api.ImageField)
	if err != nil {
		log.WithError(err).Warn("scan: missing image field")
		fail(c, api.ErrScanFailed)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.WithError(err).Error("scan: failed to open upload")
		fail(c, api.ErrScanFailed)
		return
	}
	defer file.Close()

	result, err := h.scans.Scan(c.Request.Context(), service.Upload{
		Name:     fileHeader.Filename,
		Type:     fileHeader.Header.Get("Content-Type"),
		Body:     file,
		Location: parseLocation(c.PostForm("lat"), c.PostForm("lng")),
	})
	if err != nil {
		if errors.Is(err, intake.ErrUnsupportedType) || errors.Is(err, intake.ErrTooLarge) {
			fail(c, err.Error())
			return
		}
		log.WithError(err).Error("scan failed")
		fail(c, api.ErrScanFailed)
		return
	}

	c.JSON(http.StatusOK, api.ScanResponse{
		Success:      true,
		DamageScore:  result.Assessment.DamageScore,
		AutoReported: result.AutoReported,
	})
}

func parseLocation(lat, lng string) *models.Location {
	if lat == "" || lng == "" {
		return nil
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lng, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &models.Location{Lat: la, Lng: lo}
}

// GetReports lists stored reports, newest first.
func (h *Handlers) GetReports(c *gin.Context) {
	reports, err := h.scans.Reports(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("failed to list reports")
		fail(c, api.ErrReportsFailed)
		return
	}

	out := make([]api.Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, api.Report{Id: r.Id, DamageScore: r.DamageScore, CreatedAt: r.CreatedAt})
	}
	c.JSON(http.StatusOK, out)
}

// GetEmergency lists emergency services around lat/lon.
func (h *Handlers) GetEmergency(c *gin.Context) {
	var q api.LocationQuery
	_ = c.ShouldBindQuery(&q)
	lat, err1 := strconv.ParseFloat(q.Lat, 64)
	lon, err2 := strconv.ParseFloat(q.Lon, 64)
	if err1 != nil || err2 != nil {
		log.WithFields(log.Fields{"lat": q.Lat, "lon": q.Lon}).Warn("emergency: invalid coordinates")
		fail(c, api.ErrEmergencyFailed)
		return
	}

	places, err := h.emergency.NearbyEmergencyServices(c.Request.Context(), lat, lon, h.cfg.EmergencyRadiusMeters)
	if err != nil {
		log.WithError(err).Error("emergency lookup failed")
		fail(c, api.ErrEmergencyFailed)
		return
	}

	out := make([]api.EmergencyService, 0, len(places))
	for _, p := range places {
		out = append(out, api.EmergencyService{Name: p.Name, Type: p.Type})
	}
	c.JSON(http.StatusOK, out)
}

// GetAir passes the upstream air quality payload through unchanged.
func (h *Handlers) GetAir(c *gin.Context) {
	var q api.LocationQuery
	_ = c.ShouldBindQuery(&q)

	raw, err := h.air.AirPollution(c.Request.Context(), q.Lat, q.Lon)
	if err != nil {
		log.WithError(err).Error("weather fetch failed")
		fail(c, api.ErrWeatherFailed)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// GetConfig exposes the thresholds clients must use.
func (h *Handlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, api.ConfigResponse{
		DamageThreshold:       h.scans.Threshold(),
		VisibilityThresholdKm: h.cfg.VisibilityThresholdKm,
		EmergencyRadiusMeters: h.cfg.EmergencyRadiusMeters,
	})
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "saferoads",
	}
	if h.hub != nil {
		listeners, _ := h.hub.GetStats()
		resp["listeners"] = listeners
	}
	c.JSON(http.StatusOK, resp)
}

// Escalations upgrades to a websocket that receives escalation events.
func (h *Handlers) Escalations(c *gin.Context) {
	if h.hub == nil {
		fail(c, "Live updates unavailable")
		return
	}
	websocket.ServeWs(h.hub, c.Writer, c.Request)
}
