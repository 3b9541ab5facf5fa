package portal

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"saferoads/api"
	"saferoads/intake"
	"saferoads/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Handlers exposes the portal over HTTP.
type Handlers struct {
	app *App
}

func NewHandlers(app *App) *Handlers {
	return &Handlers{app: app}
}

// Register mounts the portal under /portal.
func (h *Handlers) Register(router gin.IRouter) {
	g := router.Group(api.PortalPrefix)
	g.GET("", h.Page)
	g.GET("/state", h.State)
	g.GET("/reports.geojson", h.ReportsGeoJSON)
	g.GET("/emergency", h.Emergency)
	g.POST("/mode", h.SwitchMode)
	g.POST("/section", h.ShowSection)
	g.POST("/location", h.SetLocation)
	g.POST("/scan", h.Scan)
	g.POST("/segment", h.ReportSegment)
	g.POST("/weather", h.CheckWeather)
}

func (h *Handlers) back(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, api.PortalPrefix)
}

func (h *Handlers) Page(c *gin.Context) {
	if q, ok := c.GetQuery("q"); ok {
		h.app.Store().SetProjectQuery(q)
	}

	var buf bytes.Buffer
	if err := h.app.RenderPage(&buf); err != nil {
		log.WithError(err).Error("failed to render portal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Store().Snapshot())
}

func (h *Handlers) ReportsGeoJSON(c *gin.Context) {
	raw, err := h.app.ReportsGeoJSON()
	if err != nil {
		log.WithError(err).Error("failed to encode report markers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": api.ErrReportsFailed})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", raw)
}

// Emergency waits for the nearby services lookup and returns it with the helplines.
func (h *Handlers) Emergency(c *gin.Context) {
	places, err := h.app.EmergencyServices(c.Request.Context())
	if err != nil {
		log.WithError(err).Warn("emergency lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": api.ErrEmergencyFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nearby": places, "helplines": EmergencyContacts})
}

func (h *Handlers) SwitchMode(c *gin.Context) {
	if err := h.app.Store().SwitchMode(Mode(c.PostForm("mode"))); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.back(c)
}

func (h *Handlers) ShowSection(c *gin.Context) {
	if err := h.app.ShowSection(Section(c.PostForm("section"))); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.back(c)
}

// SetLocation takes lat/lng form values; missing or invalid ones mean no fix.
func (h *Handlers) SetLocation(c *gin.Context) {
	h.app.SetLocation(c.Request.Context(), formLocation(c, "lat", "lng"))
	h.back(c)
}

func formLocation(c *gin.Context, latKey, lngKey string) *models.Location {
	lat, err1 := strconv.ParseFloat(c.PostForm(latKey), 64)
	lng, err2 := strconv.ParseFloat(c.PostForm(lngKey), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &models.Location{Lat: lat, Lng: lng}
}

func (h *Handlers) Scan(c *gin.Context) {
	fileHeader, err := c.FormFile(api.ImageField)
	if err != nil {
		h.app.Store().Notify("Please choose a photo to analyze", NotifyError)
		h.back(c)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.WithError(err).Error("portal scan: failed to open upload")
		h.app.Store().Notify("Analysis failed. Please try again.", NotifyError)
		h.back(c)
		return
	}
	defer file.Close()

	_ = h.app.ShowSection(SectionReport)
	_, err = h.app.Scan(c.Request.Context(), Upload{
		Name: fileHeader.Filename,
		Type: fileHeader.Header.Get("Content-Type"),
		Size: fileHeader.Size,
		Body: file,
	})
	if err != nil && !errors.Is(err, intake.ErrUnsupportedType) && !errors.Is(err, intake.ErrTooLarge) {
		log.WithError(err).Error("portal scan failed")
	}
	h.back(c)
}

func (h *Handlers) ReportSegment(c *gin.Context) {
	from := formLocation(c, "from_lat", "from_lng")
	to := formLocation(c, "to_lat", "to_lng")
	if from == nil || to == nil {
		h.app.Store().Notify("Select two points on the road", NotifyError)
		h.back(c)
		return
	}
	h.app.ReportRoadSegment(*from, *to)
	h.back(c)
}

func (h *Handlers) CheckWeather(c *gin.Context) {
	h.app.CheckWeather(c.Request.Context())
	h.back(c)
}
