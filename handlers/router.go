package handlers

import (
	"time"

	"saferoads/api"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every API route onto a fresh gin engine.
func NewRouter(h *Handlers, allowOrigins []string) *gin.Engine {
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	router := gin.Default()
	router.MaxMultipartMemory = 16 << 20
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowOrigins:     allowOrigins,
		AllowCredentials: !allowsAnyOrigin(allowOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.POST(api.ScanEndpoint, h.Scan)
	router.GET(api.ReportsEndpoint, h.GetReports)
	router.GET(api.EmergencyEndpoint, h.GetEmergency)
	router.GET(api.AirEndpoint, h.GetAir)
	router.GET(api.ConfigEndpoint, h.GetConfig)
	router.GET(api.HealthEndpoint, h.HealthCheck)
	router.GET(api.MetricsEndpoint, gin.WrapH(promhttp.Handler()))
	router.GET(api.EscalationsEndpoint, h.Escalations)

	return router
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
