package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/thryve/studio-scheduler-api/internal/middleware"
	"github.com/thryve/studio-scheduler-api/internal/service"
)

// Handlers bundles the API's HTTP handlers for route registration.
type Handlers struct {
	Bookings *BookingHandler
	Swaps    *SwapHandler
	Coverage *CoverageHandler
	Exports  *ExportHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts all API routes on the router. Exports may be nil when
// the deployment disables roster downloads.
func RegisterRoutes(r *gin.Engine, h Handlers, tokens *service.TokenService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group("/api/v1")
	api.Use(middleware.JWT(tokens))

	api.POST("/bookings", h.Bookings.Create)
	api.DELETE("/bookings/:id", h.Bookings.Cancel)
	api.POST("/bookings/:id/no-show", h.Bookings.MarkNoShow)

	api.GET("/classes/:id/availability", h.Bookings.Availability)
	api.POST("/classes/:id/waitlist/promote", h.Bookings.Promote)
	api.DELETE("/classes/:id/waitlist", h.Bookings.LeaveWaitlist)

	api.POST("/swaps", h.Swaps.Create)
	api.POST("/swaps/:id/accept", h.Swaps.Accept)
	api.POST("/swaps/:id/decision", h.Swaps.Decide)

	api.POST("/coverage", h.Coverage.Create)
	api.GET("/coverage/:id", h.Coverage.Get)
	api.POST("/coverage/:id/apply", h.Coverage.Apply)
	api.POST("/coverage/:id/select", h.Coverage.Select)
	api.GET("/studios/:id/coverage-pool", h.Coverage.Pool)

	if h.Exports != nil {
		api.GET("/classes/:id/roster", h.Exports.Roster)
	}
}
