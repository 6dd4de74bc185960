// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/ddmrp-planner/internal/api/handlers"
	"github.com/andresuchdata/ddmrp-planner/internal/api/middleware"
	"github.com/andresuchdata/ddmrp-planner/internal/service"
)

type Services struct {
	PlanningService *service.PlanningService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Session-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	if services == nil || services.PlanningService == nil {
		return router
	}

	h := handlers.NewPlanningHandler(services.PlanningService)
	router.GET("/health", h.Health)

	apiGroup := router.Group("/api/v1")
	{
		itemsGroup := apiGroup.Group("/items")
		{
			itemsGroup.GET("", h.GetItems)
			itemsGroup.GET("/:id", h.GetItem)
			itemsGroup.GET("/:id/buffer", h.GetBuffer)
			itemsGroup.GET("/:id/projection", h.GetProjection)
		}
		apiGroup.GET("/alerts", h.GetAlerts)
		apiGroup.GET("/summary", h.GetSummary)
		apiGroup.GET("/deviation/:kind", h.GetDeviation)
		apiGroup.GET("/export/:table", h.Export)
		apiGroup.GET("/refresh", h.GetRefreshStatus)
		apiGroup.GET("/refresh/runs", h.GetRefreshRuns)
		apiGroup.POST("/refresh", h.TriggerRefresh)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
