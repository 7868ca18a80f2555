package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")

	api.GET("", h.Root)
	api.GET("/health", h.Health)

	// Speech
	api.POST("/asr", h.ASR)

	// Couplets
	api.POST("/couplet", h.Couplet)
	api.POST("/evaluate", h.Evaluate)
	api.POST("/explain", h.Explain)
}
