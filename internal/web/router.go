package web

import (
	"github.com/gin-gonic/gin"

	"github.com/tilemirror/tilemirror/internal/metrics"
)

func NewRouter(h *Handlers, withMetrics bool, metricsListenAddress string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), AccessLogger())
	if withMetrics {
		router.Use(metrics.PromReqMiddleware())
		go metrics.Server(metricsListenAddress)
	}

	router.GET("/healthz", h.Health)
	router.GET("/sources", h.Sources)
	router.GET("/tile", h.Tile)

	return router
}
