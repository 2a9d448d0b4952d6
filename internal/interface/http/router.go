package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/health-journal/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		errorHandlingMiddleware(handler.logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/healthz", handler.Healthz)

	api := router.Group("/api")
	{
		api.POST("/update-health-data", handler.UpdateHealthData)
		api.POST("/judge-health-data", handler.JudgeHealthData)
		api.POST("/extract-health-data", handler.ExtractHealthData)
		api.POST("/transcribe", handler.Transcribe)

		api.POST("/logs", handler.CreateLog)
		api.GET("/logs", handler.ListLogs)
		api.GET("/logs/:id", handler.GetLog)
		api.DELETE("/logs/:id", handler.DeleteLog)
		api.POST("/logs/:id/updates", handler.ApplyLogUpdate)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, handler.logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
