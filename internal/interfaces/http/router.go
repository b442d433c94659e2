// Package http wires the gin engine: middleware chain, API routes and probes.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ChemScribe/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemScribe/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the route tree needs.
type RouterConfig struct {
	Research *handlers.ResearchHandler
	Corpus   *handlers.CorpusHandler
	Health   *handlers.HealthHandler
	Metrics  *prometheus.Metrics
	Logger   logging.Logger
}

// NewRouter builds the engine with the full middleware chain and route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.CORS())
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r.GET("/healthz", cfg.Health.Liveness)
	r.GET("/readyz", cfg.Health.Readiness)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/research/generate", cfg.Research.Generate)

		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:id", cfg.Research.GetSession)
			sessions.GET("/:id/documents", cfg.Research.Documents)
			sessions.POST("/:id/proposal/reject", cfg.Research.RejectProposal)
			sessions.POST("/:id/proposal/approve", cfg.Research.ApproveProposal)
			sessions.POST("/:id/structure/reject", cfg.Research.RejectStructure)
			sessions.POST("/:id/structure/approve", cfg.Research.ApproveStructure)
		}

		v1.GET("/history", cfg.Research.History)
		v1.DELETE("/history/:id", cfg.Research.DeleteHistory)

		corpus := v1.Group("/corpus")
		{
			corpus.POST("/upload", cfg.Corpus.Upload)
			corpus.GET("/files", cfg.Corpus.List)
			corpus.DELETE("/files/:name", cfg.Corpus.Remove)
		}
	}

	return r
}
