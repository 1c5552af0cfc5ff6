package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/talentrail/talentrail-backend/internal/handlers"
	"github.com/talentrail/talentrail-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName       string
	TemplateHandler   *handlers.TemplateHandler
	SubmissionHandler *handlers.SubmissionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.AttachTraceContext())

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Templates
		api.PUT("/templates", cfg.TemplateHandler.Sync)
		api.GET("/templates", cfg.TemplateHandler.List)
		api.GET("/templates/:name", cfg.TemplateHandler.Get)
		api.GET("/templates/:name/published-version", cfg.TemplateHandler.GetPublishedVersion)
		api.POST("/templates/:name/versions/:version/publish", cfg.TemplateHandler.Publish)
		api.POST("/templates/:name/versions/:version/archive", cfg.TemplateHandler.Archive)
		api.DELETE("/templates/:name/versions/:version", cfg.TemplateHandler.DeleteDraft)

		// Candidate questionnaire flow
		api.POST("/steps/:id/questionnaire", cfg.SubmissionHandler.StartStep)
		api.POST("/steps/:id/questionnaire/submit", cfg.SubmissionHandler.SubmitStep)
		api.GET("/submissions/:id", cfg.SubmissionHandler.GetSubmission)
	}

	return router
}
