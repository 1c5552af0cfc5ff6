package app

import (
	"github.com/gin-gonic/gin"

	"github.com/talentrail/talentrail-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:       cfg.ServiceName,
		TemplateHandler:   handlerset.Template,
		SubmissionHandler: handlerset.Submission,
	})
}
