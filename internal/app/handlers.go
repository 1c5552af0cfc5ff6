package app

import (
	"github.com/talentrail/talentrail-backend/internal/handlers"
	"github.com/talentrail/talentrail-backend/internal/logger"
)

type Handlers struct {
	Template   *handlers.TemplateHandler
	Submission *handlers.SubmissionHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Template:   handlers.NewTemplateHandler(log, serviceset.Template),
		Submission: handlers.NewSubmissionHandler(log, serviceset.Submission),
	}
}
