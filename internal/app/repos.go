package app

import (
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/repos"
)

type Repos struct {
	Template   repos.TemplateRepo
	Submission repos.SubmissionRepo
	JobPost    repos.JobPostRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Template:   repos.NewTemplateRepo(db, log),
		Submission: repos.NewSubmissionRepo(db, log),
		JobPost:    repos.NewJobPostRepo(db, log),
	}
}
