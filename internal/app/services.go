package app

import (
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/clients/redis"
	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/services"
)

type Services struct {
	Template   services.TemplateService
	Submission services.SubmissionService
	Cache      redis.PublishedVersionCache
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	policy := templatesync.DefaultSyncPolicy()
	if cfg.SyncPolicyPath != "" {
		loaded, err := templatesync.LoadSyncPolicy(cfg.SyncPolicyPath)
		if err != nil {
			return Services{}, err
		}
		policy = loaded
	}

	// The version cache is optional. Without REDIS_ADDR every published
	// version lookup goes straight to postgres.
	cache, err := redis.NewPublishedVersionCache(log)
	if err != nil {
		log.Warn("Published version cache unavailable", "error", err)
		cache = nil
	}

	templateSvc := services.NewTemplateService(db, log, reposet.Template, policy, cache)
	submissionSvc := services.NewSubmissionService(db, log, reposet.Submission, reposet.Template, reposet.JobPost, templateSvc)

	return Services{
		Template:   templateSvc,
		Submission: submissionSvc,
		Cache:      cache,
	}, nil
}
