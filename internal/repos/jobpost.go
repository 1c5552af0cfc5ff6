package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/types"
)

type JobPostRepo interface {
	CreateStep(ctx context.Context, tx *gorm.DB, step *types.JobPostStep) (*types.JobPostStep, error)
	GetStep(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) (*types.JobPostStep, error)
	GetStepsByJobPost(ctx context.Context, tx *gorm.DB, name string, version int) ([]*types.JobPostStep, error)
	AttachTemplate(ctx context.Context, tx *gorm.DB, stepID uuid.UUID, templateName string, templateVersion *int) error
}

type jobPostRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobPostRepo(db *gorm.DB, baseLog *logger.Logger) JobPostRepo {
	repoLog := baseLog.With("repo", "JobPostRepo")
	return &jobPostRepo{db: db, log: repoLog}
}

func (r *jobPostRepo) CreateStep(ctx context.Context, tx *gorm.DB, step *types.JobPostStep) (*types.JobPostStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if step == nil {
		return nil, nil
	}
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

func (r *jobPostRepo) GetStep(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) (*types.JobPostStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var step types.JobPostStep
	if err := transaction.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", stepID, false).
		First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, templatesync.ErrNotFound
		}
		return nil, err
	}
	return &step, nil
}

func (r *jobPostRepo) GetStepsByJobPost(ctx context.Context, tx *gorm.DB, name string, version int) ([]*types.JobPostStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var steps []*types.JobPostStep
	if err := transaction.WithContext(ctx).
		Where("job_post_name = ? AND job_post_version = ? AND is_deleted = ?", name, version, false).
		Order("display_order ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

// AttachTemplate binds a step to a template. A nil version means the step
// tracks "latest published" until a candidate starts it.
func (r *jobPostRepo) AttachTemplate(ctx context.Context, tx *gorm.DB, stepID uuid.UUID, templateName string, templateVersion *int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.JobPostStep{}).
		Where("id = ? AND is_deleted = ?", stepID, false).
		Updates(map[string]interface{}{
			"template_name":    templateName,
			"template_version": templateVersion,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return templatesync.ErrNotFound
	}
	return nil
}
