package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/types"
)

type SubmissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sub *types.CandidateSubmission) (*types.CandidateSubmission, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CandidateSubmission, error)
	GetByStepID(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) (*types.CandidateSubmission, error)
	GetAnswers(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]*types.SubmissionAnswer, error)
	SaveAnswers(ctx context.Context, tx *gorm.DB, answers []*types.SubmissionAnswer) error
	MarkSubmitted(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
	CountByTemplateVersion(ctx context.Context, tx *gorm.DB, name string, version int) (int64, error)
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	repoLog := baseLog.With("repo", "SubmissionRepo")
	return &submissionRepo{db: db, log: repoLog}
}

func (r *submissionRepo) Create(ctx context.Context, tx *gorm.DB, sub *types.CandidateSubmission) (*types.CandidateSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if sub == nil {
		return nil, nil
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	if err := transaction.WithContext(ctx).Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			// Two requests raced to start the same step; the winner's row is
			// authoritative.
			return nil, fmt.Errorf("submission for step %s already exists: %w",
				sub.JobAppStepID, templatesync.ErrConcurrencyConflict)
		}
		return nil, err
	}
	return sub, nil
}

func (r *submissionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CandidateSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var sub types.CandidateSubmission
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, templatesync.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) GetByStepID(ctx context.Context, tx *gorm.DB, stepID uuid.UUID) (*types.CandidateSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var sub types.CandidateSubmission
	if err := transaction.WithContext(ctx).
		Where("job_app_step_id = ?", stepID).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, templatesync.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepo) GetAnswers(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) ([]*types.SubmissionAnswer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var answers []*types.SubmissionAnswer
	if err := transaction.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Find(&answers).Error; err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return answers, nil
	}

	answerIDs := make([]string, 0, len(answers))
	for _, a := range answers {
		answerIDs = append(answerIDs, a.ID.String())
	}
	var selected []*types.SubmissionAnswerOption
	if err := transaction.WithContext(ctx).
		Where("answer_id IN ?", answerIDs).
		Find(&selected).Error; err != nil {
		return nil, err
	}
	byAnswer := make(map[uuid.UUID][]*types.SubmissionAnswerOption, len(answers))
	for _, opt := range selected {
		byAnswer[opt.AnswerID] = append(byAnswer[opt.AnswerID], opt)
	}
	for _, a := range answers {
		a.Options = byAnswer[a.ID]
	}
	return answers, nil
}

func (r *submissionRepo) SaveAnswers(ctx context.Context, tx *gorm.DB, answers []*types.SubmissionAnswer) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(answers) == 0 {
		return nil
	}

	for _, a := range answers {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if err := transaction.WithContext(ctx).Create(a).Error; err != nil {
			return err
		}
		for _, opt := range a.Options {
			if opt.ID == uuid.Nil {
				opt.ID = uuid.New()
			}
			opt.AnswerID = a.ID
			if err := transaction.WithContext(ctx).Create(opt).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// MarkSubmitted flips a draft submission to Submitted exactly once. A second
// submit attempt finds no draft row to update.
func (r *submissionRepo) MarkSubmitted(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.CandidateSubmission{}).
		Where("id = ? AND status = ?", id, types.SubmissionStatusDraft).
		Updates(map[string]interface{}{
			"status":       types.SubmissionStatusSubmitted,
			"submitted_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("submission %s is not a draft: %w", id, templatesync.ErrInvalidVersionTransition)
	}
	return nil
}

func (r *submissionRepo) CountByTemplateVersion(ctx context.Context, tx *gorm.DB, name string, version int) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CandidateSubmission{}).
		Where("template_name = ? AND template_version = ?", name, version).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
