package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/types"
)

type TemplateRepo interface {
	GetTree(ctx context.Context, tx *gorm.DB, name string, version int) (*types.QuestionnaireTemplate, error)
	GetTemplate(ctx context.Context, tx *gorm.DB, name string, version int) (*types.QuestionnaireTemplate, error)
	GetLatestVersion(ctx context.Context, tx *gorm.DB, name string) (int, error)
	GetPublishedVersion(ctx context.Context, tx *gorm.DB, name string) (int, error)
	ListNames(ctx context.Context, tx *gorm.DB) ([]string, error)
	SaveTree(ctx context.Context, plan *templatesync.PersistPlan) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, key types.NaturalKey, from, to types.TemplateStatus, publishedAt *time.Time) error
	SoftDeleteTemplate(ctx context.Context, tx *gorm.DB, key types.NaturalKey) error
	SoftDelete(ctx context.Context, tx *gorm.DB, refs []types.EntityRef) error
	TemplateInUse(ctx context.Context, tx *gorm.DB, name string, version int) (bool, error)
	QuestionNameExists(ctx context.Context, tx *gorm.DB, name string) (bool, error)
	OptionNameExists(ctx context.Context, tx *gorm.DB, name string) (bool, error)
	GetQuestionsByKeys(ctx context.Context, tx *gorm.DB, keys []types.NaturalKey) ([]*types.QuestionnaireQuestion, error)
	GetOptionsByKeys(ctx context.Context, tx *gorm.DB, keys []types.NaturalKey) ([]*types.QuestionnaireOption, error)
}

type templateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTemplateRepo(db *gorm.DB, baseLog *logger.Logger) TemplateRepo {
	repoLog := baseLog.With("repo", "TemplateRepo")
	return &templateRepo{db: db, log: repoLog}
}

func (r *templateRepo) GetTree(ctx context.Context, tx *gorm.DB, name string, version int) (*types.QuestionnaireTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var tmpl types.QuestionnaireTemplate
	if err := transaction.WithContext(ctx).
		Where("name = ? AND version = ? AND is_deleted = ?", name, version, false).
		First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, templatesync.ErrNotFound
		}
		return nil, err
	}

	var sections []*types.QuestionnaireSection
	if err := transaction.WithContext(ctx).
		Where("template_name = ? AND template_version = ? AND is_deleted = ?", name, version, false).
		Order("display_order ASC").
		Find(&sections).Error; err != nil {
		return nil, err
	}
	tmpl.Sections = sections
	if len(sections) == 0 {
		return &tmpl, nil
	}

	sectionIDs := make([]string, 0, len(sections))
	for _, sec := range sections {
		sectionIDs = append(sectionIDs, sec.ID.String())
	}

	var questions []*types.QuestionnaireQuestion
	if err := transaction.WithContext(ctx).
		Where("section_id IN ? AND is_active = ? AND is_deleted = ?", sectionIDs, true, false).
		Order("display_order ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	questionNames := make([]string, 0, len(questions))
	for _, q := range questions {
		questionNames = append(questionNames, q.Name)
	}

	var options []*types.QuestionnaireOption
	if len(questionNames) > 0 {
		if err := transaction.WithContext(ctx).
			Where("question_name IN ? AND is_active = ? AND is_deleted = ?", questionNames, true, false).
			Order("display_order ASC").
			Find(&options).Error; err != nil {
			return nil, err
		}
	}

	// Options attach only to the exact parent question version.
	byQuestion := make(map[types.NaturalKey][]*types.QuestionnaireOption, len(questions))
	for _, opt := range options {
		if opt.QuestionVersion == nil {
			continue
		}
		k := types.NaturalKey{Name: opt.QuestionName, Version: *opt.QuestionVersion}
		byQuestion[k] = append(byQuestion[k], opt)
	}
	bySection := make(map[string][]*types.QuestionnaireQuestion, len(sections))
	for _, q := range questions {
		q.Options = byQuestion[q.Key()]
		bySection[q.SectionID.String()] = append(bySection[q.SectionID.String()], q)
	}
	for _, sec := range sections {
		sec.Questions = bySection[sec.ID.String()]
	}
	return &tmpl, nil
}

// GetTemplate loads the template row without its tree.
func (r *templateRepo) GetTemplate(ctx context.Context, tx *gorm.DB, name string, version int) (*types.QuestionnaireTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var tmpl types.QuestionnaireTemplate
	if err := transaction.WithContext(ctx).
		Where("name = ? AND version = ? AND is_deleted = ?", name, version, false).
		First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, templatesync.ErrNotFound
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepo) GetLatestVersion(ctx context.Context, tx *gorm.DB, name string) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var version int
	if err := transaction.WithContext(ctx).
		Model(&types.QuestionnaireTemplate{}).
		Select("COALESCE(MAX(version), 0)").
		Where("name = ? AND is_deleted = ?", name, false).
		Scan(&version).Error; err != nil {
		return 0, err
	}
	return version, nil
}

func (r *templateRepo) GetPublishedVersion(ctx context.Context, tx *gorm.DB, name string) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var version int
	if err := transaction.WithContext(ctx).
		Model(&types.QuestionnaireTemplate{}).
		Select("COALESCE(MAX(version), 0)").
		Where("name = ? AND status = ? AND is_deleted = ?", name, types.TemplateStatusPublished, false).
		Scan(&version).Error; err != nil {
		return 0, err
	}
	return version, nil
}

func (r *templateRepo) ListNames(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var names []string
	if err := transaction.WithContext(ctx).
		Model(&types.QuestionnaireTemplate{}).
		Distinct("name").
		Where("is_deleted = ?", false).
		Order("name ASC").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

// SaveTree persists one plan in a single transaction. The base template row's
// row_version acts as the concurrency token for both the in-place and the
// new-version path; losing the compare-and-bump maps to ErrConcurrencyConflict
// so the orchestrator can retry on fresh state.
func (r *templateRepo) SaveTree(ctx context.Context, plan *templatesync.PersistPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if plan.InPlace {
			tmpl := plan.Template
			res := tx.Model(&types.QuestionnaireTemplate{}).
				Where("name = ? AND version = ? AND row_version = ?",
					plan.BaseKey.Name, plan.BaseKey.Version, plan.ExpectedRowVersion).
				Updates(map[string]interface{}{
					"title":              tmpl.Title,
					"description":        tmpl.Description,
					"template_type":      tmpl.TemplateType,
					"time_limit_seconds": tmpl.TimeLimitSeconds,
					"metadata":           tmpl.Metadata,
					"row_version":        plan.ExpectedRowVersion + 1,
					"updated_at":         tmpl.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("template %s lost concurrency token check: %w",
					plan.BaseKey, templatesync.ErrConcurrencyConflict)
			}
			plan.Template.RowVersion = plan.ExpectedRowVersion + 1
		} else {
			if plan.BaseKey.Name != "" {
				// Bump the base row token so a concurrent writer that loaded
				// the same state fails its own save.
				res := tx.Model(&types.QuestionnaireTemplate{}).
					Where("name = ? AND version = ? AND row_version = ?",
						plan.BaseKey.Name, plan.BaseKey.Version, plan.ExpectedRowVersion).
					Update("row_version", plan.ExpectedRowVersion+1)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return fmt.Errorf("template %s lost concurrency token check: %w",
						plan.BaseKey, templatesync.ErrConcurrencyConflict)
				}
			}
			if err := tx.Create(plan.Template).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("template %s already persisted by concurrent writer: %w",
						plan.Template.Key(), templatesync.ErrConcurrencyConflict)
				}
				return err
			}
		}

		for _, sec := range plan.SectionInserts {
			if err := tx.Create(sec).Error; err != nil {
				return err
			}
		}
		for _, sec := range plan.SectionUpdates {
			if err := tx.Save(sec).Error; err != nil {
				return err
			}
		}
		for _, q := range plan.QuestionInserts {
			if err := tx.Create(q).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("question %s already persisted by concurrent writer: %w",
						q.Key(), templatesync.ErrConcurrencyConflict)
				}
				return err
			}
		}
		for _, q := range plan.QuestionUpdates {
			if err := tx.Save(q).Error; err != nil {
				return err
			}
		}
		for _, opt := range plan.OptionInserts {
			if err := tx.Create(opt).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("option %s already persisted by concurrent writer: %w",
						opt.Key(), templatesync.ErrConcurrencyConflict)
				}
				return err
			}
		}
		for _, opt := range plan.OptionUpdates {
			if err := tx.Save(opt).Error; err != nil {
				return err
			}
		}

		if len(plan.Tombstones) > 0 {
			if err := r.SoftDelete(ctx, tx, plan.Tombstones); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *templateRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, key types.NaturalKey, from, to types.TemplateStatus, publishedAt *time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if publishedAt != nil {
		updates["published_at"] = publishedAt
	}
	res := transaction.WithContext(ctx).
		Model(&types.QuestionnaireTemplate{}).
		Where("name = ? AND version = ? AND status = ? AND is_deleted = ?", key.Name, key.Version, from, false).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %s is not in status %s: %w", key, from, templatesync.ErrInvalidVersionTransition)
	}
	return nil
}

func (r *templateRepo) SoftDeleteTemplate(ctx context.Context, tx *gorm.DB, key types.NaturalKey) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.QuestionnaireTemplate{}).
		Where("name = ? AND version = ? AND is_deleted = ?", key.Name, key.Version, false).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return templatesync.ErrNotFound
	}
	return nil
}

// SoftDelete tombstones rows instead of removing them; pinned submissions may
// still reference superseded versions.
func (r *templateRepo) SoftDelete(ctx context.Context, tx *gorm.DB, refs []types.EntityRef) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(refs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	var sectionIDs []string
	for _, ref := range refs {
		switch ref.Kind {
		case types.EntityKindSection:
			sectionIDs = append(sectionIDs, ref.ID)
		case types.EntityKindQuestion:
			res := transaction.WithContext(ctx).
				Model(&types.QuestionnaireQuestion{}).
				Where("name = ? AND version = ?", ref.Key.Name, ref.Key.Version).
				Updates(map[string]interface{}{"is_deleted": true, "is_active": false, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
		case types.EntityKindOption:
			res := transaction.WithContext(ctx).
				Model(&types.QuestionnaireOption{}).
				Where("name = ? AND version = ?", ref.Key.Name, ref.Key.Version).
				Updates(map[string]interface{}{"is_deleted": true, "is_active": false, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
		}
	}
	if len(sectionIDs) > 0 {
		if err := transaction.WithContext(ctx).
			Model(&types.QuestionnaireSection{}).
			Where("id IN ?", sectionIDs).
			Updates(map[string]interface{}{"is_deleted": true, "updated_at": now}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *templateRepo) TemplateInUse(ctx context.Context, tx *gorm.DB, name string, version int) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CandidateSubmission{}).
		Where("template_name = ? AND template_version = ?", name, version).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *templateRepo) QuestionNameExists(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// Tombstoned and superseded rows keep their (name, version) primary key,
	// so the name stays claimed forever. Versions are never reused.
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuestionnaireQuestion{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *templateRepo) OptionNameExists(ctx context.Context, tx *gorm.DB, name string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuestionnaireOption{}).
		Where("name = ?", name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *templateRepo) GetQuestionsByKeys(ctx context.Context, tx *gorm.DB, keys []types.NaturalKey) ([]*types.QuestionnaireQuestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuestionnaireQuestion
	if len(keys) == 0 {
		return results, nil
	}

	names := make([]string, 0, len(keys))
	wanted := make(map[types.NaturalKey]bool, len(keys))
	for _, k := range keys {
		names = append(names, k.Name)
		wanted[k] = true
	}
	var rows []*types.QuestionnaireQuestion
	if err := transaction.WithContext(ctx).
		Where("name IN ?", names).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if wanted[row.Key()] {
			results = append(results, row)
		}
	}
	return results, nil
}

func (r *templateRepo) GetOptionsByKeys(ctx context.Context, tx *gorm.DB, keys []types.NaturalKey) ([]*types.QuestionnaireOption, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.QuestionnaireOption
	if len(keys) == 0 {
		return results, nil
	}

	names := make([]string, 0, len(keys))
	wanted := make(map[types.NaturalKey]bool, len(keys))
	for _, k := range keys {
		names = append(names, k.Name)
		wanted[k] = true
	}
	var rows []*types.QuestionnaireOption
	if err := transaction.WithContext(ctx).
		Where("name IN ?", names).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if wanted[row.Key()] {
			results = append(results, row)
		}
	}
	return results, nil
}

// isUniqueViolation detects primary-key or unique-index races across the
// drivers used in production (postgres) and in tests (sqlite).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
