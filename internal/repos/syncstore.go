package repos

import (
	"context"

	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/types"
)

// syncStore adapts TemplateRepo to the narrower port the sync engine consumes.
type syncStore struct {
	templates TemplateRepo
}

func NewSyncStore(templates TemplateRepo) templatesync.Store {
	return &syncStore{templates: templates}
}

func (s *syncStore) GetTree(ctx context.Context, name string, version int) (*types.QuestionnaireTemplate, error) {
	return s.templates.GetTree(ctx, nil, name, version)
}

func (s *syncStore) GetLatestVersion(ctx context.Context, name string) (int, error) {
	return s.templates.GetLatestVersion(ctx, nil, name)
}

func (s *syncStore) SaveTree(ctx context.Context, plan *templatesync.PersistPlan) error {
	return s.templates.SaveTree(ctx, plan)
}

func (s *syncStore) SoftDelete(ctx context.Context, refs []types.EntityRef) error {
	return s.templates.SoftDelete(ctx, nil, refs)
}

func (s *syncStore) TemplateInUse(ctx context.Context, name string, version int) (bool, error) {
	return s.templates.TemplateInUse(ctx, nil, name, version)
}

func (s *syncStore) QuestionNameExists(ctx context.Context, name string) (bool, error) {
	return s.templates.QuestionNameExists(ctx, nil, name)
}

func (s *syncStore) OptionNameExists(ctx context.Context, name string) (bool, error) {
	return s.templates.OptionNameExists(ctx, nil, name)
}
