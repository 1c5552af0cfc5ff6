package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/clients/redis"
	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/repos"
	"github.com/talentrail/talentrail-backend/internal/types"
)

type TemplateService interface {
	Sync(ctx context.Context, input templatesync.TemplateInput) (*templatesync.SyncResult, error)
	Get(ctx context.Context, name string, version int) (*types.QuestionnaireTemplate, error)
	List(ctx context.Context) ([]*types.QuestionnaireTemplate, error)
	Publish(ctx context.Context, name string, version int) (*types.QuestionnaireTemplate, error)
	Archive(ctx context.Context, name string, version int) error
	DeleteDraft(ctx context.Context, name string, version int) error
	GetPublishedVersion(ctx context.Context, name string) (int, error)
}

type templateService struct {
	db           *gorm.DB
	log          *logger.Logger
	templates    repos.TemplateRepo
	orchestrator *templatesync.Orchestrator
	cache        redis.PublishedVersionCache
}

func NewTemplateService(db *gorm.DB, log *logger.Logger, templates repos.TemplateRepo, policy templatesync.SyncPolicy, cache redis.PublishedVersionCache) TemplateService {
	serviceLog := log.With("service", "TemplateService")
	return &templateService{
		db:           db,
		log:          serviceLog,
		templates:    templates,
		orchestrator: templatesync.NewOrchestrator(repos.NewSyncStore(templates), policy, log),
		cache:        cache,
	}
}

func (s *templateService) Sync(ctx context.Context, input templatesync.TemplateInput) (*templatesync.SyncResult, error) {
	result, err := s.orchestrator.Sync(ctx, input)
	if err != nil {
		return nil, err
	}
	// A new version may supersede the tree the published pointer refers to
	// only via Publish, so the cache stays valid here.
	return result, nil
}

// Get returns the active tree. version <= 0 resolves to the latest version.
func (s *templateService) Get(ctx context.Context, name string, version int) (*types.QuestionnaireTemplate, error) {
	if version <= 0 {
		latest, err := s.templates.GetLatestVersion(ctx, nil, name)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return nil, templatesync.ErrNotFound
		}
		version = latest
	}
	return s.templates.GetTree(ctx, nil, name, version)
}

// List loads the latest tree of every template, fetching in parallel.
func (s *templateService) List(ctx context.Context) ([]*types.QuestionnaireTemplate, error) {
	names, err := s.templates.ListNames(ctx, nil)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make([]*types.QuestionnaireTemplate, 0, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, name := range names {
		name := name
		g.Go(func() error {
			tree, err := s.Get(gctx, name, 0)
			if err != nil {
				return fmt.Errorf("load %s: %w", name, err)
			}
			mu.Lock()
			results = append(results, tree)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// Publish freezes one draft version and retires the previously published one.
func (s *templateService) Publish(ctx context.Context, name string, version int) (*types.QuestionnaireTemplate, error) {
	now := time.Now().UTC()
	key := types.NaturalKey{Name: name, Version: version}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := s.templates.GetPublishedVersion(ctx, tx, name)
		if err != nil {
			return err
		}
		if previous == version {
			return fmt.Errorf("template %s already published: %w", key, templatesync.ErrInvalidVersionTransition)
		}
		if previous > 0 {
			prevKey := types.NaturalKey{Name: name, Version: previous}
			if err := s.templates.UpdateStatus(ctx, tx, prevKey, types.TemplateStatusPublished, types.TemplateStatusArchived, nil); err != nil {
				return fmt.Errorf("retire %s: %w", prevKey, err)
			}
		}
		return s.templates.UpdateStatus(ctx, tx, key, types.TemplateStatusDraft, types.TemplateStatusPublished, &now)
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, name, version)
	}
	s.log.Info("Template published", "template", name, "version", version)

	return s.templates.GetTree(ctx, nil, name, version)
}

func (s *templateService) Archive(ctx context.Context, name string, version int) error {
	key := types.NaturalKey{Name: name, Version: version}
	if err := s.templates.UpdateStatus(ctx, nil, key, types.TemplateStatusPublished, types.TemplateStatusArchived, nil); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, name)
	}
	s.log.Info("Template archived", "template", name, "version", version)
	return nil
}

// DeleteDraft tombstones an unused draft version and its whole subtree.
func (s *templateService) DeleteDraft(ctx context.Context, name string, version int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tree, err := s.templates.GetTree(ctx, tx, name, version)
		if err != nil {
			return err
		}
		if tree.Frozen() {
			return fmt.Errorf("template %s is %s: %w", tree.Key(), tree.Status, templatesync.ErrInvalidVersionTransition)
		}
		inUse, err := s.templates.TemplateInUse(ctx, tx, name, version)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("template %s has submissions: %w", tree.Key(), templatesync.ErrInvalidVersionTransition)
		}

		var refs []types.EntityRef
		for _, sec := range tree.Sections {
			refs = append(refs, types.EntityRef{Kind: types.EntityKindSection, ID: sec.ID.String()})
			for _, q := range sec.Questions {
				refs = append(refs, types.EntityRef{Kind: types.EntityKindQuestion, Key: q.Key()})
				for _, opt := range q.Options {
					refs = append(refs, types.EntityRef{Kind: types.EntityKindOption, Key: opt.Key()})
				}
			}
		}
		if err := s.templates.SoftDelete(ctx, tx, refs); err != nil {
			return err
		}
		return s.templates.SoftDeleteTemplate(ctx, tx, tree.Key())
	})
}

// GetPublishedVersion resolves through the cache when available.
func (s *templateService) GetPublishedVersion(ctx context.Context, name string) (int, error) {
	if s.cache != nil {
		if version, ok := s.cache.Get(ctx, name); ok {
			return version, nil
		}
	}
	version, err := s.templates.GetPublishedVersion(ctx, nil, name)
	if err != nil {
		return 0, err
	}
	if version > 0 && s.cache != nil {
		s.cache.Set(ctx, name, version)
	}
	return version, nil
}
