package templatesync

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/types"
)

// SyncResult is the materialized outcome of one synchronization.
type SyncResult struct {
	Template   *types.QuestionnaireTemplate `json:"template"`
	Summary    DiffSummary                  `json:"summary"`
	NewVersion bool                         `json:"new_version"`
	NoOp       bool                         `json:"no_op"`
}

// Orchestrator is the sole entry point for builder edits: it validates the
// desired tree, then drives fetch, diff, version and persist inside the
// optimistic-concurrency retry loop. On failure nothing is half-created.
type Orchestrator struct {
	store     Store
	alloc     *NameAllocator
	differ    *Differ
	versioner *Versioner
	retry     RetryPolicy
	validate  *validator.Validate
	now       func() time.Time
	log       *logger.Logger
}

func NewOrchestrator(store Store, policy SyncPolicy, log *logger.Logger) *Orchestrator {
	alloc := NewNameAllocator(policy.MaxNameLength, policy.MaxNameProbes)
	return &Orchestrator{
		store:     store,
		alloc:     alloc,
		differ:    NewDiffer(alloc.Normalize),
		versioner: NewVersioner(log),
		retry:     NewRetryPolicy(policy.MaxAttempts, policy.Backoff),
		validate:  validator.New(),
		now:       time.Now,
		log:       log.With("component", "TemplateOrchestrator"),
	}
}

func (o *Orchestrator) Sync(ctx context.Context, input TemplateInput) (*SyncResult, error) {
	if err := validateInput(o.validate, input); err != nil {
		return nil, err
	}

	var result *SyncResult
	err := o.retry.Run(ctx, o.log, func(ctx context.Context) error {
		res, err := o.attempt(ctx, input)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) attempt(ctx context.Context, input TemplateInput) (*SyncResult, error) {
	latest, err := o.store.GetLatestVersion(ctx, input.Name)
	if err != nil {
		return nil, fmt.Errorf("get latest version: %w", err)
	}

	var existing *types.QuestionnaireTemplate
	if latest > 0 {
		existing, err = o.store.GetTree(ctx, input.Name, latest)
		if err != nil {
			return nil, fmt.Errorf("get tree %s v%d: %w", input.Name, latest, err)
		}
	}
	if existing != nil && existing.Status == types.TemplateStatusArchived {
		return nil, fmt.Errorf("template %s v%d is archived: %w", existing.Name, existing.Version, ErrInvalidVersionTransition)
	}

	diff, err := o.differ.Diff(existing, input)
	if err != nil {
		return nil, err
	}

	if existing != nil && !diff.HasChanges() {
		o.log.Debug("Sync is a no-op, nothing persisted", "template", existing.Name, "version", existing.Version)
		return &SyncResult{Template: existing, Summary: diff.Summary, NoOp: true}, nil
	}

	inUse := false
	if existing != nil {
		inUse, err = o.store.TemplateInUse(ctx, existing.Name, existing.Version)
		if err != nil {
			return nil, fmt.Errorf("check template in use: %w", err)
		}
	}

	if err := o.allocateNames(ctx, diff); err != nil {
		return nil, err
	}

	plan, err := o.versioner.Plan(diff, latest+1, inUse, o.now())
	if err != nil {
		return nil, err
	}

	if err := o.store.SaveTree(ctx, plan); err != nil {
		return nil, err
	}

	o.log.Info("Template synchronized",
		"template", plan.Template.Name,
		"version", plan.Template.Version,
		"in_place", plan.InPlace,
		"sections_new", plan.Summary.Sections.New,
		"questions_modified", plan.Summary.Questions.Modified,
		"options_modified", plan.Summary.Options.Modified,
	)

	return &SyncResult{
		Template:   plan.Template,
		Summary:    plan.Summary,
		NewVersion: existing != nil && !plan.InPlace,
	}, nil
}

// allocateNames fills in natural keys for every New node before planning.
// Names claimed earlier in the batch count as taken for later nodes.
func (o *Orchestrator) allocateNames(ctx context.Context, diff *TemplateDiff) error {
	takenQuestions := make(map[string]struct{})
	takenOptions := make(map[string]struct{})

	for _, sd := range diff.Sections {
		for _, qd := range sd.Questions {
			if qd.Verdict == VerdictNew {
				if qd.Input.Name != "" {
					if err := o.claimName(ctx, "question", qd.Input.Name, o.store.QuestionNameExists, takenQuestions); err != nil {
						return err
					}
				} else {
					label := qd.Input.TraitKey
					if label == "" {
						label = qd.Input.QuestionText
					}
					name, err := o.alloc.Allocate(ctx, label, "", o.store.QuestionNameExists, takenQuestions)
					if err != nil {
						return err
					}
					qd.AssignedName = name
				}
			}

			parent := questionNameOf(qd)
			for _, od := range qd.Options {
				if od.Verdict != VerdictNew {
					continue
				}
				if od.Input.Name != "" {
					if err := o.claimName(ctx, "option", od.Input.Name, o.store.OptionNameExists, takenOptions); err != nil {
						return err
					}
					continue
				}
				name, err := o.alloc.Allocate(ctx, od.Input.Label, parent, o.store.OptionNameExists, takenOptions)
				if err != nil {
					return err
				}
				od.AssignedName = name
			}
		}
	}
	return nil
}

// claimName reserves an explicitly supplied name, rejecting collisions with
// live entities or with earlier nodes in the batch.
func (o *Orchestrator) claimName(ctx context.Context, level, name string, exists ExistsFunc, taken map[string]struct{}) error {
	if _, claimed := taken[name]; claimed {
		return &DuplicateNaturalKeyError{Level: level, Name: name}
	}
	used, err := exists(ctx, name)
	if err != nil {
		return fmt.Errorf("probe %s name %q: %w", level, name, err)
	}
	if used {
		return &DuplicateNaturalKeyError{Level: level, Name: name}
	}
	taken[name] = struct{}{}
	return nil
}

func questionNameOf(qd *QuestionDiff) string {
	if qd.Existing != nil {
		return qd.Existing.Name
	}
	if qd.Input.Name != "" {
		return qd.Input.Name
	}
	return qd.AssignedName
}
