package templatesync

import (
	"context"

	"github.com/talentrail/talentrail-backend/internal/types"
)

// Store is the persistence port consumed by the engine. Implementations must
// make SaveTree atomic (all rows of one plan commit together or not at all)
// and return ErrConcurrencyConflict when another writer won the race. All
// methods are safe to call again within one retry attempt.
type Store interface {
	// GetTree loads the active tree for one exact version, or ErrNotFound.
	GetTree(ctx context.Context, name string, version int) (*types.QuestionnaireTemplate, error)
	// GetLatestVersion returns the highest persisted version for name, or 0.
	GetLatestVersion(ctx context.Context, name string) (int, error)
	// SaveTree persists one plan atomically, guarded by the base row's
	// concurrency token.
	SaveTree(ctx context.Context, plan *PersistPlan) error
	// SoftDelete tombstones rows outside of a sync plan.
	SoftDelete(ctx context.Context, refs []types.EntityRef) error
	// TemplateInUse reports whether any candidate submission pins this
	// exact template version.
	TemplateInUse(ctx context.Context, name string, version int) (bool, error)
	// QuestionNameExists probes the question name-space. Tombstoned rows
	// count: a name once persisted stays claimed so versions are never reused.
	QuestionNameExists(ctx context.Context, name string) (bool, error)
	// OptionNameExists probes the option name-space, tombstones included.
	OptionNameExists(ctx context.Context, name string) (bool, error)
}
