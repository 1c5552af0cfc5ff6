package types

import "fmt"

// NaturalKey is the composite identity used by every versioned entity:
// a human-meaningful name plus a monotonically increasing version.
type NaturalKey struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s@v%d", k.Name, k.Version)
}

// QuestionRef points an option at its owning question. Version is nil while
// the parent question's version has not been finalized yet.
type QuestionRef struct {
	Name    string `json:"name"`
	Version *int   `json:"version,omitempty"`
}

func (r QuestionRef) Pinned() bool { return r.Version != nil }

func (r QuestionRef) Key() (NaturalKey, bool) {
	if r.Version == nil {
		return NaturalKey{}, false
	}
	return NaturalKey{Name: r.Name, Version: *r.Version}, true
}

// EntityKind names a tombstone target for the soft-delete path.
type EntityKind string

const (
	EntityKindSection  EntityKind = "section"
	EntityKindQuestion EntityKind = "question"
	EntityKindOption   EntityKind = "option"
)

// EntityRef identifies one row to tombstone. Sections are addressed by
// surrogate id, questions and options by natural key.
type EntityRef struct {
	Kind EntityKind
	ID   string
	Key  NaturalKey
}
