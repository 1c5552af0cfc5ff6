package templatesync

import (
	"errors"
	"testing"
	"time"

	"github.com/talentrail/talentrail-backend/internal/types"
)

var planNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func planFor(t *testing.T, existing *types.QuestionnaireTemplate, input TemplateInput, nextVersion int, inUse bool) *PersistPlan {
	t.Helper()
	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	plan, err := NewVersioner(testLogger(t)).Plan(diff, nextVersion, inUse, planNow)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return plan
}

func TestPlanFirstVersion(t *testing.T) {
	input := mirrorInput(seedTree(types.TemplateStatusDraft))
	input.Sections[0].ID = nil

	plan := planFor(t, nil, input, 1, false)

	if plan.InPlace {
		t.Fatal("first version is an insert, not an in-place edit")
	}
	tmpl := plan.Template
	if tmpl.Version != 1 || tmpl.Status != types.TemplateStatusDraft || tmpl.RowVersion != 1 {
		t.Fatalf("unexpected template row: %+v", tmpl)
	}
	if len(plan.SectionInserts) != 1 || len(plan.QuestionInserts) != 1 || len(plan.OptionInserts) != 2 {
		t.Fatalf("unexpected insert counts: %d/%d/%d",
			len(plan.SectionInserts), len(plan.QuestionInserts), len(plan.OptionInserts))
	}
	q := plan.QuestionInserts[0]
	if q.Version != 1 || !q.IsActive || q.SectionID != plan.SectionInserts[0].ID {
		t.Fatalf("unexpected question row: %+v", q)
	}
	for _, opt := range plan.OptionInserts {
		if opt.Version != 1 || opt.QuestionName != q.Name || *opt.QuestionVersion != 1 {
			t.Fatalf("unexpected option row: %+v", opt)
		}
	}
}

func TestPlanDraftEditStaysInPlace(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Title = "Personality Screen v2 draft"
	input.Sections[0].Questions[0].Options[1].Label = "Awful"

	plan := planFor(t, existing, input, 2, false)

	if !plan.InPlace {
		t.Fatal("draft without submissions edits the template row in place")
	}
	if plan.Template.Version != 1 {
		t.Fatalf("template version moved to %d, want 1", plan.Template.Version)
	}
	if plan.ExpectedRowVersion != existing.RowVersion {
		t.Fatal("plan must carry the concurrency token of the loaded row")
	}
	// The edited option still gets a fresh version even under a draft.
	if len(plan.OptionInserts) != 1 {
		t.Fatalf("want one option insert, got %d", len(plan.OptionInserts))
	}
	fresh := plan.OptionInserts[0]
	if fresh.Name != "q_mood_bad" || fresh.Version != 2 || fresh.Label != "Awful" || *fresh.QuestionVersion != 1 {
		t.Fatalf("unexpected reversioned option: %+v", fresh)
	}
	var superseded *types.QuestionnaireOption
	for _, upd := range plan.OptionUpdates {
		if upd.Name == "q_mood_bad" && upd.Version == 1 {
			superseded = upd
		}
	}
	if superseded == nil || superseded.IsActive {
		t.Fatalf("old option version must be kept but deactivated, got %+v", superseded)
	}
	if len(plan.SectionUpdates) != 0 || len(plan.QuestionInserts) != 0 {
		t.Fatal("untouched nodes must not be rewritten")
	}
}

func TestPlanPublishedEditCreatesNewVersion(t *testing.T) {
	existing := seedTree(types.TemplateStatusPublished)
	input := mirrorInput(existing)
	input.Sections[0].Questions[0].QuestionText = "How do you feel on most days?"

	plan := planFor(t, existing, input, 2, false)

	if plan.InPlace {
		t.Fatal("published templates are frozen")
	}
	tmpl := plan.Template
	if tmpl.Version != 2 || tmpl.Status != types.TemplateStatusDraft || tmpl.RowVersion != 1 {
		t.Fatalf("unexpected new template row: %+v", tmpl)
	}
	if plan.BaseKey != existing.Key() || plan.ExpectedRowVersion != existing.RowVersion {
		t.Fatal("plan must reference the base row for the concurrency check")
	}

	// The unchanged section is linked by reference into version 2.
	if len(plan.SectionInserts) != 0 || len(plan.SectionUpdates) != 1 {
		t.Fatalf("want one section repoint, got %d inserts %d updates",
			len(plan.SectionInserts), len(plan.SectionUpdates))
	}
	sec := plan.SectionUpdates[0]
	if sec.ID != existing.Sections[0].ID || sec.TemplateVersion != 2 {
		t.Fatalf("unexpected section repoint: %+v", sec)
	}

	// The modified question gets version 2; version 1 stays but goes inactive.
	if len(plan.QuestionInserts) != 1 {
		t.Fatalf("want one question insert, got %d", len(plan.QuestionInserts))
	}
	q2 := plan.QuestionInserts[0]
	if q2.Name != "q_mood" || q2.Version != 2 || !q2.IsActive {
		t.Fatalf("unexpected question row: %+v", q2)
	}
	var q1 *types.QuestionnaireQuestion
	for _, upd := range plan.QuestionUpdates {
		if upd.Name == "q_mood" && upd.Version == 1 {
			q1 = upd
		}
	}
	if q1 == nil || q1.IsActive {
		t.Fatalf("superseded question must be deactivated, got %+v", q1)
	}

	// Unchanged options follow the question to version 2 without new rows.
	if len(plan.OptionInserts) != 0 || len(plan.OptionUpdates) != 2 {
		t.Fatalf("want two option repoints, got %d inserts %d updates",
			len(plan.OptionInserts), len(plan.OptionUpdates))
	}
	for _, opt := range plan.OptionUpdates {
		if *opt.QuestionVersion != 2 || opt.Version != 1 || !opt.IsActive {
			t.Fatalf("unexpected option repoint: %+v", opt)
		}
	}
}

func TestPlanInUseDraftVersionsInsteadOfMutating(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Title = "Edited after candidates started"

	plan := planFor(t, existing, input, 2, true)

	if plan.InPlace {
		t.Fatal("a draft with submissions must be versioned, not mutated")
	}
	if plan.Template.Version != 2 {
		t.Fatalf("got version %d, want 2", plan.Template.Version)
	}
}

func TestPlanArchivedRejected(t *testing.T) {
	existing := seedTree(types.TemplateStatusArchived)
	input := mirrorInput(existing)
	input.Title = "Should not work"

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	_, err = NewVersioner(testLogger(t)).Plan(diff, 2, false, planNow)
	if !errors.Is(err, ErrInvalidVersionTransition) {
		t.Fatalf("got %v, want ErrInvalidVersionTransition", err)
	}
}

func TestPlanRemovedNodesTombstoned(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Sections[0].Questions[0].Options = input.Sections[0].Questions[0].Options[:1]

	plan := planFor(t, existing, input, 2, false)

	if len(plan.Tombstones) != 1 {
		t.Fatalf("want one tombstone, got %d", len(plan.Tombstones))
	}
	ts := plan.Tombstones[0]
	if ts.Kind != types.EntityKindOption || ts.Key.Name != "q_mood_bad" || ts.Key.Version != 1 {
		t.Fatalf("unexpected tombstone: %+v", ts)
	}
}

func TestPlanRemovedSectionCascadesTombstones(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Sections = []SectionInput{{Order: 5, Title: "Replacement"}}

	plan := planFor(t, existing, input, 2, false)

	var sections, questions, options int
	for _, ts := range plan.Tombstones {
		switch ts.Kind {
		case types.EntityKindSection:
			sections++
		case types.EntityKindQuestion:
			questions++
		case types.EntityKindOption:
			options++
		}
	}
	if sections != 1 || questions != 1 || options != 2 {
		t.Fatalf("tombstones must cascade, got %d/%d/%d", sections, questions, options)
	}
}
