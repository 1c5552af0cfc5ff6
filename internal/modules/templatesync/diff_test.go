package templatesync

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/talentrail/talentrail-backend/internal/types"
)

func newTestDiffer() *Differ {
	return NewDiffer(NewNameAllocator(64, 10).Normalize)
}

func TestDiffBrandNewTemplate(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	for i := range input.Sections {
		input.Sections[i].ID = nil
	}

	diff, err := newTestDiffer().Diff(nil, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !diff.HasChanges() {
		t.Fatal("expected changes for brand new template")
	}
	if diff.Summary.Sections.New != 1 || diff.Summary.Questions.New != 1 || diff.Summary.Options.New != 2 {
		t.Fatalf("unexpected summary: %+v", diff.Summary)
	}
}

func TestDiffIdenticalTreeIsNoOp(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	diff, err := newTestDiffer().Diff(existing, mirrorInput(existing))
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff.HasChanges() {
		t.Fatalf("expected no changes, got summary %+v", diff.Summary)
	}
	if diff.Summary.Sections.Unchanged != 1 || diff.Summary.Questions.Unchanged != 1 || diff.Summary.Options.Unchanged != 2 {
		t.Fatalf("unexpected summary: %+v", diff.Summary)
	}
}

func TestDiffOptionLabelChange(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Sections[0].Questions[0].Options[1].Label = "Awful"

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff.Summary.Options.Modified != 1 || diff.Summary.Options.Unchanged != 1 {
		t.Fatalf("unexpected option summary: %+v", diff.Summary.Options)
	}
	if diff.Summary.Questions.Modified != 0 {
		t.Fatal("question itself should stay unchanged")
	}
	od := diff.Sections[0].Questions[0].Options[1]
	if od.Verdict != VerdictModified || od.Existing == nil || od.Existing.Name != "q_mood_bad" {
		t.Fatalf("unexpected option diff: %+v", od)
	}
}

func TestDiffRemovedSectionCascades(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Sections = nil

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(diff.RemovedSections) != 1 {
		t.Fatalf("expected one removed section, got %d", len(diff.RemovedSections))
	}
	if diff.Summary.Sections.Removed != 1 || diff.Summary.Questions.Removed != 1 || diff.Summary.Options.Removed != 2 {
		t.Fatalf("removal should cascade, got %+v", diff.Summary)
	}
}

func TestDiffOrphanSectionID(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	bogus := uuid.New()
	input.Sections[0].ID = &bogus

	_, err := newTestDiffer().Diff(existing, input)
	if !errors.Is(err, ErrOrphanReference) {
		t.Fatalf("got %v, want ErrOrphanReference", err)
	}
	var oref *OrphanReferenceError
	if !errors.As(err, &oref) || oref.Ref != bogus.String() {
		t.Fatalf("unexpected orphan detail: %v", err)
	}
}

func TestDiffHeuristicQuestionMatch(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	// No identity from the UI, same order and same text up to casing.
	input.Sections[0].Questions[0].Name = ""
	input.Sections[0].Questions[0].QuestionText = "HOW do you usually feel at work?"
	for i := range input.Sections[0].Questions[0].Options {
		input.Sections[0].Questions[0].Options[i].Name = ""
	}

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	qd := diff.Sections[0].Questions[0]
	if qd.Existing == nil || qd.Existing.Name != "q_mood" {
		t.Fatal("expected heuristic match on (order, normalized text)")
	}
	// Casing differs so the row itself counts as modified.
	if qd.Verdict != VerdictModified {
		t.Fatalf("got verdict %q, want modified", qd.Verdict)
	}
	if diff.Summary.Options.Unchanged != 2 {
		t.Fatalf("options should heuristic-match too: %+v", diff.Summary.Options)
	}
}

func TestDiffOptionBareLabelAlias(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	// The UI may send the unscoped base name; it must resolve to the
	// question-prefixed row.
	input.Sections[0].Questions[0].Options[0].Name = "good"

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	od := diff.Sections[0].Questions[0].Options[0]
	if od.Existing == nil || od.Existing.Name != "q_mood_good" {
		t.Fatalf("bare name should alias to scoped row, got %+v", od)
	}
	if od.Verdict != VerdictUnchanged {
		t.Fatalf("got verdict %q, want unchanged", od.Verdict)
	}
}

func TestDiffUnknownQuestionNameIsNew(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Sections[0].Questions = append(input.Sections[0].Questions, QuestionInput{
		Name:         "q_energy",
		Order:        1,
		QuestionType: string(types.QuestionTypeText),
		QuestionText: "What energizes you?",
	})

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if diff.Summary.Questions.New != 1 || diff.Summary.Questions.Unchanged != 1 {
		t.Fatalf("unexpected question summary: %+v", diff.Summary.Questions)
	}
}

func TestDiffMetadataOnlyChange(t *testing.T) {
	existing := seedTree(types.TemplateStatusDraft)
	input := mirrorInput(existing)
	input.Metadata = json.RawMessage(`{"locale":"en-GB"}`)

	diff, err := newTestDiffer().Diff(existing, input)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !diff.MetadataChanged || !diff.HasChanges() {
		t.Fatal("metadata change must count as a change")
	}
	if diff.Summary.Sections.changed() {
		t.Fatal("sections should be untouched")
	}
}
