package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/repos"
	"github.com/talentrail/talentrail-backend/internal/repos/testutil"
	"github.com/talentrail/talentrail-backend/internal/types"
)

func newTemplateServiceForTest(t *testing.T) (TemplateService, *gorm.DB) {
	t.Helper()
	tx := testutil.Tx(t, testutil.DB(t))
	log := testutil.Logger(t)
	templateRepo := repos.NewTemplateRepo(tx, log)
	svc := NewTemplateService(tx, log, templateRepo, templatesync.DefaultSyncPolicy(), nil)
	return svc, tx
}

func screeningInput(name string) templatesync.TemplateInput {
	return templatesync.TemplateInput{
		Name:  name,
		Title: "Screening",
		Sections: []templatesync.SectionInput{{
			Order: 0,
			Title: "Basics",
			Questions: []templatesync.QuestionInput{{
				Name:         name + "_q1",
				Order:        0,
				QuestionType: string(types.QuestionTypeSingleChoice),
				QuestionText: "Ready to start?",
				Options: []templatesync.OptionInput{
					{Order: 0, Label: "Yes"},
					{Order: 1, Label: "No"},
				},
			}},
		}},
	}
}

func TestTemplateServicePublishLifecycle(t *testing.T) {
	svc, _ := newTemplateServiceForTest(t)
	ctx := context.Background()
	name := "svc_lifecycle"

	res, err := svc.Sync(ctx, screeningInput(name))
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Template.Version != 1 {
		t.Fatalf("got version %d, want 1", res.Template.Version)
	}

	if _, err := svc.Publish(ctx, name, 1); err != nil {
		t.Fatalf("Publish v1: %v", err)
	}
	published, err := svc.GetPublishedVersion(ctx, name)
	if err != nil || published != 1 {
		t.Fatalf("GetPublishedVersion = %d, %v", published, err)
	}

	// Editing a published template yields a new draft version.
	edited := screeningInput(name)
	edited.Sections[0].Questions[0].QuestionText = "Ready to begin?"
	res, err = svc.Sync(ctx, edited)
	if err != nil {
		t.Fatalf("Sync edit: %v", err)
	}
	if !res.NewVersion || res.Template.Version != 2 {
		t.Fatalf("expected draft v2, got %+v", res)
	}

	// Publishing v2 retires v1.
	if _, err := svc.Publish(ctx, name, 2); err != nil {
		t.Fatalf("Publish v2: %v", err)
	}
	published, err = svc.GetPublishedVersion(ctx, name)
	if err != nil || published != 2 {
		t.Fatalf("GetPublishedVersion = %d, %v", published, err)
	}
	v1, err := svc.Get(ctx, name, 1)
	if err != nil {
		t.Fatalf("Get v1: %v", err)
	}
	if v1.Status != types.TemplateStatusArchived {
		t.Fatalf("v1 should be archived, got %s", v1.Status)
	}

	// Double publish is rejected.
	if _, err := svc.Publish(ctx, name, 2); !errors.Is(err, templatesync.ErrInvalidVersionTransition) {
		t.Fatalf("got %v, want ErrInvalidVersionTransition", err)
	}
}

func TestTemplateServiceGetLatest(t *testing.T) {
	svc, _ := newTemplateServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.Sync(ctx, screeningInput("svc_latest")); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	tree, err := svc.Get(ctx, "svc_latest", 0)
	if err != nil || tree.Version != 1 {
		t.Fatalf("Get latest: %+v, %v", tree, err)
	}
	if _, err := svc.Get(ctx, "svc_missing", 0); !errors.Is(err, templatesync.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTemplateServiceList(t *testing.T) {
	svc, _ := newTemplateServiceForTest(t)
	ctx := context.Background()

	for _, name := range []string{"svc_list_b", "svc_list_a"} {
		if _, err := svc.Sync(ctx, screeningInput(name)); err != nil {
			t.Fatalf("Sync %s: %v", name, err)
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].Name != "svc_list_a" || all[1].Name != "svc_list_b" {
		t.Fatalf("unexpected listing: %+v", all)
	}
	if len(all[0].Sections) != 1 {
		t.Fatal("listing must include the full tree")
	}
}

func TestSyncReaddedQuestionNameRejected(t *testing.T) {
	svc, _ := newTemplateServiceForTest(t)
	ctx := context.Background()
	name := "svc_readd"

	two := screeningInput(name)
	two.Sections[0].Questions = append(two.Sections[0].Questions, templatesync.QuestionInput{
		Name:         name + "_q2",
		Order:        1,
		QuestionType: string(types.QuestionTypeText),
		QuestionText: "Anything to add?",
	})
	if _, err := svc.Sync(ctx, two); err != nil {
		t.Fatalf("initial Sync: %v", err)
	}

	// Dropping q2 tombstones it; the row keeps its (name, version) key.
	if _, err := svc.Sync(ctx, screeningInput(name)); err != nil {
		t.Fatalf("removal Sync: %v", err)
	}

	// Re-adding the same explicit name must fail the duplicate probe up
	// front instead of burning the concurrency retry budget on a primary
	// key collision.
	_, err := svc.Sync(ctx, two)
	if !errors.Is(err, templatesync.ErrDuplicateNaturalKey) {
		t.Fatalf("got %v, want ErrDuplicateNaturalKey", err)
	}
}

func TestTemplateServiceDeleteDraft(t *testing.T) {
	svc, _ := newTemplateServiceForTest(t)
	ctx := context.Background()
	name := "svc_delete"

	if _, err := svc.Sync(ctx, screeningInput(name)); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := svc.DeleteDraft(ctx, name, 1); err != nil {
		t.Fatalf("DeleteDraft: %v", err)
	}
	if _, err := svc.Get(ctx, name, 0); !errors.Is(err, templatesync.ErrNotFound) {
		t.Fatalf("deleted draft still resolves: %v", err)
	}
}

func TestTemplateServiceDeleteDraftRejectsPublished(t *testing.T) {
	svc, _ := newTemplateServiceForTest(t)
	ctx := context.Background()
	name := "svc_delete_published"

	if _, err := svc.Sync(ctx, screeningInput(name)); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := svc.Publish(ctx, name, 1); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	err := svc.DeleteDraft(ctx, name, 1)
	if !errors.Is(err, templatesync.ErrInvalidVersionTransition) {
		t.Fatalf("got %v, want ErrInvalidVersionTransition", err)
	}
}
