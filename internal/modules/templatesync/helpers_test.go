package templatesync

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func intp(i int) *int { return &i }

// seedTree builds a one-section personality screen with a single-choice
// question and two options, the shape most tests start from.
func seedTree(status types.TemplateStatus) *types.QuestionnaireTemplate {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tmpl := &types.QuestionnaireTemplate{
		Name:         "personality_screen",
		Version:      1,
		Status:       status,
		TemplateType: types.TemplateTypePersonality,
		Title:        "Personality Screen",
		RowVersion:   1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == types.TemplateStatusPublished {
		tmpl.PublishedAt = &now
	}

	section := &types.QuestionnaireSection{
		ID:              uuid.New(),
		TemplateName:    tmpl.Name,
		TemplateVersion: tmpl.Version,
		Order:           0,
		Title:           "Basics",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	question := &types.QuestionnaireQuestion{
		Name:         "q_mood",
		Version:      1,
		SectionID:    section.ID,
		Order:        0,
		QuestionType: types.QuestionTypeSingleChoice,
		QuestionText: "How do you usually feel at work?",
		IsRequired:   true,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	question.Options = []*types.QuestionnaireOption{
		{
			Name: "q_mood_good", Version: 1,
			QuestionName: question.Name, QuestionVersion: intp(1),
			Order: 0, Label: "Good", IsActive: true,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			Name: "q_mood_bad", Version: 1,
			QuestionName: question.Name, QuestionVersion: intp(1),
			Order: 1, Label: "Bad", IsActive: true,
			CreatedAt: now, UpdatedAt: now,
		},
	}
	section.Questions = []*types.QuestionnaireQuestion{question}
	tmpl.Sections = []*types.QuestionnaireSection{section}
	return tmpl
}

// mirrorInput converts a persisted tree into the input that would round-trip
// to a no-op sync.
func mirrorInput(tmpl *types.QuestionnaireTemplate) TemplateInput {
	in := TemplateInput{
		Name:             tmpl.Name,
		TemplateType:     string(tmpl.TemplateType),
		Title:            tmpl.Title,
		Description:      tmpl.Description,
		TimeLimitSeconds: tmpl.TimeLimitSeconds,
	}
	for _, sec := range tmpl.Sections {
		id := sec.ID
		si := SectionInput{
			ID:          &id,
			Order:       sec.Order,
			Title:       sec.Title,
			Description: sec.Description,
		}
		for _, q := range sec.Questions {
			qi := QuestionInput{
				Name:         q.Name,
				Order:        q.Order,
				QuestionType: string(q.QuestionType),
				QuestionText: q.QuestionText,
				IsRequired:   q.IsRequired,
				TraitKey:     q.TraitKey,
				Weight:       q.Weight,
			}
			for _, opt := range q.Options {
				qi.Options = append(qi.Options, OptionInput{
					Name:      opt.Name,
					Order:     opt.Order,
					Label:     opt.Label,
					IsCorrect: opt.IsCorrect,
					Score:     opt.Score,
					Weight:    opt.Weight,
				})
			}
			si.Questions = append(si.Questions, qi)
		}
		in.Sections = append(in.Sections, si)
	}
	return in
}
