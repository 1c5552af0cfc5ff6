package templatesync

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/types"
)

// PersistPlan is the write set produced from one classified diff. The
// Template field doubles as the materialized result tree: after SaveTree
// succeeds it reflects exactly what is persisted.
type PersistPlan struct {
	InPlace            bool
	BaseKey            types.NaturalKey
	ExpectedRowVersion int

	Template        *types.QuestionnaireTemplate
	SectionInserts  []*types.QuestionnaireSection
	SectionUpdates  []*types.QuestionnaireSection
	QuestionInserts []*types.QuestionnaireQuestion
	QuestionUpdates []*types.QuestionnaireQuestion
	OptionInserts   []*types.QuestionnaireOption
	OptionUpdates   []*types.QuestionnaireOption
	Tombstones      []types.EntityRef

	Summary DiffSummary
}

// Versioner turns a diff classification into a persist plan. Draft templates
// without submissions are edited in place at the same version; frozen or
// in-use templates get a new version, with unchanged children linked by
// reference rather than duplicated.
type Versioner struct {
	log *logger.Logger
}

func NewVersioner(log *logger.Logger) *Versioner {
	return &Versioner{log: log.With("component", "Versioner")}
}

func (v *Versioner) Plan(diff *TemplateDiff, nextVersion int, inUse bool, now time.Time) (*PersistPlan, error) {
	existing := diff.Existing
	input := diff.Input

	plan := &PersistPlan{Summary: diff.Summary}

	targetVersion := 1
	switch {
	case existing == nil:
		plan.Template = v.buildTemplate(input, 1, now)
	case existing.Status == types.TemplateStatusArchived:
		return nil, ErrInvalidVersionTransition
	case existing.Status == types.TemplateStatusDraft && !inUse:
		plan.InPlace = true
		targetVersion = existing.Version
		tmpl := cloneTemplate(existing)
		v.applyTemplateInput(tmpl, input, now)
		plan.Template = tmpl
		plan.BaseKey = existing.Key()
		plan.ExpectedRowVersion = existing.RowVersion
	default:
		targetVersion = nextVersion
		plan.Template = v.buildTemplate(input, targetVersion, now)
		plan.BaseKey = existing.Key()
		plan.ExpectedRowVersion = existing.RowVersion
	}

	for _, sd := range diff.Sections {
		section, err := v.planSection(plan, sd, targetVersion, now)
		if err != nil {
			return nil, err
		}
		plan.Template.Sections = append(plan.Template.Sections, section)
	}

	for _, sec := range diff.RemovedSections {
		plan.Tombstones = append(plan.Tombstones, types.EntityRef{Kind: types.EntityKindSection, ID: sec.ID.String()})
		v.tombstoneQuestions(plan, sec.Questions)
	}

	return plan, nil
}

func (v *Versioner) planSection(plan *PersistPlan, sd *SectionDiff, targetVersion int, now time.Time) (*types.QuestionnaireSection, error) {
	var section *types.QuestionnaireSection

	switch sd.Verdict {
	case VerdictNew:
		section = &types.QuestionnaireSection{
			ID:              uuid.New(),
			TemplateName:    plan.Template.Name,
			TemplateVersion: targetVersion,
			Order:           sd.Input.Order,
			Title:           strings.TrimSpace(sd.Input.Title),
			Description:     sd.Input.Description,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		plan.SectionInserts = append(plan.SectionInserts, section)
	case VerdictUnchanged:
		section = cloneSection(sd.Existing)
		if section.TemplateVersion != targetVersion {
			// Link by reference: the row is carried into the new template
			// version by re-pointing its ownership tuple.
			section.TemplateVersion = targetVersion
			section.UpdatedAt = now
			plan.SectionUpdates = append(plan.SectionUpdates, section)
		}
	case VerdictModified:
		section = cloneSection(sd.Existing)
		section.Order = sd.Input.Order
		section.Title = strings.TrimSpace(sd.Input.Title)
		section.Description = sd.Input.Description
		section.TemplateVersion = targetVersion
		section.UpdatedAt = now
		plan.SectionUpdates = append(plan.SectionUpdates, section)
	}

	for _, qd := range sd.Questions {
		question, err := v.planQuestion(plan, qd, section.ID, now)
		if err != nil {
			return nil, err
		}
		section.Questions = append(section.Questions, question)
	}

	for _, q := range sd.RemovedQuestions {
		v.tombstoneQuestions(plan, []*types.QuestionnaireQuestion{q})
	}

	return section, nil
}

func (v *Versioner) planQuestion(plan *PersistPlan, qd *QuestionDiff, sectionID uuid.UUID, now time.Time) (*types.QuestionnaireQuestion, error) {
	var question *types.QuestionnaireQuestion
	reversioned := false

	switch qd.Verdict {
	case VerdictNew:
		name := qd.Input.Name
		if name == "" {
			name = qd.AssignedName
		}
		if name == "" {
			return nil, &ValidationError{Level: "question", Reason: "no name allocated"}
		}
		question = v.buildQuestion(qd.Input, name, 1, sectionID, now)
		plan.QuestionInserts = append(plan.QuestionInserts, question)
	case VerdictUnchanged:
		question = cloneQuestion(qd.Existing)
		if question.SectionID != sectionID {
			question.SectionID = sectionID
			question.UpdatedAt = now
			plan.QuestionUpdates = append(plan.QuestionUpdates, question)
		}
	case VerdictModified:
		superseded := cloneQuestion(qd.Existing)
		superseded.IsActive = false
		superseded.UpdatedAt = now
		plan.QuestionUpdates = append(plan.QuestionUpdates, superseded)

		question = v.buildQuestion(qd.Input, qd.Existing.Name, qd.Existing.Version+1, sectionID, now)
		plan.QuestionInserts = append(plan.QuestionInserts, question)
		reversioned = true
	}

	for _, od := range qd.Options {
		option, err := v.planOption(plan, od, question, reversioned, now)
		if err != nil {
			return nil, err
		}
		question.Options = append(question.Options, option)
	}

	for _, opt := range qd.RemovedOptions {
		plan.Tombstones = append(plan.Tombstones, types.EntityRef{Kind: types.EntityKindOption, Key: opt.Key()})
	}

	return question, nil
}

func (v *Versioner) planOption(plan *PersistPlan, od *OptionDiff, question *types.QuestionnaireQuestion, questionReversioned bool, now time.Time) (*types.QuestionnaireOption, error) {
	targetVersion := question.Version

	switch od.Verdict {
	case VerdictNew:
		name := od.Input.Name
		if name == "" {
			name = od.AssignedName
		}
		if name == "" {
			return nil, &ValidationError{Level: "option", Reason: "no name allocated"}
		}
		option := v.buildOption(od.Input, name, 1, question.Name, targetVersion, now)
		plan.OptionInserts = append(plan.OptionInserts, option)
		return option, nil
	case VerdictUnchanged:
		option := cloneOption(od.Existing)
		if questionReversioned {
			// Reused unchanged under the new question version: only the
			// versioned parent edge moves.
			option.QuestionVersion = &targetVersion
			option.UpdatedAt = now
			plan.OptionUpdates = append(plan.OptionUpdates, option)
		}
		return option, nil
	default: // VerdictModified
		superseded := cloneOption(od.Existing)
		superseded.IsActive = false
		superseded.UpdatedAt = now
		plan.OptionUpdates = append(plan.OptionUpdates, superseded)

		option := v.buildOption(od.Input, od.Existing.Name, od.Existing.Version+1, question.Name, targetVersion, now)
		plan.OptionInserts = append(plan.OptionInserts, option)
		return option, nil
	}
}

func (v *Versioner) tombstoneQuestions(plan *PersistPlan, questions []*types.QuestionnaireQuestion) {
	for _, q := range questions {
		plan.Tombstones = append(plan.Tombstones, types.EntityRef{Kind: types.EntityKindQuestion, Key: q.Key()})
		for _, opt := range q.Options {
			plan.Tombstones = append(plan.Tombstones, types.EntityRef{Kind: types.EntityKindOption, Key: opt.Key()})
		}
	}
}

func (v *Versioner) buildTemplate(in TemplateInput, version int, now time.Time) *types.QuestionnaireTemplate {
	tmpl := &types.QuestionnaireTemplate{
		Name:             in.Name,
		Version:          version,
		Status:           types.TemplateStatusDraft,
		TemplateType:     types.TemplateTypeForm,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		TimeLimitSeconds: in.TimeLimitSeconds,
		RowVersion:       1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.TemplateType != "" {
		tmpl.TemplateType = types.TemplateType(in.TemplateType)
	}
	if len(in.Metadata) > 0 {
		tmpl.Metadata = datatypes.JSON(in.Metadata)
	}
	return tmpl
}

func (v *Versioner) applyTemplateInput(tmpl *types.QuestionnaireTemplate, in TemplateInput, now time.Time) {
	tmpl.Title = strings.TrimSpace(in.Title)
	tmpl.Description = in.Description
	if in.TemplateType != "" {
		tmpl.TemplateType = types.TemplateType(in.TemplateType)
	}
	tmpl.TimeLimitSeconds = in.TimeLimitSeconds
	if len(in.Metadata) > 0 {
		tmpl.Metadata = datatypes.JSON(in.Metadata)
	}
	tmpl.UpdatedAt = now
}

func (v *Versioner) buildQuestion(in QuestionInput, name string, version int, sectionID uuid.UUID, now time.Time) *types.QuestionnaireQuestion {
	q := &types.QuestionnaireQuestion{
		Name:         name,
		Version:      version,
		SectionID:    sectionID,
		Order:        in.Order,
		QuestionType: types.QuestionTypeText,
		QuestionText: strings.TrimSpace(in.QuestionText),
		IsRequired:   in.IsRequired,
		TraitKey:     in.TraitKey,
		Weight:       in.Weight,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.QuestionType != "" {
		q.QuestionType = types.QuestionType(in.QuestionType)
	}
	return q
}

func (v *Versioner) buildOption(in OptionInput, name string, version int, questionName string, questionVersion int, now time.Time) *types.QuestionnaireOption {
	return &types.QuestionnaireOption{
		Name:            name,
		Version:         version,
		QuestionName:    questionName,
		QuestionVersion: &questionVersion,
		Order:           in.Order,
		Label:           strings.TrimSpace(in.Label),
		IsCorrect:       in.IsCorrect,
		Score:           in.Score,
		Weight:          in.Weight,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func cloneTemplate(t *types.QuestionnaireTemplate) *types.QuestionnaireTemplate {
	c := *t
	c.Sections = nil
	return &c
}

func cloneSection(s *types.QuestionnaireSection) *types.QuestionnaireSection {
	c := *s
	c.Questions = nil
	return &c
}

func cloneQuestion(q *types.QuestionnaireQuestion) *types.QuestionnaireQuestion {
	c := *q
	c.Options = nil
	return &c
}

func cloneOption(o *types.QuestionnaireOption) *types.QuestionnaireOption {
	c := *o
	if o.QuestionVersion != nil {
		v := *o.QuestionVersion
		c.QuestionVersion = &v
	}
	return &c
}
