package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/talentrail/talentrail-backend/internal/logger"
	"github.com/talentrail/talentrail-backend/internal/modules/templatesync"
	"github.com/talentrail/talentrail-backend/internal/repos"
	"github.com/talentrail/talentrail-backend/internal/types"
)

// AnswerInput carries one answer by name; the service resolves and pins the
// exact versions from the submission's snapshot.
type AnswerInput struct {
	QuestionName    string   `json:"question_name"`
	FreeText        *string  `json:"free_text,omitempty"`
	SelectedOptions []string `json:"selected_options,omitempty"`
}

// VersionSnapshot freezes the (Section, Question, Option) version tuples in
// force when a candidate started a step. It is written once into the
// submission record and never updated, so later template edits cannot change
// what the candidate sees.
type VersionSnapshot struct {
	Sections []SectionSnapshot `json:"sections"`
}

type SectionSnapshot struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Order     int                `json:"order"`
	Questions []QuestionSnapshot `json:"questions"`
}

type QuestionSnapshot struct {
	Key     types.NaturalKey   `json:"key"`
	Options []types.NaturalKey `json:"options"`
}

type SubmissionService interface {
	// GetTemplateForStep returns the questionnaire a candidate should see for
	// a pipeline step, lazily creating the pinned draft submission on first
	// access.
	GetTemplateForStep(ctx context.Context, stepID, candidateID uuid.UUID) (*types.QuestionnaireTemplate, *types.CandidateSubmission, error)
	SubmitForStep(ctx context.Context, stepID uuid.UUID, answers []AnswerInput) (*types.CandidateSubmission, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*types.CandidateSubmission, error)
	// PinCurrentPublishedVersion resolves the published version of a template
	// and the frozen version map of its tree, as consumed at step start.
	PinCurrentPublishedVersion(ctx context.Context, templateName string) (int, *VersionSnapshot, error)
}

type submissionService struct {
	db          *gorm.DB
	log         *logger.Logger
	submissions repos.SubmissionRepo
	templates   repos.TemplateRepo
	jobPosts    repos.JobPostRepo
	templateSvc TemplateService
}

func NewSubmissionService(db *gorm.DB, log *logger.Logger, submissions repos.SubmissionRepo, templates repos.TemplateRepo, jobPosts repos.JobPostRepo, templateSvc TemplateService) SubmissionService {
	serviceLog := log.With("service", "SubmissionService")
	return &submissionService{
		db:          db,
		log:         serviceLog,
		submissions: submissions,
		templates:   templates,
		jobPosts:    jobPosts,
		templateSvc: templateSvc,
	}
}

func (s *submissionService) GetTemplateForStep(ctx context.Context, stepID, candidateID uuid.UUID) (*types.QuestionnaireTemplate, *types.CandidateSubmission, error) {
	sub, err := s.submissions.GetByStepID(ctx, nil, stepID)
	if errors.Is(err, templatesync.ErrNotFound) {
		sub, err = s.startSubmission(ctx, stepID, candidateID)
	}
	if err != nil {
		return nil, nil, err
	}

	tree, err := s.renderPinned(ctx, nil, sub)
	if err != nil {
		return nil, nil, err
	}
	return tree, sub, nil
}

func (s *submissionService) PinCurrentPublishedVersion(ctx context.Context, templateName string) (int, *VersionSnapshot, error) {
	version, err := s.templateSvc.GetPublishedVersion(ctx, templateName)
	if err != nil {
		return 0, nil, err
	}
	if version == 0 {
		return 0, nil, fmt.Errorf("template %s has no published version: %w", templateName, templatesync.ErrNotFound)
	}
	tree, err := s.templates.GetTree(ctx, nil, templateName, version)
	if err != nil {
		return 0, nil, err
	}
	return version, snapshotFromTree(tree), nil
}

func (s *submissionService) startSubmission(ctx context.Context, stepID, candidateID uuid.UUID) (*types.CandidateSubmission, error) {
	step, err := s.jobPosts.GetStep(ctx, nil, stepID)
	if err != nil {
		return nil, err
	}
	if step.TemplateName == nil || *step.TemplateName == "" {
		return nil, &templatesync.ValidationError{Level: "step", Name: stepID.String(), Reason: "no questionnaire attached"}
	}

	var (
		version int
		snap    *VersionSnapshot
	)
	if step.TemplateVersion != nil {
		version = *step.TemplateVersion
		tree, err := s.templates.GetTree(ctx, nil, *step.TemplateName, version)
		if err != nil {
			return nil, err
		}
		snap = snapshotFromTree(tree)
	} else {
		version, snap, err = s.PinCurrentPublishedVersion(ctx, *step.TemplateName)
		if err != nil {
			return nil, err
		}
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal version snapshot: %w", err)
	}

	now := time.Now().UTC()
	sub := &types.CandidateSubmission{
		JobAppStepID: stepID,
		CandidateID:  candidateID,
		TemplateName: *step.TemplateName, TemplateVersion: version,
		Status:    types.SubmissionStatusDraft,
		Metadata:  datatypes.JSON(raw),
		StartedAt: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	created, err := s.submissions.Create(ctx, nil, sub)
	if err != nil {
		if errors.Is(err, templatesync.ErrConcurrencyConflict) {
			// Another request started the step first; its pin wins.
			return s.submissions.GetByStepID(ctx, nil, stepID)
		}
		return nil, err
	}

	s.log.Info("Submission started",
		"step", stepID, "candidate", candidateID,
		"template", created.TemplateName, "version", created.TemplateVersion)
	return created, nil
}

// renderPinned rebuilds the tree a candidate is answering from the frozen
// snapshot, reading through to superseded versions where needed. Submissions
// recorded before snapshots existed fall back to the live tree at the pinned
// template version.
func (s *submissionService) renderPinned(ctx context.Context, tx *gorm.DB, sub *types.CandidateSubmission) (*types.QuestionnaireTemplate, error) {
	var snap VersionSnapshot
	if len(sub.Metadata) > 0 {
		if err := json.Unmarshal(sub.Metadata, &snap); err != nil {
			return nil, fmt.Errorf("decode version snapshot: %w", err)
		}
	}
	if len(snap.Sections) == 0 {
		return s.templates.GetTree(ctx, tx, sub.TemplateName, sub.TemplateVersion)
	}

	tmpl, err := s.templates.GetTemplate(ctx, tx, sub.TemplateName, sub.TemplateVersion)
	if err != nil {
		return nil, err
	}

	var questionKeys, optionKeys []types.NaturalKey
	for _, sec := range snap.Sections {
		for _, q := range sec.Questions {
			questionKeys = append(questionKeys, q.Key)
			optionKeys = append(optionKeys, q.Options...)
		}
	}
	questionRows, err := s.templates.GetQuestionsByKeys(ctx, tx, questionKeys)
	if err != nil {
		return nil, err
	}
	optionRows, err := s.templates.GetOptionsByKeys(ctx, tx, optionKeys)
	if err != nil {
		return nil, err
	}
	questionsByKey := make(map[types.NaturalKey]*types.QuestionnaireQuestion, len(questionRows))
	for _, q := range questionRows {
		questionsByKey[q.Key()] = q
	}
	optionsByKey := make(map[types.NaturalKey]*types.QuestionnaireOption, len(optionRows))
	for _, opt := range optionRows {
		optionsByKey[opt.Key()] = opt
	}

	for _, sec := range snap.Sections {
		id, err := uuid.Parse(sec.ID)
		if err != nil {
			return nil, fmt.Errorf("decode version snapshot: %w", err)
		}
		section := &types.QuestionnaireSection{
			ID:           id,
			TemplateName: sub.TemplateName, TemplateVersion: sub.TemplateVersion,
			Order: sec.Order,
			Title: sec.Title,
		}
		for _, qs := range sec.Questions {
			q, ok := questionsByKey[qs.Key]
			if !ok {
				s.log.Warn("Snapshot question no longer resolves", "submission", sub.ID, "question", qs.Key)
				continue
			}
			question := *q
			question.Options = nil
			for _, optKey := range qs.Options {
				if opt, found := optionsByKey[optKey]; found {
					question.Options = append(question.Options, opt)
				}
			}
			section.Questions = append(section.Questions, &question)
		}
		tmpl.Sections = append(tmpl.Sections, section)
	}
	return tmpl, nil
}

func snapshotFromTree(tree *types.QuestionnaireTemplate) *VersionSnapshot {
	snap := &VersionSnapshot{}
	for _, sec := range tree.Sections {
		ss := SectionSnapshot{
			ID:    sec.ID.String(),
			Title: sec.Title,
			Order: sec.Order,
		}
		for _, q := range sec.Questions {
			qs := QuestionSnapshot{Key: q.Key()}
			for _, opt := range q.Options {
				qs.Options = append(qs.Options, opt.Key())
			}
			ss.Questions = append(ss.Questions, qs)
		}
		snap.Sections = append(snap.Sections, ss)
	}
	return snap
}

func (s *submissionService) SubmitForStep(ctx context.Context, stepID uuid.UUID, inputs []AnswerInput) (*types.CandidateSubmission, error) {
	var sub *types.CandidateSubmission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = s.submissions.GetByStepID(ctx, tx, stepID)
		if err != nil {
			return err
		}
		if sub.Status == types.SubmissionStatusSubmitted {
			return fmt.Errorf("submission %s already submitted: %w", sub.ID, templatesync.ErrInvalidVersionTransition)
		}

		tree, err := s.renderPinned(ctx, tx, sub)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		answers, err := pinAnswers(sub, tree, inputs, now)
		if err != nil {
			return err
		}
		if err := s.submissions.SaveAnswers(ctx, tx, answers); err != nil {
			return err
		}
		if err := s.submissions.MarkSubmitted(ctx, tx, sub.ID, now); err != nil {
			return err
		}

		sub.Status = types.SubmissionStatusSubmitted
		sub.SubmittedAt = &now
		sub.Answers = answers
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Submission completed",
		"submission", sub.ID, "template", sub.TemplateName, "version", sub.TemplateVersion,
		"answers", len(sub.Answers))
	return sub, nil
}

// pinAnswers resolves answer names against the pinned tree and records the
// exact question and option versions in force.
func pinAnswers(sub *types.CandidateSubmission, tree *types.QuestionnaireTemplate, inputs []AnswerInput, now time.Time) ([]*types.SubmissionAnswer, error) {
	questions := make(map[string]*types.QuestionnaireQuestion)
	optionsByQuestion := make(map[string]map[string]*types.QuestionnaireOption)
	for _, sec := range tree.Sections {
		for _, q := range sec.Questions {
			questions[q.Name] = q
			opts := make(map[string]*types.QuestionnaireOption, len(q.Options))
			for _, opt := range q.Options {
				opts[opt.Name] = opt
			}
			optionsByQuestion[q.Name] = opts
		}
	}

	answers := make([]*types.SubmissionAnswer, 0, len(inputs))
	for _, in := range inputs {
		q, ok := questions[in.QuestionName]
		if !ok {
			return nil, &templatesync.OrphanReferenceError{Level: "answer", Ref: in.QuestionName, Parent: sub.TemplateKey().String()}
		}
		answer := &types.SubmissionAnswer{
			SubmissionID: sub.ID,
			QuestionName: q.Name, QuestionVersion: q.Version,
			FreeText:  in.FreeText,
			CreatedAt: now,
		}
		for _, optName := range in.SelectedOptions {
			opt, ok := optionsByQuestion[q.Name][optName]
			if !ok {
				// Accept the unscoped base name the UI may send.
				opt, ok = optionsByQuestion[q.Name][q.Name+"_"+optName]
			}
			if !ok {
				return nil, &templatesync.OrphanReferenceError{Level: "answer option", Ref: optName, Parent: q.Key().String()}
			}
			answer.Options = append(answer.Options, &types.SubmissionAnswerOption{
				OptionName: opt.Name, OptionVersion: opt.Version,
				CreatedAt: now,
			})
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

func (s *submissionService) GetSubmission(ctx context.Context, id uuid.UUID) (*types.CandidateSubmission, error) {
	sub, err := s.submissions.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	answers, err := s.submissions.GetAnswers(ctx, nil, sub.ID)
	if err != nil {
		return nil, err
	}
	sub.Answers = answers

	// Pins must keep resolving even after the template moved on; a dangling
	// pin means rows were hard-deleted somewhere.
	questionKeys := make([]types.NaturalKey, 0, len(answers))
	var optionKeys []types.NaturalKey
	for _, a := range answers {
		questionKeys = append(questionKeys, a.QuestionKey())
		for _, opt := range a.Options {
			optionKeys = append(optionKeys, opt.OptionKey())
		}
	}
	pinnedQuestions, err := s.templates.GetQuestionsByKeys(ctx, nil, questionKeys)
	if err != nil {
		return nil, err
	}
	pinnedOptions, err := s.templates.GetOptionsByKeys(ctx, nil, optionKeys)
	if err != nil {
		return nil, err
	}
	if len(pinnedQuestions) < len(questionKeys) || len(pinnedOptions) < len(optionKeys) {
		s.log.Warn("Submission has dangling version pins",
			"submission", sub.ID,
			"questions_resolved", len(pinnedQuestions), "questions_pinned", len(questionKeys),
			"options_resolved", len(pinnedOptions), "options_pinned", len(optionKeys))
	}
	return sub, nil
}
