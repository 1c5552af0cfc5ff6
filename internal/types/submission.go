package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionStatusDraft     SubmissionStatus = "Draft"
	SubmissionStatusSubmitted SubmissionStatus = "Submitted"
)

// CandidateSubmission pins the exact template version in force when the
// candidate started the step. The pin never moves afterwards.
type CandidateSubmission struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	JobAppStepID     uuid.UUID        `gorm:"type:uuid;column:job_app_step_id;not null;uniqueIndex" json:"job_app_step_id"`
	CandidateID      uuid.UUID        `gorm:"type:uuid;column:candidate_id;not null;index" json:"candidate_id"`
	TemplateName     string           `gorm:"column:template_name;not null;index:idx_submission_template" json:"template_name"`
	TemplateVersion  int              `gorm:"column:template_version;not null;index:idx_submission_template" json:"template_version"`
	Status           SubmissionStatus `gorm:"column:status;not null;default:'Draft'" json:"status"`
	Metadata         datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	StartedAt        *time.Time       `gorm:"column:started_at" json:"started_at,omitempty"`
	SubmittedAt      *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`

	Answers []*SubmissionAnswer `gorm:"-" json:"answers,omitempty"`
}

func (CandidateSubmission) TableName() string { return "questionnaire_candidate_submission" }

func (s *CandidateSubmission) TemplateKey() NaturalKey {
	return NaturalKey{Name: s.TemplateName, Version: s.TemplateVersion}
}

// SubmissionAnswer stores the exact question version answered.
type SubmissionAnswer struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID    uuid.UUID `gorm:"type:uuid;column:submission_id;not null;index" json:"submission_id"`
	QuestionName    string    `gorm:"column:question_name;not null" json:"question_name"`
	QuestionVersion int       `gorm:"column:question_version;not null" json:"question_version"`
	FreeText        *string   `gorm:"column:free_text" json:"free_text,omitempty"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`

	Options []*SubmissionAnswerOption `gorm:"-" json:"options,omitempty"`
}

func (SubmissionAnswer) TableName() string { return "questionnaire_submission_answer" }

func (a *SubmissionAnswer) QuestionKey() NaturalKey {
	return NaturalKey{Name: a.QuestionName, Version: a.QuestionVersion}
}

// SubmissionAnswerOption stores the exact option version selected.
type SubmissionAnswerOption struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AnswerID      uuid.UUID `gorm:"type:uuid;column:answer_id;not null;index" json:"answer_id"`
	OptionName    string    `gorm:"column:option_name;not null" json:"option_name"`
	OptionVersion int       `gorm:"column:option_version;not null" json:"option_version"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (SubmissionAnswerOption) TableName() string { return "questionnaire_submission_answer_option" }

func (o *SubmissionAnswerOption) OptionKey() NaturalKey {
	return NaturalKey{Name: o.OptionName, Version: o.OptionVersion}
}
