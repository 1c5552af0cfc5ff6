package types

import (
	"time"

	"github.com/google/uuid"
)

// JobPost follows the same natural-key versioning pattern as templates.
// Its builder sync flow is plain CRUD elsewhere; the models live here so
// pipeline steps can pin questionnaire versions.
type JobPost struct {
	Name       string         `gorm:"column:name;primaryKey" json:"name"`
	Version    int            `gorm:"column:version;primaryKey" json:"version"`
	Status     TemplateStatus `gorm:"column:status;not null;default:'Draft'" json:"status"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	RowVersion int            `gorm:"column:row_version;not null;default:1" json:"-"`
	IsDeleted  bool           `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobPost) TableName() string { return "job_post" }

// JobPostStep links a pipeline step to the questionnaire template it runs.
// TemplateVersion is nil while the step tracks "latest published"; pinning
// resolves it per candidate at step start.
type JobPostStep struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobPostName     string    `gorm:"column:job_post_name;not null;index:idx_step_job_post" json:"job_post_name"`
	JobPostVersion  int       `gorm:"column:job_post_version;not null;index:idx_step_job_post" json:"job_post_version"`
	Order           int       `gorm:"column:display_order;not null" json:"order"`
	StepType        string    `gorm:"column:step_type;not null" json:"step_type"`
	TemplateName    *string   `gorm:"column:template_name" json:"template_name,omitempty"`
	TemplateVersion *int      `gorm:"column:template_version" json:"template_version,omitempty"`
	IsDeleted       bool      `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (JobPostStep) TableName() string { return "job_post_step" }

// InterviewConfiguration and Prompt carry the same (Name, Version) identity
// so interview tooling can pin exact prompt revisions.
type InterviewConfiguration struct {
	Name          string    `gorm:"column:name;primaryKey" json:"name"`
	Version       int       `gorm:"column:version;primaryKey" json:"version"`
	PromptName    *string   `gorm:"column:prompt_name" json:"prompt_name,omitempty"`
	PromptVersion *int      `gorm:"column:prompt_version" json:"prompt_version,omitempty"`
	RowVersion    int       `gorm:"column:row_version;not null;default:1" json:"-"`
	IsDeleted     bool      `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (InterviewConfiguration) TableName() string { return "interview_configuration" }

type Prompt struct {
	Name      string    `gorm:"column:name;primaryKey" json:"name"`
	Version   int       `gorm:"column:version;primaryKey" json:"version"`
	Body      string    `gorm:"column:body;not null" json:"body"`
	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Prompt) TableName() string { return "prompt" }
