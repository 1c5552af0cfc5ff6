package types

import (
	"time"

	"gorm.io/datatypes"
)

type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "Draft"
	TemplateStatusPublished TemplateStatus = "Published"
	TemplateStatusArchived  TemplateStatus = "Archived"
)

type TemplateType string

const (
	TemplateTypeForm        TemplateType = "Form"
	TemplateTypePersonality TemplateType = "Personality"
	TemplateTypeKnowledge   TemplateType = "Knowledge"
)

// QuestionnaireTemplate is the root of the versioned tree. Published and
// archived rows are immutable; every edit targets a new version.
type QuestionnaireTemplate struct {
	Name             string         `gorm:"column:name;primaryKey" json:"name"`
	Version          int            `gorm:"column:version;primaryKey" json:"version"`
	Status           TemplateStatus `gorm:"column:status;not null;default:'Draft'" json:"status"`
	TemplateType     TemplateType   `gorm:"column:template_type;not null;default:'Form'" json:"template_type"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description"`
	TimeLimitSeconds *int           `gorm:"column:time_limit_seconds" json:"time_limit_seconds,omitempty"`
	Metadata         datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	RowVersion       int            `gorm:"column:row_version;not null;default:1" json:"-"`
	IsDeleted        bool           `gorm:"column:is_deleted;not null;default:false" json:"-"`
	PublishedAt      *time.Time     `gorm:"column:published_at" json:"published_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`

	// Loaded by the repository, not by gorm association traversal.
	Sections []*QuestionnaireSection `gorm:"-" json:"sections,omitempty"`
}

func (QuestionnaireTemplate) TableName() string { return "questionnaire_template" }

func (t *QuestionnaireTemplate) Key() NaturalKey {
	return NaturalKey{Name: t.Name, Version: t.Version}
}

func (t *QuestionnaireTemplate) Frozen() bool {
	return t.Status == TemplateStatusPublished || t.Status == TemplateStatusArchived
}
