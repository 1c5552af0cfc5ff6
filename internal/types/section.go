package types

import (
	"time"

	"github.com/google/uuid"
)

// QuestionnaireSection has surrogate identity. It is owned by one exact
// template version; the ownership tuple is re-pointed when an unchanged
// section is carried into a new template version.
type QuestionnaireSection struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateName    string    `gorm:"column:template_name;not null;index:idx_section_template" json:"template_name"`
	TemplateVersion int       `gorm:"column:template_version;not null;index:idx_section_template" json:"template_version"`
	Order           int       `gorm:"column:display_order;not null" json:"order"`
	Title           string    `gorm:"column:title;not null" json:"title"`
	Description     string    `gorm:"column:description" json:"description"`
	IsDeleted       bool      `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`

	Questions []*QuestionnaireQuestion `gorm:"-" json:"questions,omitempty"`
}

func (QuestionnaireSection) TableName() string { return "questionnaire_section" }
