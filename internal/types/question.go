package types

import (
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeText         QuestionType = "Text"
	QuestionTypeSingleChoice QuestionType = "SingleChoice"
	QuestionTypeMultiChoice  QuestionType = "MultiChoice"
	QuestionTypeScale        QuestionType = "Scale"
)

// QuestionnaireQuestion is versioned independently of its template. A
// superseded version stays in place with IsActive=false so pinned
// submissions keep resolving.
type QuestionnaireQuestion struct {
	Name         string       `gorm:"column:name;primaryKey" json:"name"`
	Version      int          `gorm:"column:version;primaryKey" json:"version"`
	SectionID    uuid.UUID    `gorm:"type:uuid;column:section_id;not null;index" json:"section_id"`
	Order        int          `gorm:"column:display_order;not null" json:"order"`
	QuestionType QuestionType `gorm:"column:question_type;not null;default:'Text'" json:"question_type"`
	QuestionText string       `gorm:"column:question_text;not null" json:"question_text"`
	IsRequired   bool         `gorm:"column:is_required;not null;default:false" json:"is_required"`
	TraitKey     string       `gorm:"column:trait_key" json:"trait_key"`
	Weight       float64      `gorm:"column:weight;not null;default:1" json:"weight"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsDeleted    bool         `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`

	Options []*QuestionnaireOption `gorm:"-" json:"options,omitempty"`
}

func (QuestionnaireQuestion) TableName() string { return "questionnaire_question" }

func (q *QuestionnaireQuestion) Key() NaturalKey {
	return NaturalKey{Name: q.Name, Version: q.Version}
}
