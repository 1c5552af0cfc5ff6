package types

import "time"

// QuestionnaireOption belongs to a question through a versioned reference.
// QuestionVersion is nullable so an option can be attached before its parent
// question's version is finalized.
type QuestionnaireOption struct {
	Name            string    `gorm:"column:name;primaryKey" json:"name"`
	Version         int       `gorm:"column:version;primaryKey" json:"version"`
	QuestionName    string    `gorm:"column:question_name;not null;index:idx_option_question" json:"question_name"`
	QuestionVersion *int      `gorm:"column:question_version;index:idx_option_question" json:"question_version,omitempty"`
	Order           int       `gorm:"column:display_order;not null" json:"order"`
	Label           string    `gorm:"column:label;not null" json:"label"`
	IsCorrect       bool      `gorm:"column:is_correct;not null;default:false" json:"is_correct"`
	Score           float64   `gorm:"column:score;not null;default:0" json:"score"`
	Weight          float64   `gorm:"column:weight;not null;default:1" json:"weight"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsDeleted       bool      `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (QuestionnaireOption) TableName() string { return "questionnaire_option" }

func (o *QuestionnaireOption) Key() NaturalKey {
	return NaturalKey{Name: o.Name, Version: o.Version}
}

func (o *QuestionnaireOption) QuestionRef() QuestionRef {
	return QuestionRef{Name: o.QuestionName, Version: o.QuestionVersion}
}
