package templatesync

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TemplateInput is the desired tree submitted by the builder UI. Nodes may
// or may not carry a persisted identity (section ID, question/option Name).
type TemplateInput struct {
	Name             string          `json:"name" validate:"required"`
	TemplateType     string          `json:"template_type"`
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	TimeLimitSeconds *int            `json:"time_limit_seconds" validate:"omitempty,gt=0"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Sections         []SectionInput  `json:"sections" validate:"dive"`
}

type SectionInput struct {
	ID          *uuid.UUID      `json:"id,omitempty"`
	Order       int             `json:"order" validate:"gte=0"`
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	Questions   []QuestionInput `json:"questions" validate:"dive"`
}

type QuestionInput struct {
	Name         string        `json:"name,omitempty"`
	Order        int           `json:"order" validate:"gte=0"`
	QuestionType string        `json:"question_type"`
	QuestionText string        `json:"question_text" validate:"required"`
	IsRequired   bool          `json:"is_required"`
	TraitKey     string        `json:"trait_key"`
	Weight       float64       `json:"weight" validate:"gte=0"`
	Options      []OptionInput `json:"options" validate:"dive"`
}

type OptionInput struct {
	Name      string  `json:"name,omitempty"`
	Order     int     `json:"order" validate:"gte=0"`
	Label     string  `json:"label" validate:"required"`
	IsCorrect bool    `json:"is_correct"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight" validate:"gte=0"`
}
