package templatesync

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validateInput rejects structurally invalid trees before any diffing:
// missing required fields, duplicate sibling orders, duplicate identities
// within the batch.
func validateInput(v *validator.Validate, in TemplateInput) error {
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Level: "template", Name: in.Name, Reason: fmt.Sprintf("field %s failed rule %s", fe.Namespace(), fe.Tag())}
		}
		return &ValidationError{Level: "template", Name: in.Name, Reason: err.Error()}
	}

	sectionOrders := make(map[int]bool, len(in.Sections))
	sectionIDs := make(map[string]bool, len(in.Sections))
	questionNames := make(map[string]bool)
	for _, sec := range in.Sections {
		if sectionOrders[sec.Order] {
			return &ValidationError{Level: "section", Name: sec.Title, Reason: fmt.Sprintf("duplicate order %d", sec.Order)}
		}
		sectionOrders[sec.Order] = true
		if sec.ID != nil {
			id := sec.ID.String()
			if sectionIDs[id] {
				return &ValidationError{Level: "section", Name: sec.Title, Reason: "duplicate section id " + id}
			}
			sectionIDs[id] = true
		}

		questionOrders := make(map[int]bool, len(sec.Questions))
		for _, q := range sec.Questions {
			if questionOrders[q.Order] {
				return &ValidationError{Level: "question", Name: q.Name, Reason: fmt.Sprintf("duplicate order %d in section %q", q.Order, sec.Title)}
			}
			questionOrders[q.Order] = true
			if q.Name != "" {
				if questionNames[q.Name] {
					return &ValidationError{Level: "question", Name: q.Name, Reason: "duplicate question name in batch"}
				}
				questionNames[q.Name] = true
			}

			optionOrders := make(map[int]bool, len(q.Options))
			optionNames := make(map[string]bool, len(q.Options))
			for _, opt := range q.Options {
				if optionOrders[opt.Order] {
					return &ValidationError{Level: "option", Name: opt.Name, Reason: fmt.Sprintf("duplicate order %d in question %q", opt.Order, q.Name)}
				}
				optionOrders[opt.Order] = true
				if opt.Name != "" {
					if optionNames[opt.Name] {
						return &ValidationError{Level: "option", Name: opt.Name, Reason: "duplicate option name in batch"}
					}
					optionNames[opt.Name] = true
				}
			}
		}
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
