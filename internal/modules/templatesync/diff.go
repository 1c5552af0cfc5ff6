package templatesync

import (
	"bytes"
	"strings"

	"github.com/google/uuid"

	"github.com/talentrail/talentrail-backend/internal/types"
)

type Verdict string

const (
	VerdictUnchanged Verdict = "unchanged"
	VerdictModified  Verdict = "modified"
	VerdictNew       Verdict = "new"
	VerdictRemoved   Verdict = "removed"
)

type LevelCounts struct {
	Unchanged int `json:"unchanged"`
	Modified  int `json:"modified"`
	New       int `json:"new"`
	Removed   int `json:"removed"`
}

func (c *LevelCounts) add(v Verdict) {
	switch v {
	case VerdictUnchanged:
		c.Unchanged++
	case VerdictModified:
		c.Modified++
	case VerdictNew:
		c.New++
	case VerdictRemoved:
		c.Removed++
	}
}

func (c LevelCounts) changed() bool {
	return c.Modified > 0 || c.New > 0 || c.Removed > 0
}

// DiffSummary is returned to the builder UI after a sync.
type DiffSummary struct {
	Sections  LevelCounts `json:"sections"`
	Questions LevelCounts `json:"questions"`
	Options   LevelCounts `json:"options"`
}

type OptionDiff struct {
	Verdict  Verdict
	Existing *types.QuestionnaireOption
	Input    OptionInput
	// AssignedName is filled by the orchestrator for New verdicts.
	AssignedName string
}

type QuestionDiff struct {
	Verdict        Verdict
	Existing       *types.QuestionnaireQuestion
	Input          QuestionInput
	AssignedName   string
	Options        []*OptionDiff
	RemovedOptions []*types.QuestionnaireOption
}

type SectionDiff struct {
	Verdict          Verdict
	Existing         *types.QuestionnaireSection
	Input            SectionInput
	Questions        []*QuestionDiff
	RemovedQuestions []*types.QuestionnaireQuestion
}

type TemplateDiff struct {
	Existing        *types.QuestionnaireTemplate
	Input           TemplateInput
	MetadataChanged bool
	Sections        []*SectionDiff
	RemovedSections []*types.QuestionnaireSection
	Summary         DiffSummary
}

// HasChanges reports whether persisting this diff would write anything.
func (d *TemplateDiff) HasChanges() bool {
	if d.MetadataChanged {
		return true
	}
	return d.Summary.Sections.changed() || d.Summary.Questions.changed() || d.Summary.Options.changed()
}

// Differ compares a desired tree against the persisted tree and classifies
// every node. It is a pure function of its inputs; persistence decisions
// belong to the Versioner.
type Differ struct {
	normalize func(string) string
}

func NewDiffer(normalize func(string) string) *Differ {
	if normalize == nil {
		normalize = strings.ToLower
	}
	return &Differ{normalize: normalize}
}

// Diff classifies the whole tree top-down. existing may be nil (brand new
// template); every node is then New.
func (d *Differ) Diff(existing *types.QuestionnaireTemplate, input TemplateInput) (*TemplateDiff, error) {
	out := &TemplateDiff{Existing: existing, Input: input}
	if existing != nil {
		out.MetadataChanged = d.templateChanged(existing, input)
	}

	var existingSections []*types.QuestionnaireSection
	if existing != nil {
		existingSections = existing.Sections
	}
	byID := make(map[uuid.UUID]*types.QuestionnaireSection, len(existingSections))
	for _, sec := range existingSections {
		byID[sec.ID] = sec
	}
	matched := make(map[uuid.UUID]bool, len(existingSections))

	for _, in := range input.Sections {
		var sec *types.QuestionnaireSection
		if in.ID != nil {
			found, ok := byID[*in.ID]
			if !ok || matched[found.ID] {
				return nil, &OrphanReferenceError{Level: "section", Ref: in.ID.String(), Parent: input.Name}
			}
			sec = found
		} else {
			sec = d.matchSectionHeuristic(existingSections, matched, in)
		}

		sd := &SectionDiff{Input: in, Existing: sec}
		if sec == nil {
			sd.Verdict = VerdictNew
		} else {
			matched[sec.ID] = true
			if d.sectionChanged(sec, in) {
				sd.Verdict = VerdictModified
			} else {
				sd.Verdict = VerdictUnchanged
			}
		}
		out.Summary.Sections.add(sd.Verdict)

		if err := d.diffQuestions(sd, &out.Summary); err != nil {
			return nil, err
		}
		out.Sections = append(out.Sections, sd)
	}

	for _, sec := range existingSections {
		if !matched[sec.ID] {
			out.RemovedSections = append(out.RemovedSections, sec)
			out.Summary.Sections.add(VerdictRemoved)
			for _, q := range sec.Questions {
				out.Summary.Questions.add(VerdictRemoved)
				for range q.Options {
					out.Summary.Options.add(VerdictRemoved)
				}
			}
		}
	}
	return out, nil
}

func (d *Differ) diffQuestions(sd *SectionDiff, summary *DiffSummary) error {
	var existing []*types.QuestionnaireQuestion
	if sd.Existing != nil {
		existing = sd.Existing.Questions
	}
	byName := make(map[string]*types.QuestionnaireQuestion, len(existing))
	for _, q := range existing {
		byName[strings.ToLower(q.Name)] = q
	}
	matched := make(map[string]bool, len(existing))

	for _, in := range sd.Input.Questions {
		var q *types.QuestionnaireQuestion
		if in.Name != "" {
			if found, ok := byName[strings.ToLower(in.Name)]; ok && !matched[strings.ToLower(found.Name)] {
				q = found
			}
			// An explicit name with no counterpart is treated as New; the
			// orchestrator rejects it if the name is live elsewhere.
		} else {
			q = d.matchQuestionHeuristic(existing, matched, in)
		}

		qd := &QuestionDiff{Input: in, Existing: q}
		if q == nil {
			qd.Verdict = VerdictNew
		} else {
			matched[strings.ToLower(q.Name)] = true
			if d.questionChanged(q, in) {
				qd.Verdict = VerdictModified
			} else {
				qd.Verdict = VerdictUnchanged
			}
		}
		summary.Questions.add(qd.Verdict)

		d.diffOptions(qd, summary)
		sd.Questions = append(sd.Questions, qd)
	}

	for _, q := range existing {
		if !matched[strings.ToLower(q.Name)] {
			sd.RemovedQuestions = append(sd.RemovedQuestions, q)
			summary.Questions.add(VerdictRemoved)
			for range q.Options {
				summary.Options.add(VerdictRemoved)
			}
		}
	}
	return nil
}

func (d *Differ) diffOptions(qd *QuestionDiff, summary *DiffSummary) {
	var existing []*types.QuestionnaireOption
	questionName := ""
	if qd.Existing != nil {
		existing = qd.Existing.Options
		questionName = qd.Existing.Name
	}

	byName := make(map[string]*types.QuestionnaireOption, len(existing)*2)
	for _, opt := range existing {
		lower := strings.ToLower(opt.Name)
		byName[lower] = opt
		// Option names are scoped under their question; accept the bare
		// label name from the UI as well.
		prefix := strings.ToLower(questionName) + "_"
		if questionName != "" && strings.HasPrefix(lower, prefix) {
			base := lower[len(prefix):]
			if _, ok := byName[base]; !ok {
				byName[base] = opt
			}
		}
	}
	matched := make(map[string]bool, len(existing))

	for _, in := range qd.Input.Options {
		var opt *types.QuestionnaireOption
		if in.Name != "" {
			if found, ok := byName[strings.ToLower(in.Name)]; ok && !matched[strings.ToLower(found.Name)] {
				opt = found
			}
		} else {
			opt = d.matchOptionHeuristic(existing, matched, in)
		}

		od := &OptionDiff{Input: in, Existing: opt}
		if opt == nil {
			od.Verdict = VerdictNew
		} else {
			matched[strings.ToLower(opt.Name)] = true
			if d.optionChanged(opt, in) {
				od.Verdict = VerdictModified
			} else {
				od.Verdict = VerdictUnchanged
			}
		}
		summary.Options.add(od.Verdict)
		qd.Options = append(qd.Options, od)
	}

	for _, opt := range existing {
		if !matched[strings.ToLower(opt.Name)] {
			qd.RemovedOptions = append(qd.RemovedOptions, opt)
			summary.Options.add(VerdictRemoved)
		}
	}
}

// Heuristic matching applies only when the UI supplied no identity: same
// Order plus same normalized label. Anything weaker stays New/Removed, which
// is safe because submissions pin exact versions.

func (d *Differ) matchSectionHeuristic(existing []*types.QuestionnaireSection, matched map[uuid.UUID]bool, in SectionInput) *types.QuestionnaireSection {
	for _, sec := range existing {
		if matched[sec.ID] {
			continue
		}
		if sec.Order == in.Order && d.normalize(sec.Title) == d.normalize(in.Title) {
			return sec
		}
	}
	return nil
}

func (d *Differ) matchQuestionHeuristic(existing []*types.QuestionnaireQuestion, matched map[string]bool, in QuestionInput) *types.QuestionnaireQuestion {
	for _, q := range existing {
		if matched[strings.ToLower(q.Name)] {
			continue
		}
		if q.Order == in.Order && d.normalize(q.QuestionText) == d.normalize(in.QuestionText) {
			return q
		}
	}
	return nil
}

func (d *Differ) matchOptionHeuristic(existing []*types.QuestionnaireOption, matched map[string]bool, in OptionInput) *types.QuestionnaireOption {
	for _, opt := range existing {
		if matched[strings.ToLower(opt.Name)] {
			continue
		}
		if opt.Order == in.Order && d.normalize(opt.Label) == d.normalize(in.Label) {
			return opt
		}
	}
	return nil
}

func (d *Differ) templateChanged(t *types.QuestionnaireTemplate, in TemplateInput) bool {
	if t.Title != strings.TrimSpace(in.Title) {
		return true
	}
	if t.Description != in.Description {
		return true
	}
	if in.TemplateType != "" && string(t.TemplateType) != in.TemplateType {
		return true
	}
	if !intPtrEqual(t.TimeLimitSeconds, in.TimeLimitSeconds) {
		return true
	}
	if len(in.Metadata) > 0 && !bytes.Equal(t.Metadata, in.Metadata) {
		return true
	}
	return false
}

func (d *Differ) sectionChanged(sec *types.QuestionnaireSection, in SectionInput) bool {
	return sec.Order != in.Order ||
		sec.Title != strings.TrimSpace(in.Title) ||
		sec.Description != in.Description
}

func (d *Differ) questionChanged(q *types.QuestionnaireQuestion, in QuestionInput) bool {
	if q.Order != in.Order {
		return true
	}
	if in.QuestionType != "" && string(q.QuestionType) != in.QuestionType {
		return true
	}
	return q.QuestionText != strings.TrimSpace(in.QuestionText) ||
		q.IsRequired != in.IsRequired ||
		q.TraitKey != in.TraitKey ||
		q.Weight != in.Weight
}

func (d *Differ) optionChanged(opt *types.QuestionnaireOption, in OptionInput) bool {
	return opt.Order != in.Order ||
		opt.Label != strings.TrimSpace(in.Label) ||
		opt.IsCorrect != in.IsCorrect ||
		opt.Score != in.Score ||
		opt.Weight != in.Weight
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
