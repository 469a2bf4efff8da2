package draft

import (
	"github.com/assesslyhq/assessly-go/internal/model"
)

// Assessment is the root editing unit of a draft tree. TotalMarks is
// always derived from the questions (see the method), never stored.
type Assessment struct {
	ID              EntityID             `json:"id"`
	Title           string               `json:"title"`
	Type            model.AssessmentType `json:"type"`
	Order           int                  `json:"order"`
	Instructions    string               `json:"instructions,omitempty"`
	DurationMinutes *int                 `json:"duration_minutes,omitempty"`
	IsActive        bool                 `json:"is_active"`
	Modules         []Module             `json:"modules"`
}

// Module is one draft module, exclusively owned by its assessment while
// in draft.
type Module struct {
	ID           EntityID   `json:"id"`
	Title        string     `json:"title"`
	Code         string     `json:"code"`
	Order        int        `json:"order"`
	TimeLimitMin *int       `json:"time_limit_min,omitempty"`
	Questions    []Question `json:"questions"`
}

// Question is one draft question. Options are present only for MCQ.
type Question struct {
	ID         EntityID           `json:"id"`
	Type       model.QuestionType `json:"type"`
	Stem       string             `json:"stem"`
	Marks      int                `json:"marks"`
	Difficulty model.Difficulty   `json:"difficulty"`
	Topic      *string            `json:"topic,omitempty"`
	Options    []Option           `json:"options,omitempty"`
}

// Option is one draft MCQ option.
type Option struct {
	ID        EntityID `json:"id"`
	Label     string   `json:"label"`
	IsCorrect bool     `json:"is_correct"`
}

// PendingDeletions tracks persisted entities removed from the tree whose
// server-side deletion is deferred to the next save. Only numeric ids
// are recorded; removed temp-id entities need no server call.
type PendingDeletions struct {
	Modules   []int64 `json:"modules"`
	Questions []int64 `json:"questions"`
	Options   []int64 `json:"options"`
}

// IsEmpty reports whether no deletions are pending.
func (p PendingDeletions) IsEmpty() bool {
	return len(p.Modules) == 0 && len(p.Questions) == 0 && len(p.Options) == 0
}

// State is the complete builder editing state: the draft tree plus the
// deletion side-table. It is a value object; every mutation returns a
// new State and never modifies the receiver.
type State struct {
	Assessment Assessment       `json:"assessment"`
	Pending    PendingDeletions `json:"pending_deletions"`
}

// TotalMarks is the derived sum of marks over every question in every
// module. Recomputed on demand so it can never go stale.
func (a Assessment) TotalMarks() int {
	total := 0
	for _, m := range a.Modules {
		for _, q := range m.Questions {
			total += q.Marks
		}
	}
	return total
}

// HasTempIDs reports whether any entity in the tree still awaits a
// server id. A fully saved tree has none.
func (a Assessment) HasTempIDs() bool {
	if !a.ID.IsPersisted() {
		return true
	}
	for _, m := range a.Modules {
		if !m.ID.IsPersisted() {
			return true
		}
		for _, q := range m.Questions {
			if !q.ID.IsPersisted() {
				return true
			}
			for _, o := range q.Options {
				if !o.ID.IsPersisted() {
					return true
				}
			}
		}
	}
	return false
}

// HasCorrectOption reports whether at least one option is marked
// correct. MCQs without one are flagged as a warning in the editor but
// never block a save.
func (q Question) HasCorrectOption() bool {
	for _, o := range q.Options {
		if o.IsCorrect {
			return true
		}
	}
	return false
}

// Warnings returns soft editor warnings for the tree: MCQ questions
// with no correct option marked.
func (s State) Warnings() []string {
	var warnings []string
	for _, m := range s.Assessment.Modules {
		for _, q := range m.Questions {
			if q.Type == model.QuestionTypeMCQ && !q.HasCorrectOption() {
				warnings = append(warnings,
					"module "+m.Code+": question "+q.ID.String()+" has no correct option marked")
			}
		}
	}
	return warnings
}

// ─── Deep copies ────────────────────────────────────────────────────────
//
// State is handed out by value, but slices and pointer fields alias.
// Every transition works on a clone so callers can hold old states.

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{
		Assessment: s.Assessment.clone(),
		Pending: PendingDeletions{
			Modules:   append([]int64(nil), s.Pending.Modules...),
			Questions: append([]int64(nil), s.Pending.Questions...),
			Options:   append([]int64(nil), s.Pending.Options...),
		},
	}
}

func (a Assessment) clone() Assessment {
	out := a
	out.DurationMinutes = cloneIntPtr(a.DurationMinutes)
	out.Modules = make([]Module, len(a.Modules))
	for i, m := range a.Modules {
		out.Modules[i] = m.clone()
	}
	return out
}

func (m Module) clone() Module {
	out := m
	out.TimeLimitMin = cloneIntPtr(m.TimeLimitMin)
	out.Questions = make([]Question, len(m.Questions))
	for i, q := range m.Questions {
		out.Questions[i] = q.clone()
	}
	return out
}

func (q Question) clone() Question {
	out := q
	if q.Topic != nil {
		t := *q.Topic
		out.Topic = &t
	}
	if q.Options != nil {
		out.Options = append([]Option(nil), q.Options...)
	}
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
