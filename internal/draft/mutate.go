package draft

import (
	"errors"
	"fmt"

	"github.com/assesslyhq/assessly-go/internal/model"
)

// ErrLastModule is returned when a removal would leave the assessment
// with zero modules. The editor keeps at least one module at all times.
var ErrLastModule = errors.New("draft: assessment must keep at least one module")

// Direction selects a neighbor for question reordering.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

// NewState returns a fresh draft: unsaved online assessment seeded with
// one default module, so the at-least-one-module invariant holds from
// the start.
func NewState(title string) State {
	s := State{
		Assessment: Assessment{
			ID:       EntityID{},
			Title:    title,
			Type:     model.AssessmentTypeOnline,
			Order:    1,
			IsActive: true,
		},
	}
	return s.AddModule()
}

// FromAssessment builds an editing state from a persisted assessment
// detail, mapping every server id into the tree. Used when opening an
// existing assessment in the builder.
func FromAssessment(a model.Assessment) State {
	draft := Assessment{
		ID:              PersistedID(a.ID),
		Title:           a.Title,
		Type:            a.Type,
		Order:           a.Order,
		Instructions:    a.Instructions,
		DurationMinutes: cloneIntPtr(a.DurationMinutes),
		IsActive:        a.IsActive,
	}
	for _, m := range a.Modules {
		dm := Module{
			ID:           PersistedID(m.ID),
			Title:        m.Title,
			Code:         m.Code,
			Order:        m.Order,
			TimeLimitMin: cloneIntPtr(m.TimeLimitMin),
		}
		for _, q := range m.Questions {
			dq := Question{
				ID:         PersistedID(q.ID),
				Type:       q.Type,
				Stem:       q.Stem,
				Marks:      q.Marks,
				Difficulty: q.Difficulty,
			}
			if q.Topic != nil {
				t := *q.Topic
				dq.Topic = &t
			}
			if q.Type == model.QuestionTypeMCQ {
				dq.Options = make([]Option, 0, len(q.Options))
				for _, o := range q.Options {
					dq.Options = append(dq.Options, Option{
						ID:        PersistedID(o.ID),
						Label:     o.Label,
						IsCorrect: o.IsCorrect,
					})
				}
			}
			dm.Questions = append(dm.Questions, dq)
		}
		draft.Modules = append(draft.Modules, dm)
	}
	return State{Assessment: draft}
}

// AddModule appends a new module with a fresh temp id and sequential
// default title/code.
func (s State) AddModule() State {
	out := s.Clone()
	n := len(out.Assessment.Modules) + 1
	out.Assessment.Modules = append(out.Assessment.Modules, Module{
		ID:    NewTempID(),
		Title: fmt.Sprintf("Module %d", n),
		Code:  fmt.Sprintf("M%d", n),
		Order: n,
	})
	return out
}

// UpdateModule applies update to the module with the given id. No-op
// when the id is not found.
func (s State) UpdateModule(moduleID EntityID, update func(*Module)) State {
	out := s.Clone()
	if i := out.moduleIndex(moduleID); i >= 0 {
		update(&out.Assessment.Modules[i])
	}
	return out
}

// RemoveModule drops a module from the tree. Removing the last module is
// refused with ErrLastModule and the state is returned unchanged. A
// persisted module's id is recorded for deferred server-side deletion;
// a temp-id module is simply dropped.
func (s State) RemoveModule(moduleID EntityID) (State, error) {
	if len(s.Assessment.Modules) <= 1 {
		return s, ErrLastModule
	}

	out := s.Clone()
	i := out.moduleIndex(moduleID)
	if i < 0 {
		return out, nil
	}

	if moduleID.IsPersisted() {
		out.Pending.Modules = append(out.Pending.Modules, moduleID.Num())
	}
	out.Assessment.Modules = append(out.Assessment.Modules[:i], out.Assessment.Modules[i+1:]...)
	return out, nil
}

// AddQuestion appends a new question of the given type to a module. MCQ
// questions are seeded with exactly two default options; essay questions
// carry no options.
func (s State) AddQuestion(moduleID EntityID, qt model.QuestionType) State {
	out := s.Clone()
	i := out.moduleIndex(moduleID)
	if i < 0 {
		return out
	}

	q := Question{
		ID:         NewTempID(),
		Type:       qt,
		Marks:      1,
		Difficulty: model.DifficultyMedium,
	}
	if qt == model.QuestionTypeMCQ {
		q.Options = []Option{
			{ID: NewTempID(), Label: "Option 1"},
			{ID: NewTempID(), Label: "Option 2"},
		}
	}
	out.Assessment.Modules[i].Questions = append(out.Assessment.Modules[i].Questions, q)
	return out
}

// UpdateQuestion applies update to the question with the given id inside
// the given module. No-op when either id is not found.
func (s State) UpdateQuestion(moduleID, questionID EntityID, update func(*Question)) State {
	out := s.Clone()
	mi, qi := out.questionIndex(moduleID, questionID)
	if qi < 0 {
		return out
	}
	update(&out.Assessment.Modules[mi].Questions[qi])
	return out
}

// RemoveQuestion drops a question, recording a persisted id for deferred
// deletion.
func (s State) RemoveQuestion(moduleID, questionID EntityID) State {
	out := s.Clone()
	mi, qi := out.questionIndex(moduleID, questionID)
	if qi < 0 {
		return out
	}

	if questionID.IsPersisted() {
		out.Pending.Questions = append(out.Pending.Questions, questionID.Num())
	}
	qs := out.Assessment.Modules[mi].Questions
	out.Assessment.Modules[mi].Questions = append(qs[:qi], qs[qi+1:]...)
	return out
}

// DuplicateQuestion clones a question and all its options with fresh
// temp ids, inserts the clone immediately after the original, and tags
// the stem with "(Copy)". No-op when the target is not found.
func (s State) DuplicateQuestion(moduleID, questionID EntityID) State {
	out := s.Clone()
	mi, qi := out.questionIndex(moduleID, questionID)
	if qi < 0 {
		return out
	}

	original := out.Assessment.Modules[mi].Questions[qi]
	dup := original.clone()
	dup.ID = NewTempID()
	dup.Stem = original.Stem + " (Copy)"
	for oi := range dup.Options {
		dup.Options[oi].ID = NewTempID()
	}

	qs := out.Assessment.Modules[mi].Questions
	qs = append(qs[:qi+1], append([]Question{dup}, qs[qi+1:]...)...)
	out.Assessment.Modules[mi].Questions = qs
	return out
}

// MoveQuestion swaps a question with its immediate neighbor in the given
// direction. No-op at either boundary or when the target is not found.
func (s State) MoveQuestion(moduleID, questionID EntityID, dir Direction) State {
	out := s.Clone()
	mi, qi := out.questionIndex(moduleID, questionID)
	if qi < 0 {
		return out
	}

	qs := out.Assessment.Modules[mi].Questions
	switch dir {
	case DirectionUp:
		if qi == 0 {
			return out
		}
		qs[qi-1], qs[qi] = qs[qi], qs[qi-1]
	case DirectionDown:
		if qi == len(qs)-1 {
			return out
		}
		qs[qi], qs[qi+1] = qs[qi+1], qs[qi]
	}
	return out
}

// AddOption appends a new option with a fresh temp id to an MCQ
// question. No-op for unknown ids.
func (s State) AddOption(moduleID, questionID EntityID) State {
	out := s.Clone()
	mi, qi := out.questionIndex(moduleID, questionID)
	if qi < 0 {
		return out
	}

	q := &out.Assessment.Modules[mi].Questions[qi]
	q.Options = append(q.Options, Option{
		ID:    NewTempID(),
		Label: fmt.Sprintf("Option %d", len(q.Options)+1),
	})
	return out
}

// UpdateOption applies update to the option with the given id. No-op
// for unknown ids.
func (s State) UpdateOption(moduleID, questionID, optionID EntityID, update func(*Option)) State {
	out := s.Clone()
	mi, qi, oi := out.optionIndex(moduleID, questionID, optionID)
	if oi < 0 {
		return out
	}
	update(&out.Assessment.Modules[mi].Questions[qi].Options[oi])
	return out
}

// RemoveOption drops an option, recording a persisted id for deferred
// deletion.
func (s State) RemoveOption(moduleID, questionID, optionID EntityID) State {
	out := s.Clone()
	mi, qi, oi := out.optionIndex(moduleID, questionID, optionID)
	if oi < 0 {
		return out
	}

	if optionID.IsPersisted() {
		out.Pending.Options = append(out.Pending.Options, optionID.Num())
	}
	opts := out.Assessment.Modules[mi].Questions[qi].Options
	out.Assessment.Modules[mi].Questions[qi].Options = append(opts[:oi], opts[oi+1:]...)
	return out
}

// ─── Index lookups ──────────────────────────────────────────────────────

func (s State) moduleIndex(moduleID EntityID) int {
	for i, m := range s.Assessment.Modules {
		if m.ID == moduleID {
			return i
		}
	}
	return -1
}

func (s State) questionIndex(moduleID, questionID EntityID) (mi, qi int) {
	mi = s.moduleIndex(moduleID)
	if mi < 0 {
		return -1, -1
	}
	for i, q := range s.Assessment.Modules[mi].Questions {
		if q.ID == questionID {
			return mi, i
		}
	}
	return mi, -1
}

func (s State) optionIndex(moduleID, questionID, optionID EntityID) (mi, qi, oi int) {
	mi, qi = s.questionIndex(moduleID, questionID)
	if qi < 0 {
		return mi, qi, -1
	}
	for i, o := range s.Assessment.Modules[mi].Questions[qi].Options {
		if o.ID == optionID {
			return mi, qi, i
		}
	}
	return mi, qi, -1
}
