package builder

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/draft"
	"github.com/assesslyhq/assessly-go/internal/model"
	"github.com/assesslyhq/assessly-go/internal/validator"
)

// ValidationError reports client-side validation failures caught before
// any network call. Fully recoverable: the draft is untouched.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "builder: validation failed: " + strings.Join(parts, "; ")
}

// Engine persists a complete draft tree to the platform API in one
// user-triggered save, replacing every temp id with its server id.
type Engine struct {
	api *api.Client
	log zerolog.Logger
}

// New creates a save engine.
func New(client *api.Client, log zerolog.Logger) *Engine {
	return &Engine{
		api: client,
		log: log.With().Str("component", "builder").Logger(),
	}
}

// Save reconciles the draft against the server, strictly ordered:
//
//  1. validate (fail fast, no network)
//  2. upsert the assessment itself
//  3. deletions, leaf-to-root: options → questions → modules; requests
//     within a phase run concurrently, phase boundaries are sequential
//  4. clear the pending-deletion sets
//  5. modules in parallel; each module's own question/option work runs
//     after its own id is resolved
//  6. questions in parallel within a module: create with nested options,
//     or update fields then add any still-temp options one by one
//
// Resolved ids are merged into the returned state incrementally, so a
// failure in a later phase keeps every id acquired so far and a retry
// never re-creates already-persisted entities. Pending deletions are
// cleared only once the deletion phase has fully succeeded. There is no
// rollback of phases that already applied and no automatic retry: the
// caller's next Save runs the same plan again.
func (e *Engine) Save(ctx context.Context, st draft.State) (draft.State, error) {
	req := assessmentRequest(st.Assessment)
	if fields := validator.Struct(req); fields != nil {
		return st, &ValidationError{Fields: fields}
	}

	work := st.Clone()

	// Upsert the root first; children need the assessment id.
	if work.Assessment.ID.IsPersisted() {
		if _, err := e.api.UpdateAssessment(ctx, work.Assessment.ID.Num(), req); err != nil {
			return work, err
		}
	} else {
		created, err := e.api.CreateAssessment(ctx, req)
		if err != nil {
			return work, err
		}
		work.Assessment.ID = draft.PersistedID(created.ID)
	}

	// Deletions run leaf-to-root so a module delete never races the
	// removal of rows the server may cascade-protect.
	if err := e.deleteBatch(ctx, work.Pending.Options, e.api.DeleteOption); err != nil {
		return work, err
	}
	if err := e.deleteBatch(ctx, work.Pending.Questions, e.api.DeleteQuestion); err != nil {
		return work, err
	}
	if err := e.deleteBatch(ctx, work.Pending.Modules, e.api.DeleteModule); err != nil {
		return work, err
	}
	work.Pending = draft.PendingDeletions{}

	assessmentID := work.Assessment.ID.Num()

	g, gctx := errgroup.WithContext(ctx)
	for i := range work.Assessment.Modules {
		// Each goroutine owns exactly one module slot; resolved ids are
		// written in place with no shared mutation.
		m := &work.Assessment.Modules[i]
		g.Go(func() error {
			return e.syncModule(gctx, assessmentID, m)
		})
	}
	if err := g.Wait(); err != nil {
		return work, err
	}

	e.log.Info().
		Int64("assessment_id", assessmentID).
		Int("modules", len(work.Assessment.Modules)).
		Int("total_marks", work.Assessment.TotalMarks()).
		Msg("Draft saved")
	return work, nil
}

// deleteBatch fires one delete per id, all concurrent, and waits for the
// whole phase.
func (e *Engine) deleteBatch(ctx context.Context, ids []int64, del func(context.Context, int64) error) error {
	if len(ids) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return del(gctx, id)
		})
	}
	return g.Wait()
}

// syncModule resolves one module's id, then reconciles its questions.
func (e *Engine) syncModule(ctx context.Context, assessmentID int64, m *draft.Module) error {
	req := moduleRequest(assessmentID, *m)
	if m.ID.IsPersisted() {
		if _, err := e.api.UpdateModule(ctx, m.ID.Num(), req); err != nil {
			return err
		}
	} else {
		created, err := e.api.CreateModule(ctx, req)
		if err != nil {
			return err
		}
		m.ID = draft.PersistedID(created.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range m.Questions {
		q := &m.Questions[i]
		g.Go(func() error {
			return e.syncQuestion(gctx, assessmentID, m.ID.Num(), q)
		})
	}
	return g.Wait()
}

// syncQuestion creates or updates one question. Creates include the
// options inline and splice the returned ids back positionally. Updates
// touch only question fields; still-temp options go through the
// add-option endpoint one by one. Persisted options are left untouched:
// the platform exposes no update-option endpoint, so label or
// correctness edits to an already-saved option do not round-trip.
func (e *Engine) syncQuestion(ctx context.Context, assessmentID, moduleID int64, q *draft.Question) error {
	if !q.ID.IsPersisted() {
		created, err := e.api.CreateQuestion(ctx, questionRequest(assessmentID, moduleID, *q, true))
		if err != nil {
			return err
		}
		q.ID = draft.PersistedID(created.ID)
		for i := range q.Options {
			if i < len(created.Options) {
				q.Options[i].ID = draft.PersistedID(created.Options[i].ID)
			}
		}
		return nil
	}

	if _, err := e.api.UpdateQuestion(ctx, q.ID.Num(), questionRequest(assessmentID, moduleID, *q, false)); err != nil {
		return err
	}
	for i := range q.Options {
		if q.Options[i].ID.IsPersisted() {
			continue
		}
		created, err := e.api.AddOption(ctx, q.ID.Num(), optionRequest(q.Options[i]))
		if err != nil {
			return err
		}
		q.Options[i].ID = draft.PersistedID(created.ID)
	}
	return nil
}

// ─── Draft → wire payload mapping ───────────────────────────────────────

func assessmentRequest(a draft.Assessment) model.AssessmentRequest {
	total := a.TotalMarks()
	return model.AssessmentRequest{
		Title:           a.Title,
		Type:            a.Type,
		Order:           a.Order,
		Instructions:    a.Instructions,
		TotalMarks:      &total,
		DurationMinutes: a.DurationMinutes,
		IsActive:        a.IsActive,
	}
}

func moduleRequest(assessmentID int64, m draft.Module) model.ModuleRequest {
	return model.ModuleRequest{
		AssessmentID: assessmentID,
		Title:        m.Title,
		Code:         m.Code,
		TimeLimitMin: m.TimeLimitMin,
		Order:        m.Order,
	}
}

func questionRequest(assessmentID, moduleID int64, q draft.Question, withOptions bool) model.QuestionRequest {
	req := model.QuestionRequest{
		ModuleID:     moduleID,
		AssessmentID: assessmentID,
		Type:         q.Type,
		Stem:         q.Stem,
		Marks:        q.Marks,
		Points:       q.Marks,
		Difficulty:   q.Difficulty,
		Topic:        q.Topic,
	}
	if withOptions {
		for _, o := range q.Options {
			req.Options = append(req.Options, optionRequest(o))
		}
	}
	return req
}

func optionRequest(o draft.Option) model.OptionRequest {
	return model.OptionRequest{
		Label:     o.Label,
		IsCorrect: o.IsCorrect,
	}
}
