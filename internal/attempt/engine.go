package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/model"
)

// Phase is the attempt engine's lifecycle state.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
	PhaseError      Phase = "error"
)

var (
	// ErrSubmitted is returned when an action arrives after the attempt
	// was finalized.
	ErrSubmitted = errors.New("attempt: already submitted")
	// ErrSubmitInFlight is returned when a submit is requested while one
	// is already running.
	ErrSubmitInFlight = errors.New("attempt: submit already in flight")
	// ErrNotStarted is returned when an action arrives before Start
	// succeeded.
	ErrNotStarted = errors.New("attempt: not started")
)

// Answer is the client-local cache of one question's autosave state:
// a selected option for MCQ or free text for essays. It lives only in
// memory and is pushed to the server by the debounced autosaver.
type Answer struct {
	OptionID *int64
	Text     *string
}

// Engine drives a single student run through one assessment: bootstrap,
// countdown, answer edits with autosave, and submit. All methods are
// safe for the UI goroutine plus the internal tick timer.
type Engine struct {
	api      *api.Client
	clock    Clock
	autosave *Autosaver
	tick     time.Duration
	log      zerolog.Logger

	// OnAutoSubmit, when set before Start, is invoked once after the
	// countdown-expiry submit finishes (with its error, nil on success).
	OnAutoSubmit func(error)

	mu           sync.Mutex
	phase        Phase
	assessmentID int64
	attempt      *model.Attempt
	assessment   *model.Assessment
	questions    []model.Question
	answers      map[int64]Answer
	index        int
	deadline     *time.Time
	remaining    *int
	timer        Timer
	expiryFired  bool
}

// NewEngine creates an attempt engine for one assessment. tick is the
// countdown resolution, normally one second.
func NewEngine(client *api.Client, clock Clock, autosaveWindow, tick time.Duration, assessmentID int64, log zerolog.Logger) *Engine {
	return &Engine{
		api:          client,
		clock:        clock,
		autosave:     NewAutosaver(client, clock, autosaveWindow, log),
		tick:         tick,
		log:          log.With().Str("component", "attempt").Int64("assessment_id", assessmentID).Logger(),
		phase:        PhaseLoading,
		assessmentID: assessmentID,
		answers:      make(map[int64]Answer),
	}
}

// Start establishes the attempt: start or resume server-side (the
// endpoint is idempotent), fetch the assessment detail, and compute the
// countdown deadline. Both calls must succeed to enter in_progress; a
// failure is fatal to the session and the caller should navigate away.
func (e *Engine) Start(ctx context.Context) error {
	att, err := e.api.StartAttempt(ctx, e.assessmentID)
	if err != nil {
		e.setPhase(PhaseError)
		return fmt.Errorf("bootstrap attempt: %w", err)
	}

	detail, err := e.api.GetAssessment(ctx, e.assessmentID)
	if err != nil {
		e.setPhase(PhaseError)
		return fmt.Errorf("bootstrap assessment detail: %w", err)
	}

	e.mu.Lock()
	e.attempt = att
	e.assessment = detail
	e.questions = flattenQuestions(detail)
	e.index = 0
	e.computeDeadlineLocked()
	e.phase = PhaseInProgress

	timed := e.remaining != nil
	if timed {
		e.timer = e.clock.AfterFunc(e.tick, e.onTick)
	}
	remaining := 0
	if e.remaining != nil {
		remaining = *e.remaining
	}
	e.mu.Unlock()

	e.log.Info().
		Int64("attempt_id", att.ID).
		Bool("timed", timed).
		Int("remaining_s", remaining).
		Int("questions", len(e.questions)).
		Msg("Attempt started")
	return nil
}

// computeDeadlineLocked derives the countdown from the server-reported
// start time plus the duration. Duration comes from the fetched detail
// or, failing that, the attempt-embedded assessment. Missing either
// input means the attempt runs untimed.
func (e *Engine) computeDeadlineLocked() {
	e.deadline = nil
	e.remaining = nil

	duration := e.assessment.DurationMinutes
	if duration == nil && e.attempt.Assessment != nil {
		duration = e.attempt.Assessment.DurationMinutes
	}
	if duration == nil || e.attempt.StartedAt.IsZero() {
		return
	}

	deadline := e.attempt.StartedAt.Add(time.Duration(*duration) * time.Minute)
	e.deadline = &deadline

	left := int(deadline.Sub(e.clock.Now()) / time.Second)
	if left < 0 {
		left = 0
	}
	e.remaining = &left
}

// onTick runs once per tick interval. Remaining time is recomputed from
// the deadline rather than decremented blindly, so a stalled process
// cannot drift the clock. Expiry submits exactly once even if several
// ticks observe zero.
func (e *Engine) onTick() {
	e.mu.Lock()
	if e.phase != PhaseInProgress || e.deadline == nil {
		e.timer = nil
		e.mu.Unlock()
		return
	}

	left := int(e.deadline.Sub(e.clock.Now()) / time.Second)
	if left < 0 {
		left = 0
	}
	e.remaining = &left

	if left > 0 {
		e.timer = e.clock.AfterFunc(e.tick, e.onTick)
		e.mu.Unlock()
		return
	}

	// Time is up. The guard makes the zero-to-submit transition
	// idempotent against re-entry.
	if e.expiryFired {
		e.timer = nil
		e.mu.Unlock()
		return
	}
	e.expiryFired = true
	e.timer = nil
	e.mu.Unlock()

	e.log.Info().Msg("Time expired, submitting")
	err := e.Submit(context.Background())
	if e.OnAutoSubmit != nil {
		e.OnAutoSubmit(err)
	}
}

// Submit finalizes the attempt. Used by both the user-confirmed action
// and countdown expiry. On failure the engine stays in_progress with the
// timer state as-is, and a manual resubmission remains possible even
// when time already hit zero.
func (e *Engine) Submit(ctx context.Context) error {
	e.mu.Lock()
	switch e.phase {
	case PhaseSubmitted:
		e.mu.Unlock()
		return ErrSubmitted
	case PhaseSubmitting:
		e.mu.Unlock()
		return ErrSubmitInFlight
	case PhaseInProgress:
	default:
		e.mu.Unlock()
		return ErrNotStarted
	}
	attemptID := e.attempt.ID
	e.phase = PhaseSubmitting
	e.mu.Unlock()

	att, err := e.api.SubmitAttempt(ctx, attemptID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.phase = PhaseInProgress
		return err
	}

	e.phase = PhaseSubmitted
	e.attempt = att
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.autosave.Stop()
	e.log.Info().Int64("attempt_id", attemptID).Msg("Attempt submitted")
	return nil
}

// Close cancels local timers on teardown. In-flight requests are not
// cancelled; they complete or fail without a listener.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	e.autosave.Stop()
}

// ─── Answer edits ───────────────────────────────────────────────────────

// SelectOption records an MCQ choice locally and schedules an autosave.
func (e *Engine) SelectOption(questionID, optionID int64) error {
	return e.edit(questionID, Answer{OptionID: &optionID})
}

// SetText records an essay answer locally and schedules an autosave.
func (e *Engine) SetText(questionID int64, text string) error {
	return e.edit(questionID, Answer{Text: &text})
}

func (e *Engine) edit(questionID int64, ans Answer) error {
	e.mu.Lock()
	if e.phase == PhaseSubmitted {
		e.mu.Unlock()
		return ErrSubmitted
	}
	// Local state updates immediately so the UI reflects the edit even
	// before any save fires.
	e.answers[questionID] = ans

	// No attempt id yet means autosave is skipped entirely, not queued.
	if e.attempt == nil {
		e.mu.Unlock()
		return nil
	}
	attemptID := e.attempt.ID
	e.mu.Unlock()

	e.autosave.Queue(attemptID, model.SaveAnswerRequest{
		QuestionID: questionID,
		OptionID:   ans.OptionID,
		TextAnswer: ans.Text,
	})
	return nil
}

// Answer returns the locally cached answer for a question.
func (e *Engine) Answer(questionID int64) (Answer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.answers[questionID]
	return a, ok
}

// ─── Navigation ─────────────────────────────────────────────────────────
//
// Navigation is a pure index clamp into the fetched question list; it
// never mutates answer state.

// Next moves to the following question, clamped at the last one.
func (e *Engine) Next() { e.Jump(e.Index() + 1) }

// Prev moves to the preceding question, clamped at the first one.
func (e *Engine) Prev() { e.Jump(e.Index() - 1) }

// Jump moves directly to a question index, clamped to [0, count-1].
func (e *Engine) Jump(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		e.index = 0
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(e.questions)-1 {
		i = len(e.questions) - 1
	}
	e.index = i
}

// Index returns the current question index.
func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Current returns the question at the current index.
func (e *Engine) Current() (model.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return model.Question{}, false
	}
	return e.questions[e.index], true
}

// Questions returns the fetched question list in presentation order.
func (e *Engine) Questions() []model.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Question(nil), e.questions...)
}

// ─── State inspection ───────────────────────────────────────────────────

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Remaining returns the countdown in seconds, or nil for an untimed
// attempt.
func (e *Engine) Remaining() *int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.remaining == nil {
		return nil
	}
	v := *e.remaining
	return &v
}

// Attempt returns the server-side attempt mirror, nil before Start
// succeeds.
func (e *Engine) Attempt() *model.Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempt
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

// flattenQuestions orders questions module by module, as presented to
// the student.
func flattenQuestions(a *model.Assessment) []model.Question {
	var qs []model.Question
	for _, m := range a.Modules {
		qs = append(qs, m.Questions...)
	}
	return qs
}
