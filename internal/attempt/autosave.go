package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/model"
)

// Autosaver batches rapid answer edits into infrequent writes. It is a
// trailing-edge debouncer: every Queue cancels any pending timer and
// schedules a new one, so only the last edit in a burst goes over the
// wire. There is never more than one outstanding scheduled save, though
// an in-flight request from a previous firing is not cancelled when a
// new one fires.
//
// Save failures never surface past this layer: local state stays the
// source of truth for the UI, and the next edit schedules another round
// trip. They are logged at debug level only.
type Autosaver struct {
	api    *api.Client
	clock  Clock
	window time.Duration
	log    zerolog.Logger

	mu        sync.Mutex
	timer     Timer
	attemptID int64
	pending   *model.SaveAnswerRequest
}

// NewAutosaver creates a debouncer with the given window.
func NewAutosaver(client *api.Client, clock Clock, window time.Duration, log zerolog.Logger) *Autosaver {
	return &Autosaver{
		api:    client,
		clock:  clock,
		window: window,
		log:    log.With().Str("component", "autosave").Logger(),
	}
}

// Queue records the latest edit and (re)schedules the save. The previous
// pending edit, if any, is discarded unsent.
func (a *Autosaver) Queue(attemptID int64, req model.SaveAnswerRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.attemptID = attemptID
	a.pending = &req
	a.timer = a.clock.AfterFunc(a.window, a.fire)
}

// Stop cancels any pending scheduled save. In-flight requests run to
// completion without a listener.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}

// fire sends the latest pending edit. Fire-and-forget: errors never
// surface to the user.
func (a *Autosaver) fire() {
	a.mu.Lock()
	req := a.pending
	attemptID := a.attemptID
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()

	if req == nil {
		return
	}

	if err := a.api.SaveAnswer(context.Background(), attemptID, *req); err != nil {
		a.log.Debug().Err(err).
			Int64("attempt_id", attemptID).
			Int64("question_id", req.QuestionID).
			Msg("Autosave dropped")
		return
	}
	a.log.Debug().
		Int64("attempt_id", attemptID).
		Int64("question_id", req.QuestionID).
		Msg("Answer autosaved")
}
