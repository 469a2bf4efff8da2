package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/apitest"
	"github.com/assesslyhq/assessly-go/internal/config"
	"github.com/assesslyhq/assessly-go/internal/model"
)

const window = 400 * time.Millisecond

func newAutosaveFixture(t *testing.T) (*Autosaver, *fakeClock, *apitest.Server, int64) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client := api.New(&config.Config{
		BaseURL:     srv.URL(),
		HTTPTimeout: 5 * time.Second,
	}, zerolog.Nop())

	clock := newFakeClock(time.Now())
	saver := NewAutosaver(client, clock, window, zerolog.Nop())

	// A live attempt to save against.
	aID := srv.SeedAssessment("Quiz", nil, []string{"Q1"})
	att, err := client.StartAttempt(context.Background(), aID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	return saver, clock, srv, att.ID
}

func optionAnswer(questionID, optionID int64) model.SaveAnswerRequest {
	return model.SaveAnswerRequest{QuestionID: questionID, OptionID: &optionID}
}

func TestAutosaveDebouncesBursts(t *testing.T) {
	saver, clock, srv, attemptID := newAutosaveFixture(t)

	// Three rapid edits inside one window: only the last goes out.
	saver.Queue(attemptID, optionAnswer(3, 10))
	clock.Advance(100 * time.Millisecond)
	saver.Queue(attemptID, optionAnswer(3, 11))
	clock.Advance(100 * time.Millisecond)
	saver.Queue(attemptID, optionAnswer(3, 12))
	clock.Advance(window)

	saved := srv.SavedAnswers(attemptID)
	if len(saved) != 1 {
		t.Fatalf("expected exactly 1 save request, got %d", len(saved))
	}
	if saved[0].OptionID == nil || *saved[0].OptionID != 12 {
		t.Fatalf("expected the last edit's value (12), got %+v", saved[0])
	}
}

func TestAutosaveSeparateBurstsEachFire(t *testing.T) {
	saver, clock, srv, attemptID := newAutosaveFixture(t)

	saver.Queue(attemptID, optionAnswer(3, 10))
	clock.Advance(window)
	saver.Queue(attemptID, optionAnswer(3, 11))
	clock.Advance(window)

	saved := srv.SavedAnswers(attemptID)
	if len(saved) != 2 {
		t.Fatalf("expected 2 save requests, got %d", len(saved))
	}
}

func TestAutosaveAcrossQuestionsLastEditWins(t *testing.T) {
	saver, clock, srv, attemptID := newAutosaveFixture(t)

	// Edits to different questions share the one debounce timer; only
	// the latest edit survives a burst.
	saver.Queue(attemptID, optionAnswer(3, 10))
	text := "essay draft"
	saver.Queue(attemptID, model.SaveAnswerRequest{QuestionID: 4, TextAnswer: &text})
	clock.Advance(window)

	saved := srv.SavedAnswers(attemptID)
	if len(saved) != 1 {
		t.Fatalf("expected 1 save request, got %d", len(saved))
	}
	if saved[0].QuestionID != 4 || saved[0].TextAnswer == nil || *saved[0].TextAnswer != "essay draft" {
		t.Fatalf("expected the question-4 text edit, got %+v", saved[0])
	}
}

func TestAutosaveStopCancelsPending(t *testing.T) {
	saver, clock, srv, attemptID := newAutosaveFixture(t)

	saver.Queue(attemptID, optionAnswer(3, 10))
	saver.Stop()
	clock.Advance(2 * window)

	if saved := srv.SavedAnswers(attemptID); len(saved) != 0 {
		t.Fatalf("expected no saves after Stop, got %d", len(saved))
	}
}

func TestAutosaveFailureIsSilent(t *testing.T) {
	saver, clock, srv, attemptID := newAutosaveFixture(t)

	srv.FailOnce("POST", "/attempts/:id/save", 1)
	saver.Queue(attemptID, optionAnswer(3, 10))
	clock.Advance(window) // fires, fails, swallowed

	// The next edit simply schedules another round trip.
	saver.Queue(attemptID, optionAnswer(3, 11))
	clock.Advance(window)

	saved := srv.SavedAnswers(attemptID)
	if len(saved) != 1 {
		t.Fatalf("expected the retried edit only, got %d", len(saved))
	}
	if *saved[0].OptionID != 11 {
		t.Fatalf("expected option 11, got %+v", saved[0])
	}
}
