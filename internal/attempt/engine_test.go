package attempt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/apitest"
	"github.com/assesslyhq/assessly-go/internal/config"
)

func newEngineFixture(t *testing.T, durationMinutes *int, startedAgo time.Duration) (*Engine, *fakeClock, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client := api.New(&config.Config{
		BaseURL:     srv.URL(),
		HTTPTimeout: 5 * time.Second,
	}, zerolog.Nop())

	now := time.Now()
	clock := newFakeClock(now)
	srv.SetStartOverride(now.Add(-startedAgo))

	aID := srv.SeedAssessment("Timed Quiz", durationMinutes, []string{"Q1", "Q2", "Q3"})
	engine := NewEngine(client, clock, 400*time.Millisecond, time.Second, aID, zerolog.Nop())
	t.Cleanup(engine.Close)
	return engine, clock, srv
}

func intPtr(v int) *int { return &v }

func TestBootstrapComputesRemaining(t *testing.T) {
	// 30 minute duration, started 29 minutes ago: about a minute left.
	engine, _, _ := newEngineFixture(t, intPtr(30), 29*time.Minute)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if engine.Phase() != PhaseInProgress {
		t.Fatalf("expected in_progress, got %s", engine.Phase())
	}

	left := engine.Remaining()
	if left == nil {
		t.Fatal("expected a timed attempt")
	}
	if *left < 55 || *left > 61 {
		t.Fatalf("expected ≈60s remaining, got %d", *left)
	}
}

func TestUntimedAttemptHasNoCountdown(t *testing.T) {
	engine, clock, srv := newEngineFixture(t, nil, 0)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if engine.Remaining() != nil {
		t.Fatal("expected nil remaining for untimed attempt")
	}
	if clock.pendingTimers() != 0 {
		t.Fatalf("no countdown timer may be armed, found %d", clock.pendingTimers())
	}

	// Submit stays available without a countdown.
	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if engine.Phase() != PhaseSubmitted {
		t.Fatalf("expected submitted, got %s", engine.Phase())
	}
	if srv.CountCalls("POST", "/attempts/:id/submit") != 1 {
		t.Fatalf("expected 1 submit call, got %d", srv.CountCalls("POST", "/attempts/:id/submit"))
	}
}

func TestExpirySubmitsExactlyOnce(t *testing.T) {
	engine, clock, srv := newEngineFixture(t, intPtr(1), 0)

	var autoErrs []error
	engine.OnAutoSubmit = func(err error) { autoErrs = append(autoErrs, err) }

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Run well past the deadline: many ticks observe zero, submit fires once.
	clock.Advance(3 * time.Minute)

	if engine.Phase() != PhaseSubmitted {
		t.Fatalf("expected submitted, got %s", engine.Phase())
	}
	if n := srv.CountCalls("POST", "/attempts/:id/submit"); n != 1 {
		t.Fatalf("expected exactly 1 submit call, got %d", n)
	}
	if len(autoErrs) != 1 || autoErrs[0] != nil {
		t.Fatalf("expected one successful auto-submit callback, got %v", autoErrs)
	}
	if left := engine.Remaining(); left == nil || *left != 0 {
		t.Fatalf("expected remaining 0, got %v", left)
	}
}

func TestExpirySubmitFailureAllowsManualRetry(t *testing.T) {
	engine, clock, srv := newEngineFixture(t, intPtr(1), 0)

	var autoErr error
	engine.OnAutoSubmit = func(err error) { autoErr = err }

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	srv.FailOnce("POST", "/attempts/:id/submit", 1)
	clock.Advance(2 * time.Minute)

	if autoErr == nil {
		t.Fatal("expected the auto-submit to fail")
	}
	if engine.Phase() != PhaseInProgress {
		t.Fatalf("failed submit must stay in_progress, got %s", engine.Phase())
	}

	// More time passing must not re-trigger the expiry submit.
	clock.Advance(time.Minute)
	if n := srv.CountCalls("POST", "/attempts/:id/submit"); n != 1 {
		t.Fatalf("expiry re-fired: %d submit calls", n)
	}

	// Manual resubmission remains possible.
	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("manual retry: %v", err)
	}
	if engine.Phase() != PhaseSubmitted {
		t.Fatalf("expected submitted, got %s", engine.Phase())
	}
}

func TestSubmitAfterSubmittedIsRejected(t *testing.T) {
	engine, _, _ := newEngineFixture(t, nil, 0)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := engine.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := engine.Submit(context.Background()); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
}

func TestBootstrapFailureEntersErrorPhase(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client := api.New(&config.Config{
		BaseURL:     srv.URL(),
		HTTPTimeout: 5 * time.Second,
	}, zerolog.Nop())

	// No such assessment seeded.
	engine := NewEngine(client, newFakeClock(time.Now()), 400*time.Millisecond, time.Second, 999, zerolog.Nop())
	t.Cleanup(engine.Close)

	if err := engine.Start(context.Background()); err == nil {
		t.Fatal("expected bootstrap to fail")
	}
	if engine.Phase() != PhaseError {
		t.Fatalf("expected error phase, got %s", engine.Phase())
	}
}

func TestNavigationClamps(t *testing.T) {
	engine, _, _ := newEngineFixture(t, nil, 0)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if engine.Index() != 0 {
		t.Fatalf("expected index 0 at start, got %d", engine.Index())
	}

	engine.Prev()
	if engine.Index() != 0 {
		t.Fatal("Prev at first question must be a no-op")
	}

	engine.Jump(99)
	if engine.Index() != 2 {
		t.Fatalf("Jump past the end must clamp to last, got %d", engine.Index())
	}

	engine.Next()
	if engine.Index() != 2 {
		t.Fatal("Next at last question must be a no-op")
	}

	engine.Jump(-4)
	if engine.Index() != 0 {
		t.Fatalf("negative jump must clamp to 0, got %d", engine.Index())
	}
}

func TestEditUpdatesLocalStateImmediately(t *testing.T) {
	engine, clock, srv := newEngineFixture(t, nil, 0)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	q, _ := engine.Current()
	if err := engine.SelectOption(q.ID, q.Options[1].ID); err != nil {
		t.Fatalf("select: %v", err)
	}

	// Local cache reflects the choice before any save fires.
	ans, ok := engine.Answer(q.ID)
	if !ok || ans.OptionID == nil || *ans.OptionID != q.Options[1].ID {
		t.Fatalf("local answer missing, got %+v", ans)
	}
	if n := srv.CountCalls("POST", "/attempts/:id/save"); n != 0 {
		t.Fatalf("save fired before the debounce window: %d calls", n)
	}

	clock.Advance(400 * time.Millisecond)
	if n := srv.CountCalls("POST", "/attempts/:id/save"); n != 1 {
		t.Fatalf("expected 1 autosave after the window, got %d", n)
	}
}

func TestStartResumesExistingAttempt(t *testing.T) {
	engine, _, srv := newEngineFixture(t, nil, 0)
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	first := engine.Attempt().ID

	client := api.New(&config.Config{
		BaseURL:     srv.URL(),
		HTTPTimeout: 5 * time.Second,
	}, zerolog.Nop())
	again, err := client.StartAttempt(context.Background(), engine.Attempt().AssessmentID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.ID != first {
		t.Fatalf("start is not idempotent: %d then %d", first, again.ID)
	}
}
