package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assesslyhq/assessly-go/internal/api"
	"github.com/assesslyhq/assessly-go/internal/apitest"
	"github.com/assesslyhq/assessly-go/internal/config"
	"github.com/assesslyhq/assessly-go/internal/model"
)

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)

	client := api.New(&config.Config{
		BaseURL:     srv.URL(),
		HTTPTimeout: 5 * time.Second,
	}, zerolog.Nop())
	return client, srv
}

func TestCreateAssessmentDecodesEnvelope(t *testing.T) {
	client, _ := newClient(t)

	created, err := client.CreateAssessment(context.Background(), model.AssessmentRequest{
		Title: "Physics Final",
		Type:  model.AssessmentTypeOnline,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("server id missing from decoded response")
	}
	if created.Title != "Physics Final" {
		t.Fatalf("expected title round trip, got %q", created.Title)
	}
}

func TestStructuredErrorSurfaces(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.GetAssessment(context.Background(), 12345)
	if err == nil {
		t.Fatal("expected not-found error")
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error in chain, got %T: %v", err, err)
	}
	if apiErr.Code != api.ErrNotFound || apiErr.Status != 404 {
		t.Fatalf("expected 404 NOT_FOUND, got %d %s", apiErr.Status, apiErr.Code)
	}
	if !api.IsNotFound(apiErr) {
		t.Fatal("IsNotFound must match")
	}
}

func TestTransportErrorHasNoStatus(t *testing.T) {
	srv := apitest.NewServer()
	url := srv.URL()
	srv.Close() // connection refused from here on

	client := api.New(&config.Config{
		BaseURL:     url,
		HTTPTimeout: time.Second,
	}, zerolog.Nop())

	_, err := client.ListAssessments(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T: %v", err, err)
	}
	if apiErr.Code != api.ErrTransport || apiErr.Status != 0 {
		t.Fatalf("expected transport error without status, got %+v", apiErr)
	}
}

func TestSubmitTwiceConflicts(t *testing.T) {
	client, srv := newClient(t)
	ctx := context.Background()

	aID := srv.SeedAssessment("Quiz", nil, []string{"Q1"})
	att, err := client.StartAttempt(ctx, aID)
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if _, err := client.SubmitAttempt(ctx, att.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = client.SubmitAttempt(ctx, att.ID)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Code != api.ErrAttemptSubmitted {
		t.Fatalf("expected ATTEMPT_ALREADY_SUBMITTED, got %v", err)
	}
}
