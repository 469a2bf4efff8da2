package model

import "time"

// Attempt is a server-tracked single run of a student through an
// assessment. The client never mutates these fields directly; it only
// appends answers and triggers submit.
type Attempt struct {
	ID           int64       `json:"id"`
	AssessmentID int64       `json:"assessment_id"`
	StudentID    int64       `json:"student_id"`
	StartedAt    time.Time   `json:"started_at"`
	SubmittedAt  *time.Time  `json:"submitted_at,omitempty"`
	Assessment   *Assessment `json:"assessment,omitempty"`
}

// SaveAnswerRequest is the per-question autosave payload. Exactly one of
// OptionID (MCQ) or TextAnswer (essay) is set.
type SaveAnswerRequest struct {
	QuestionID int64   `json:"question_id" validate:"required"`
	OptionID   *int64  `json:"option_id,omitempty"`
	TextAnswer *string `json:"text_answer,omitempty"`
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}
