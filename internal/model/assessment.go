package model

// AssessmentType enumerates the delivery modes an assessment can have.
type AssessmentType string

const (
	AssessmentTypeOnline  AssessmentType = "ONLINE"
	AssessmentTypeOffline AssessmentType = "OFFLINE"
)

// Assessment is the server-side view of an assessment. Detail responses
// include the nested module/question/option tree; list responses omit it.
type Assessment struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Type            AssessmentType `json:"type"`
	Order           int            `json:"order"`
	Instructions    string         `json:"instructions,omitempty"`
	TotalMarks      *int           `json:"total_marks,omitempty"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	IsActive        bool           `json:"is_active"`
	Modules         []Module       `json:"modules,omitempty"`
}

// AssessmentRequest is the payload for creating or updating an assessment.
// TotalMarks carries the client-computed sum over all question marks; the
// server stores it as sent rather than recomputing.
type AssessmentRequest struct {
	Title           string         `json:"title" validate:"required,min=1,max=255"`
	Type            AssessmentType `json:"type" validate:"required,oneof=ONLINE OFFLINE"`
	Order           int            `json:"order" validate:"min=0"`
	Instructions    string         `json:"instructions" validate:"max=5000"`
	TotalMarks      *int           `json:"total_marks" validate:"omitempty,min=0"`
	DurationMinutes *int           `json:"duration_minutes" validate:"omitempty,min=1,max=480"`
	IsActive        bool           `json:"is_active"`
}
