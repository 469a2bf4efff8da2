package model

// Module is the server-side view of an assessment module.
type Module struct {
	ID           int64      `json:"id"`
	AssessmentID int64      `json:"assessment_id"`
	Title        string     `json:"title"`
	Code         string     `json:"code"`
	TimeLimitMin *int       `json:"time_limit_min,omitempty"`
	Order        int        `json:"order"`
	Questions    []Question `json:"questions,omitempty"`
}

// ModuleRequest is the payload for creating or updating a module.
type ModuleRequest struct {
	AssessmentID int64  `json:"assessment_id" validate:"required"`
	Title        string `json:"title" validate:"required,min=1,max=255"`
	Code         string `json:"code" validate:"required,min=1,max=50"`
	TimeLimitMin *int   `json:"time_limit_min" validate:"omitempty,min=1"`
	Order        int    `json:"order" validate:"min=0"`
}
