package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMCQ   QuestionType = "MCQ"
	QuestionTypeEssay QuestionType = "ESSAY"
)

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is the server-side view of a question. Options are present
// only for MCQ questions.
type Question struct {
	ID           int64        `json:"id"`
	ModuleID     int64        `json:"module_id"`
	AssessmentID int64        `json:"assessment_id"`
	Type         QuestionType `json:"type"`
	Stem         string       `json:"stem"`
	Marks        int          `json:"marks"`
	Difficulty   Difficulty   `json:"difficulty"`
	Topic        *string      `json:"topic,omitempty"`
	Options      []Option     `json:"options,omitempty"`
}

// Option is the server-side view of an MCQ option.
type Option struct {
	ID        int64  `json:"id"`
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRequest is the payload for creating or updating a question.
// The marks value is dual-named on the wire: the API accepts "marks" and
// older deployments read "points", so both are always sent with the same
// value. Options are honored only on create; question updates never touch
// existing options.
type QuestionRequest struct {
	ModuleID     int64           `json:"module_id" validate:"required"`
	AssessmentID int64           `json:"assessment_id" validate:"required"`
	Type         QuestionType    `json:"type" validate:"required,oneof=MCQ ESSAY"`
	Stem         string          `json:"stem" validate:"required,min=1,max=5000"`
	Marks        int             `json:"marks" validate:"min=0"`
	Points       int             `json:"points" validate:"min=0"`
	Difficulty   Difficulty      `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Topic        *string         `json:"topic" validate:"omitempty,max=100"`
	Options      []OptionRequest `json:"options,omitempty" validate:"omitempty,dive"`
}

// OptionRequest is the payload for one MCQ option, nested in a question
// create or sent alone to the add-option endpoint.
type OptionRequest struct {
	Label     string `json:"label" validate:"required,min=1,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}
