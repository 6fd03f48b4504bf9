package model

// TestTemplate is an ordered set of questions with an optional time limit.
// TimeLimitMinutes of 0 means unlimited.
type TestTemplate struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
}

// TemplateQuestion binds a question into a template at a given position.
// (template_id, question_id) is unique; ordering is by Position ascending.
type TemplateQuestion struct {
	TemplateID int64 `json:"template_id"`
	QuestionID int64 `json:"question_id"`
	Position   int   `json:"position"`
}
