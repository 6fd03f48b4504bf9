package model

// QuestionType enumerates the supported auto-gradable question kinds.
type QuestionType string

const (
	QuestionTypeFreeText       QuestionType = "free_text"
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeCode           QuestionType = "code"
)

// Complexity enumerates question difficulty labels.
type Complexity string

const (
	ComplexityEasy   Complexity = "easy"
	ComplexityMedium Complexity = "medium"
	ComplexityHard   Complexity = "hard"
)

// Question represents a single assessment question.
// CorrectAnswer semantics depend on the type: literal text for free_text,
// a choice id for single_choice, a JSON array of choice ids for
// multiple_choice, and expected stdout for code.
type Question struct {
	ID            int64        `json:"id"`
	Text          string       `json:"text"`
	QuestionType  QuestionType `json:"question_type"`
	Complexity    Complexity   `json:"complexity"`
	CorrectAnswer string       `json:"-"`
	Stdin         string       `json:"-"`
	Choices       []Choice     `json:"choices,omitempty"`
}

// Choice is one selectable option of a choice-type question.
type Choice struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"-"`
	Position  int    `json:"position"`
}

// QuestionStub is the reduced projection sent to realtime interview
// members and session progress listings.
type QuestionStub struct {
	ID           int64        `json:"id"`
	Text         string       `json:"text"`
	QuestionType QuestionType `json:"question_type"`
	Complexity   Complexity   `json:"complexity"`
}

// Stub returns the public projection of a question.
func (q *Question) Stub() QuestionStub {
	return QuestionStub{
		ID:           q.ID,
		Text:         q.Text,
		QuestionType: q.QuestionType,
		Complexity:   q.Complexity,
	}
}
