package model

import "time"

// Answer is the stored response of one invitation to one question.
// (invitation_id, question_id) is unique; submissions before completion
// overwrite the row. Score stays NULL until the invitation is sealed.
type Answer struct {
	ID           int64     `json:"id"`
	InvitationID int64     `json:"invitation_id"`
	QuestionID   int64     `json:"question_id"`
	Response     string    `json:"response"`
	Score        *int      `json:"score,omitempty"`
	Switches     int       `json:"switches"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TabSwitchEvent is one focus-loss/regain record, append-only, used for
// proctoring visibility only.
type TabSwitchEvent struct {
	ID           int64     `json:"id"`
	InvitationID int64     `json:"invitation_id"`
	State        string    `json:"state"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// SubmitAnswerRequest is the payload for answering a question.
// For multiple_choice questions Response must be a JSON array of choice ids.
type SubmitAnswerRequest struct {
	Response string `json:"response" binding:"required"`
	Switches *int   `json:"switches" binding:"omitempty,min=0"`
}

// LogSwitchRequest reports a visibility change of the candidate's tab.
type LogSwitchRequest struct {
	State string `json:"state" binding:"required,oneof=hidden visible"`
}
