package model

import (
	"time"

	"github.com/google/uuid"
)

// InterviewType distinguishes plain assessments from live technical
// interviews (which get a realtime collaboration room).
type InterviewType string

const (
	InterviewTypeGeneral   InterviewType = "general"
	InterviewTypeTechnical InterviewType = "technical"
)

// Invitation binds one candidate to one test template via an unguessable
// link token. Both Sent and Completed flip false→true exactly once and
// are never reset.
type Invitation struct {
	ID                 int64         `json:"id"`
	LinkToken          uuid.UUID     `json:"link_token"`
	CandidateID        int64         `json:"candidate_id"`
	TemplateID         int64         `json:"template_id"`
	InterviewType      InterviewType `json:"interview_type"`
	AssignedReviewerID *int64        `json:"assigned_reviewer_id,omitempty"`
	Sent               bool          `json:"sent"`
	Completed          bool          `json:"completed"`
	CreatedAt          time.Time     `json:"created_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
}

// CreateInvitationRequest is the payload for creating a new invitation.
// A technical interview must carry an assigned reviewer for room access
// control.
type CreateInvitationRequest struct {
	CandidateID        int64  `json:"candidate_id" binding:"required"`
	TemplateID         int64  `json:"template_id" binding:"required"`
	InterviewType      string `json:"interview_type" binding:"omitempty,oneof=general technical"`
	AssignedReviewerID *int64 `json:"assigned_reviewer_id" binding:"omitempty"`
}
