package realtime

import (
	"errors"

	"github.com/hiredeck/hiredeck-backend/internal/model"
)

// Role classifies a room member. Candidates own the code buffer and may
// run code; interviewers observe and chat.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// ErrNotAssigned is returned when an authenticated principal is not the
// invitation's assigned reviewer.
var ErrNotAssigned = errors.New("principal is not the assigned reviewer")

// ResolveRole classifies a connecting principal for an invitation's room.
// A nil reviewerID is the candidate flow (access is the link itself); an
// authenticated reviewer must match the assigned reviewer exactly.
func ResolveRole(reviewerID *int64, inv *model.Invitation) (Role, error) {
	if reviewerID == nil {
		return RoleCandidate, nil
	}
	if inv.AssignedReviewerID != nil && *inv.AssignedReviewerID == *reviewerID {
		return RoleInterviewer, nil
	}
	return "", ErrNotAssigned
}
