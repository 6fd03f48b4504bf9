package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvitationRepository handles invitation data access.
type InvitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository creates a new InvitationRepository.
func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

const invitationColumns = `id, link_token, candidate_id, template_id, interview_type,
	 assigned_reviewer_id, sent, completed, created_at, completed_at`

func scanInvitation(row interface{ Scan(dest ...any) error }) (*model.Invitation, error) {
	inv := &model.Invitation{}
	err := row.Scan(
		&inv.ID, &inv.LinkToken, &inv.CandidateID, &inv.TemplateID, &inv.InterviewType,
		&inv.AssignedReviewerID, &inv.Sent, &inv.Completed, &inv.CreatedAt, &inv.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByLink retrieves an invitation by its unguessable link token.
func (r *InvitationRepository) GetByLink(ctx context.Context, link uuid.UUID) (*model.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE link_token = $1`, link))
}

// GetByID retrieves an invitation by its primary key.
func (r *InvitationRepository) GetByID(ctx context.Context, id int64) (*model.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id))
}

// Create inserts a new invitation. The link token is generated by the caller.
func (r *InvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO invitations (link_token, candidate_id, template_id, interview_type, assigned_reviewer_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		inv.LinkToken, inv.CandidateID, inv.TemplateID, inv.InterviewType, inv.AssignedReviewerID,
	).Scan(&inv.ID, &inv.CreatedAt)
}

// MarkSent flips sent to true, once. Returns false when the flag was
// already set (the flip is monotonic).
func (r *InvitationRepository) MarkSent(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invitations SET sent = TRUE WHERE id = $1 AND NOT sent`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Complete atomically seals the invitation. Returns true only for the one
// caller that flips completed from false to true; concurrent callers see
// false and must not grade.
func (r *InvitationRepository) Complete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE invitations SET completed = TRUE, completed_at = NOW()
		 WHERE id = $1 AND NOT completed`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
