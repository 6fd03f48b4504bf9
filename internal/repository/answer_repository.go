package repository

import (
	"context"

	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles answer and tab-switch data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or overwrites the answer for (invitation, question).
// Resubmissions before completion replace the stored response.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.Answer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO answers (invitation_id, question_id, response, switches)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (invitation_id, question_id)
		 DO UPDATE SET response = EXCLUDED.response,
		               switches = EXCLUDED.switches,
		               updated_at = NOW()
		 RETURNING id, updated_at`,
		a.InvitationID, a.QuestionID, a.Response, a.Switches,
	).Scan(&a.ID, &a.UpdatedAt)
}

// GetByQuestion retrieves the stored answer for one question of an
// invitation, if any.
func (r *AnswerRepository) GetByQuestion(ctx context.Context, invitationID, questionID int64) (*model.Answer, error) {
	a := &model.Answer{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, invitation_id, question_id, response, score, switches, updated_at
		 FROM answers
		 WHERE invitation_id = $1 AND question_id = $2`, invitationID, questionID,
	).Scan(&a.ID, &a.InvitationID, &a.QuestionID, &a.Response, &a.Score, &a.Switches, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByInvitation retrieves all stored answers of an invitation.
func (r *AnswerRepository) ListByInvitation(ctx context.Context, invitationID int64) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, invitation_id, question_id, response, score, switches, updated_at
		 FROM answers
		 WHERE invitation_id = $1
		 ORDER BY question_id`, invitationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.InvitationID, &a.QuestionID, &a.Response, &a.Score, &a.Switches, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// UpdateScore persists the final score of one answer.
func (r *AnswerRepository) UpdateScore(ctx context.Context, answerID int64, score int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE answers SET score = $1 WHERE id = $2`, score, answerID)
	return err
}

// ListTabSwitchEvents returns the proctoring log of an invitation, oldest first.
func (r *AnswerRepository) ListTabSwitchEvents(ctx context.Context, invitationID int64) ([]model.TabSwitchEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, invitation_id, state, recorded_at
		 FROM tab_switch_events
		 WHERE invitation_id = $1
		 ORDER BY recorded_at`, invitationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.TabSwitchEvent
	for rows.Next() {
		var e model.TabSwitchEvent
		if err := rows.Scan(&e.ID, &e.InvitationID, &e.State, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
