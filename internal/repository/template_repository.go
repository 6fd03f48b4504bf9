package repository

import (
	"context"

	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TemplateRepository gives read-only access to the question bank and
// template aggregates. The session engine never writes here.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// GetTemplate retrieves a test template by id.
func (r *TemplateRepository) GetTemplate(ctx context.Context, id int64) (*model.TestTemplate, error) {
	t := &model.TestTemplate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, time_limit_minutes
		 FROM test_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.TimeLimitMinutes)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListQuestions retrieves the ordered questions of a template, with
// choices attached for choice-type questions.
func (r *TemplateRepository) ListQuestions(ctx context.Context, templateID int64) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.text, q.question_type, q.complexity, q.correct_answer, q.stdin
		 FROM template_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.template_id = $1
		 ORDER BY tq.position`, templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	index := make(map[int64]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.QuestionType, &q.Complexity, &q.CorrectAnswer, &q.Stdin); err != nil {
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}

	choiceRows, err := r.pool.Query(ctx,
		`SELECT c.id, c.question_id, c.text, c.is_correct, c.position
		 FROM choices c
		 JOIN template_questions tq ON tq.question_id = c.question_id
		 WHERE tq.template_id = $1
		 ORDER BY c.question_id, c.position`, templateID,
	)
	if err != nil {
		return nil, err
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var (
			c          model.Choice
			questionID int64
		)
		if err := choiceRows.Scan(&c.ID, &questionID, &c.Text, &c.IsCorrect, &c.Position); err != nil {
			return nil, err
		}
		if i, ok := index[questionID]; ok {
			questions[i].Choices = append(questions[i].Choices, c)
		}
	}
	return questions, choiceRows.Err()
}
