package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/hiredeck/hiredeck-backend/internal/sessiontimer"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Domain errors surfaced to handlers.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyCompleted = errors.New("invitation already completed")
	ErrExpired          = errors.New("time limit exceeded")
	ErrInvalidFormat    = errors.New("malformed response payload")
)

// gradeTimeout bounds the grading of a single answer. The judge's own
// poll budget is ~10s; this is the hard stop above it so a stuck judge
// cannot hang session completion.
const gradeTimeout = 30 * time.Second

// InvitationStore is the persistence surface the session engine needs for
// invitations.
type InvitationStore interface {
	GetByLink(ctx context.Context, link uuid.UUID) (*model.Invitation, error)
	Complete(ctx context.Context, id int64) (bool, error)
}

// AnswerStore is the persistence surface for answers.
type AnswerStore interface {
	Upsert(ctx context.Context, a *model.Answer) error
	GetByQuestion(ctx context.Context, invitationID, questionID int64) (*model.Answer, error)
	ListByInvitation(ctx context.Context, invitationID int64) ([]model.Answer, error)
	UpdateScore(ctx context.Context, answerID int64, score int) error
}

// TemplateStore gives read-only access to templates and their questions.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id int64) (*model.TestTemplate, error)
	ListQuestions(ctx context.Context, templateID int64) ([]model.Question, error)
}

// CandidateStore resolves candidate display data.
type CandidateStore interface {
	GetByID(ctx context.Context, id int64) (*model.Candidate, error)
}

// Grader scores a stored response; it is total and never fails.
type Grader interface {
	Grade(ctx context.Context, q *model.Question, response string) int
}

// SessionService drives the invitation session state machine:
// NotStarted → InProgress → Completed, with server-side time-limit
// enforcement and completion-time grading.
type SessionService struct {
	invitations InvitationStore
	answers     AnswerStore
	templates   TemplateStore
	candidates  CandidateStore
	guard       *sessiontimer.Guard
	grader      Grader
	log         zerolog.Logger
}

// NewSessionService creates a SessionService.
func NewSessionService(
	invitations InvitationStore,
	answers AnswerStore,
	templates TemplateStore,
	candidates CandidateStore,
	guard *sessiontimer.Guard,
	grader Grader,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		invitations: invitations,
		answers:     answers,
		templates:   templates,
		candidates:  candidates,
		guard:       guard,
		grader:      grader,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// SessionView is the open/resume payload: progress metadata plus the
// question the client should show next.
type SessionView struct {
	InvitationID      int64               `json:"invitation_id"`
	CandidateName     string              `json:"candidate_name"`
	TemplateName      string              `json:"template_name"`
	InterviewType     model.InterviewType `json:"interview_type"`
	Questions         []model.QuestionStub `json:"questions"`
	CurrentQuestionID int64               `json:"current_question_id"`
	AnsweredCount     int                 `json:"answered_count"`
	TotalQuestions    int                 `json:"total_questions"`
	TimeLimitMinutes  int                 `json:"time_limit_minutes"`
	RemainingSeconds  *float64            `json:"remaining_seconds,omitempty"`
}

// QuestionView is one question with navigation metadata and the stored
// answer, if any.
type QuestionView struct {
	Question         *model.Question `json:"question"`
	ExistingResponse *string         `json:"existing_response,omitempty"`
	Position         int             `json:"position"`
	Total            int             `json:"total"`
	IsFirst          bool            `json:"is_first"`
	IsLast           bool            `json:"is_last"`
	RemainingSeconds *float64        `json:"remaining_seconds,omitempty"`
}

// FinishResult is the terminal ack; identical on repeated finish calls.
type FinishResult struct {
	Completed     bool `json:"completed"`
	GradedAnswers int  `json:"graded_answers"`
}

// Open validates the link and returns the session view, lazily starting
// the time-limit timer on first access. Expired sessions are force-
// completed before the error is returned.
func (s *SessionService) Open(ctx context.Context, link uuid.UUID, clientSession string) (*SessionView, error) {
	inv, tmpl, err := s.loadActive(ctx, link)
	if err != nil {
		return nil, err
	}

	remaining, err := s.checkGuard(ctx, inv, tmpl, clientSession)
	if err != nil {
		return nil, err
	}

	questions, err := s.templates.ListQuestions(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	answers, err := s.answers.ListByInvitation(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answered := make(map[int64]bool, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = true
	}

	candidate, err := s.candidates.GetByID(ctx, inv.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	view := &SessionView{
		InvitationID:     inv.ID,
		CandidateName:    candidate.FullName,
		TemplateName:     tmpl.Name,
		InterviewType:    inv.InterviewType,
		AnsweredCount:    len(answered),
		TotalQuestions:   len(questions),
		TimeLimitMinutes: tmpl.TimeLimitMinutes,
		RemainingSeconds: remaining,
	}
	for i := range questions {
		view.Questions = append(view.Questions, questions[i].Stub())
		if view.CurrentQuestionID == 0 && !answered[questions[i].ID] {
			view.CurrentQuestionID = questions[i].ID
		}
	}
	// Everything answered: point back at the first question.
	if view.CurrentQuestionID == 0 && len(questions) > 0 {
		view.CurrentQuestionID = questions[0].ID
	}
	return view, nil
}

// GetQuestion returns one question of the invitation's template with its
// 1-indexed position and the previously stored answer, if any.
func (s *SessionService) GetQuestion(ctx context.Context, link uuid.UUID, questionID int64, clientSession string) (*QuestionView, error) {
	inv, tmpl, err := s.loadActive(ctx, link)
	if err != nil {
		return nil, err
	}

	remaining, err := s.checkGuard(ctx, inv, tmpl, clientSession)
	if err != nil {
		return nil, err
	}

	questions, err := s.templates.ListQuestions(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	position := 0
	var question *model.Question
	for i := range questions {
		if questions[i].ID == questionID {
			position = i + 1
			question = &questions[i]
			break
		}
	}
	if question == nil {
		return nil, ErrNotFound
	}

	view := &QuestionView{
		Question:         question,
		Position:         position,
		Total:            len(questions),
		IsFirst:          position == 1,
		IsLast:           position == len(questions),
		RemainingSeconds: remaining,
	}

	existing, err := s.answers.GetByQuestion(ctx, inv.ID, questionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	if existing != nil {
		view.ExistingResponse = &existing.Response
	}
	return view, nil
}

// SubmitAnswer upserts the response for one question. It does not grade —
// answers may be revised freely until finish. Multiple-choice payloads
// must be a JSON array of choice ids.
func (s *SessionService) SubmitAnswer(ctx context.Context, link uuid.UUID, questionID int64, response string, switches int, clientSession string) error {
	inv, tmpl, err := s.loadActive(ctx, link)
	if err != nil {
		return err
	}

	if _, err := s.checkGuard(ctx, inv, tmpl, clientSession); err != nil {
		return err
	}

	questions, err := s.templates.ListQuestions(ctx, tmpl.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	var question *model.Question
	for i := range questions {
		if questions[i].ID == questionID {
			question = &questions[i]
			break
		}
	}
	if question == nil {
		return ErrNotFound
	}

	if question.QuestionType == model.QuestionTypeMultipleChoice {
		var ids []int64
		if err := json.Unmarshal([]byte(response), &ids); err != nil {
			return ErrInvalidFormat
		}
	}

	answer := &model.Answer{
		InvitationID: inv.ID,
		QuestionID:   questionID,
		Response:     response,
		Switches:     switches,
	}
	if err := s.answers.Upsert(ctx, answer); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// Finish seals the invitation and grades every stored answer. Completion
// is single-flight: only the caller that flips the completed flag grades.
// Repeated calls return the same terminal ack without re-grading.
func (s *SessionService) Finish(ctx context.Context, link uuid.UUID) (*FinishResult, error) {
	inv, err := s.invitations.GetByLink(ctx, link)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	graded, err := s.finalize(ctx, inv)
	if err != nil {
		return nil, err
	}
	return &FinishResult{Completed: true, GradedAnswers: graded}, nil
}

// ResolveInvitation maps a link to its invitation without touching the
// timer. Callers that need the in-progress check use loadActive instead.
func (s *SessionService) ResolveInvitation(ctx context.Context, link uuid.UUID) (*model.Invitation, error) {
	inv, err := s.invitations.GetByLink(ctx, link)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

// loadActive fetches the invitation and its template, rejecting unknown
// links and sealed sessions.
func (s *SessionService) loadActive(ctx context.Context, link uuid.UUID) (*model.Invitation, *model.TestTemplate, error) {
	inv, err := s.invitations.GetByLink(ctx, link)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get invitation: %w", err)
	}
	if inv.Completed {
		return nil, nil, ErrAlreadyCompleted
	}

	tmpl, err := s.templates.GetTemplate(ctx, inv.TemplateID)
	if err != nil {
		return nil, nil, fmt.Errorf("get template: %w", err)
	}
	return inv, tmpl, nil
}

// checkGuard runs the time-limit guard. On expiry the invitation is
// force-completed (all answers graded) and ErrExpired is returned.
func (s *SessionService) checkGuard(ctx context.Context, inv *model.Invitation, tmpl *model.TestTemplate, clientSession string) (*float64, error) {
	remaining, expired, err := s.guard.Check(ctx, inv.ID, clientSession, tmpl.TimeLimitMinutes)
	if err != nil {
		return nil, fmt.Errorf("time guard: %w", err)
	}
	if expired {
		if _, err := s.finalize(ctx, inv); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}
	if tmpl.TimeLimitMinutes == 0 {
		return nil, nil
	}
	secs := remaining.Seconds()
	return &secs, nil
}

// finalize seals the invitation via compare-and-set and, when this caller
// wins the flip, grades every stored answer. A failing judge downgrades
// the affected answer to 0 without aborting the rest.
func (s *SessionService) finalize(ctx context.Context, inv *model.Invitation) (int, error) {
	flipped, err := s.invitations.Complete(ctx, inv.ID)
	if err != nil {
		return 0, fmt.Errorf("complete invitation: %w", err)
	}
	if !flipped {
		// Lost the race or already sealed earlier: terminal state stands.
		return 0, nil
	}

	// The flip is durable, so grading must run to completion even if the
	// requester disconnects mid-poll. Only gradeTimeout bounds each answer.
	ctx = context.WithoutCancel(ctx)

	questions, err := s.templates.ListQuestions(ctx, inv.TemplateID)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	answers, err := s.answers.ListByInvitation(ctx, inv.ID)
	if err != nil {
		return 0, fmt.Errorf("list answers: %w", err)
	}

	graded := 0
	for i := range answers {
		a := &answers[i]
		score := 0
		if q, ok := byID[a.QuestionID]; ok {
			gradeCtx, cancel := context.WithTimeout(ctx, gradeTimeout)
			score = s.grader.Grade(gradeCtx, q, a.Response)
			cancel()
		}
		if err := s.answers.UpdateScore(ctx, a.ID, score); err != nil {
			s.log.Error().Err(err).Int64("answer_id", a.ID).Msg("Failed to persist score")
			continue
		}
		graded++
	}

	s.log.Info().
		Int64("invitation_id", inv.ID).
		Int("graded", graded).
		Msg("Invitation sealed and graded")
	return graded, nil
}
