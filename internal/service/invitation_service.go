package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/hiredeck/hiredeck-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Staff-surface errors.
var (
	ErrReviewerRequired = errors.New("technical interview requires an assigned reviewer")
	ErrAlreadySent      = errors.New("invitation already sent")
)

// InvitationService handles the staff side of the invitation lifecycle:
// creation and the monotonic sent flip. Actual email dispatch is an
// external collaborator; Send only records that an invite went out and
// hands back the link.
type InvitationService struct {
	invitations *repository.InvitationRepository
	candidates  *repository.CandidateRepository
	templates   *repository.TemplateRepository
	answers     *repository.AnswerRepository
	log         zerolog.Logger
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(
	invitations *repository.InvitationRepository,
	candidates *repository.CandidateRepository,
	templates *repository.TemplateRepository,
	answers *repository.AnswerRepository,
	log zerolog.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		candidates:  candidates,
		templates:   templates,
		answers:     answers,
		log:         log.With().Str("component", "invitation_service").Logger(),
	}
}

// Create binds a candidate to a template under a fresh link token.
// Technical interviews must carry an assigned reviewer so room access
// control has someone to compare against.
func (s *InvitationService) Create(ctx context.Context, req *model.CreateInvitationRequest) (*model.Invitation, error) {
	interviewType := model.InterviewTypeGeneral
	if req.InterviewType != "" {
		interviewType = model.InterviewType(req.InterviewType)
	}
	if interviewType == model.InterviewTypeTechnical && req.AssignedReviewerID == nil {
		return nil, ErrReviewerRequired
	}

	if _, err := s.candidates.GetByID(ctx, req.CandidateID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if _, err := s.templates.GetTemplate(ctx, req.TemplateID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}

	inv := &model.Invitation{
		LinkToken:          uuid.New(),
		CandidateID:        req.CandidateID,
		TemplateID:         req.TemplateID,
		InterviewType:      interviewType,
		AssignedReviewerID: req.AssignedReviewerID,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.log.Info().
		Int64("invitation_id", inv.ID).
		Str("interview_type", string(inv.InterviewType)).
		Msg("Invitation created")
	return inv, nil
}

// Send flips the sent flag once and returns the invitation. A second call
// fails with ErrAlreadySent — the flag never goes back.
func (s *InvitationService) Send(ctx context.Context, id int64) (*model.Invitation, error) {
	flipped, err := s.invitations.MarkSent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mark sent: %w", err)
	}

	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if !flipped {
		return nil, ErrAlreadySent
	}
	return inv, nil
}

// Report aggregates everything a reviewer sees after (or during) a
// session: stored answers with scores and the proctoring log. Tab-switch
// counts are reporting-only and never affect scores.
type Report struct {
	Invitation *model.Invitation      `json:"invitation"`
	Candidate  *model.Candidate       `json:"candidate"`
	Template   *model.TestTemplate    `json:"template"`
	Answers    []model.Answer         `json:"answers"`
	SwitchLog  []model.TabSwitchEvent `json:"switch_log"`
}

// GetReport builds the reviewer-facing report of one invitation.
func (s *InvitationService) GetReport(ctx context.Context, id int64) (*Report, error) {
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}

	candidate, err := s.candidates.GetByID(ctx, inv.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	tmpl, err := s.templates.GetTemplate(ctx, inv.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	answers, err := s.answers.ListByInvitation(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	events, err := s.answers.ListTabSwitchEvents(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("list tab switch events: %w", err)
	}

	return &Report{
		Invitation: inv,
		Candidate:  candidate,
		Template:   tmpl,
		Answers:    answers,
		SwitchLog:  events,
	}, nil
}
