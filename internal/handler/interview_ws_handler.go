package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hiredeck/hiredeck-backend/internal/middleware"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/hiredeck/hiredeck-backend/internal/realtime"
	"github.com/hiredeck/hiredeck-backend/internal/repository"
	"github.com/hiredeck/hiredeck-backend/internal/response"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// InterviewWSHandler upgrades technical interview connections into the
// room for their invitation link.
type InterviewWSHandler struct {
	registry    *realtime.Registry
	invitations *repository.InvitationRepository
	templates   *repository.TemplateRepository
	candidates  *repository.CandidateRepository
	answers     *repository.AnswerRepository
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewInterviewWSHandler creates a new InterviewWSHandler.
func NewInterviewWSHandler(
	registry *realtime.Registry,
	invitations *repository.InvitationRepository,
	templates *repository.TemplateRepository,
	candidates *repository.CandidateRepository,
	answers *repository.AnswerRepository,
	log zerolog.Logger,
	allowedOrigins []string,
) *InterviewWSHandler {
	return &InterviewWSHandler{
		registry:    registry,
		invitations: invitations,
		templates:   templates,
		candidates:  candidates,
		answers:     answers,
		log:         log.With().Str("component", "interview_ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// InterviewStream godoc
// WS /ws/v1/interview/:link
// Joins the collaboration room of a technical invitation. Anonymous
// connections are the candidate; a reviewer token must belong to the
// assigned reviewer. Authorization failures are refused before upgrade.
func (h *InterviewWSHandler) InterviewStream(c *gin.Context) {
	link, err := uuid.Parse(c.Param("link"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inv, err := h.invitations.GetByLink(c.Request.Context(), link)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if inv.InterviewType != model.InterviewTypeTechnical {
		response.Fail(c, http.StatusBadRequest, response.ErrNotTechnical)
		return
	}

	var reviewerID *int64
	if claims := middleware.GetClaims(c); claims != nil {
		reviewerID = &claims.ReviewerID
	}
	role, err := realtime.ResolveRole(reviewerID, inv)
	if err != nil {
		response.Fail(c, http.StatusForbidden, response.ErrUnauthorized)
		return
	}

	snapshot, err := h.buildSnapshot(c, inv)
	if err != nil {
		h.log.Error().Err(err).Int64("invitation_id", inv.ID).Msg("Snapshot build failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	member := realtime.NewMember(role)
	room, err := h.registry.Join(link.String(), snapshot, member)
	if err != nil {
		return
	}

	wsLog := h.log.With().
		Int64("invitation_id", inv.ID).
		Str("role", string(role)).
		Logger()
	wsLog.Info().Msg("Member connected")

	// Write pump: drain the member queue onto the wire. The room closes
	// the queue on leave, which ends this goroutine.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for event := range member.Events {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}
		room.Handle(member, data)
	}

	room.Leave(member)
	<-writeDone
	wsLog.Info().Msg("Member disconnected")
}

// buildSnapshot assembles the initial_data view of an invitation: the
// question stubs, the first unanswered question and display names.
func (h *InterviewWSHandler) buildSnapshot(c *gin.Context, inv *model.Invitation) (*realtime.Snapshot, error) {
	ctx := c.Request.Context()

	questions, err := h.templates.ListQuestions(ctx, inv.TemplateID)
	if err != nil {
		return nil, err
	}
	tmpl, err := h.templates.GetTemplate(ctx, inv.TemplateID)
	if err != nil {
		return nil, err
	}
	candidate, err := h.candidates.GetByID(ctx, inv.CandidateID)
	if err != nil {
		return nil, err
	}
	answers, err := h.answers.ListByInvitation(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	answered := make(map[int64]bool, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = true
	}

	snapshot := &realtime.Snapshot{
		CandidateName:   candidate.FullName,
		TemplateName:    tmpl.Name,
		StdinByQuestion: make(map[int64]string, len(questions)),
	}
	for i := range questions {
		snapshot.Questions = append(snapshot.Questions, questions[i].Stub())
		snapshot.StdinByQuestion[questions[i].ID] = questions[i].Stdin
		if snapshot.CurrentQuestionID == 0 && !answered[questions[i].ID] {
			snapshot.CurrentQuestionID = questions[i].ID
		}
	}
	if snapshot.CurrentQuestionID == 0 && len(questions) > 0 {
		snapshot.CurrentQuestionID = questions[0].ID
	}
	return snapshot, nil
}
