package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hiredeck/hiredeck-backend/internal/config"
	"github.com/hiredeck/hiredeck-backend/internal/middleware"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/hiredeck/hiredeck-backend/internal/response"
	"github.com/hiredeck/hiredeck-backend/internal/service"
	"github.com/hiredeck/hiredeck-backend/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionHandler handles the candidate-facing session endpoints. Access
// control is the link token itself; there is no candidate account.
type SessionHandler struct {
	sessionService *service.SessionService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, rdb *redis.Client, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		rdb:            rdb,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// OpenSession godoc
// GET /api/v1/session/:link
// Opens (or resumes) the session behind an invitation link. First access
// starts the server-side timer.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	link, ok := parseLink(c)
	if !ok {
		return
	}

	view, err := h.sessionService.Open(c.Request.Context(), link, middleware.GetClientSession(c))
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// GetQuestion godoc
// GET /api/v1/session/:link/questions/:question_id
// Returns one question with navigation metadata and any stored answer.
func (h *SessionHandler) GetQuestion(c *gin.Context) {
	link, ok := parseLink(c)
	if !ok {
		return
	}
	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.GetQuestion(c.Request.Context(), link, questionID, middleware.GetClientSession(c))
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/session/:link/questions/:question_id/answer
// Upserts the response for one question. Revisions are free until finish.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	link, ok := parseLink(c)
	if !ok {
		return
	}
	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	switches := 0
	if req.Switches != nil {
		switches = *req.Switches
	}

	err = h.sessionService.SubmitAnswer(c.Request.Context(), link, questionID, req.Response, switches, middleware.GetClientSession(c))
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// FinishSession godoc
// POST /api/v1/session/:link/finish
// Seals the session and grades all stored answers. Idempotent: repeated
// calls return the same terminal ack.
func (h *SessionHandler) FinishSession(c *gin.Context) {
	link, ok := parseLink(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Finish(c.Request.Context(), link)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// LogTabSwitch godoc
// POST /api/v1/session/:link/log-switch
// Records a visibility change event. Events are queued to Redis and
// persisted asynchronously; they never affect scores.
func (h *SessionHandler) LogTabSwitch(c *gin.Context) {
	link, ok := parseLink(c)
	if !ok {
		return
	}

	var req model.LogSwitchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inv, err := h.sessionService.ResolveInvitation(c.Request.Context(), link)
	if err != nil {
		failSessionError(c, err)
		return
	}
	if inv.Completed {
		response.Fail(c, http.StatusForbidden, response.ErrAlreadyCompleted)
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"invitation_id": inv.ID,
		"state":         req.State,
		"timestamp":     time.Now().Unix(),
	})
	if err := h.rdb.RPush(c.Request.Context(), config.WorkerKey.TabSwitchQueue, payload).Err(); err != nil {
		h.log.Error().Err(err).Int64("invitation_id", inv.ID).Msg("Tab switch enqueue failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "logged"})
}

// parseLink pulls the :link UUID, failing the request itself on bad input.
func parseLink(c *gin.Context) (uuid.UUID, bool) {
	link, err := uuid.Parse(c.Param("link"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return link, true
}

// failSessionError maps session engine errors onto the response taxonomy.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusForbidden, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrExpired):
		response.Fail(c, http.StatusForbidden, response.ErrExpired)
	case errors.Is(err, service.ErrInvalidFormat):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidFormat)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
