package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/hiredeck/hiredeck-backend/internal/repository"
	"github.com/hiredeck/hiredeck-backend/internal/response"
	"github.com/hiredeck/hiredeck-backend/internal/service"
	"github.com/hiredeck/hiredeck-backend/internal/validator"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// StaffHandler handles the reviewer-facing endpoints: login, candidate
// registration, invitation lifecycle and reports.
type StaffHandler struct {
	authService       *service.AuthService
	invitationService *service.InvitationService
	candidates        *repository.CandidateRepository
	log               zerolog.Logger
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(
	authService *service.AuthService,
	invitationService *service.InvitationService,
	candidates *repository.CandidateRepository,
	log zerolog.Logger,
) *StaffHandler {
	return &StaffHandler{
		authService:       authService,
		invitationService: invitationService,
		candidates:        candidates,
		log:               log.With().Str("component", "staff_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
func (h *StaffHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, reviewer, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":    token,
		"reviewer": reviewer,
	})
}

// CreateCandidate godoc
// POST /api/v1/staff/candidates
func (h *StaffHandler) CreateCandidate(c *gin.Context) {
	var req model.CreateCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate := &model.Candidate{Email: req.Email, FullName: req.FullName}
	if err := h.candidates.Create(c.Request.Context(), candidate); err != nil {
		h.log.Error().Err(err).Msg("Create candidate failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"candidate": candidate})
}

// CreateInvitation godoc
// POST /api/v1/staff/invitations
func (h *StaffHandler) CreateInvitation(c *gin.Context) {
	var req model.CreateInvitationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inv, err := h.invitationService.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewerRequired):
			response.Fail(c, http.StatusBadRequest, response.ErrReviewerRequired)
		case errors.Is(err, service.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"invitation": inv})
}

// SendInvitation godoc
// POST /api/v1/staff/invitations/:id/send
// Flips the sent flag once; a second call is a conflict.
func (h *StaffHandler) SendInvitation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	inv, err := h.invitationService.Send(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadySent):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySent)
		case errors.Is(err, service.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"invitation": inv})
}

// GetReport godoc
// GET /api/v1/staff/invitations/:id/report
// Returns stored answers with scores and the proctoring log.
func (h *StaffHandler) GetReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	report, err := h.invitationService.GetReport(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}
