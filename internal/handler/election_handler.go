package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freesideatlanta/member-portal/internal/dto"
	"github.com/freesideatlanta/member-portal/internal/middleware"
	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/service"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
	"github.com/freesideatlanta/member-portal/pkg/response"
)

type electionService interface {
	Create(ctx context.Context, req dto.CreateElectionRequest, actorID string, meta models.RequestMeta) (*models.Election, error)
	Board(ctx context.Context, viewerID string) (*dto.ElectionBoard, error)
	View(ctx context.Context, electionID, viewerID string) (*dto.ElectionView, error)
	Nominate(ctx context.Context, electionID, nomineeID, actorID string) error
	Vote(ctx context.Context, electionID, candidateID, actorID string) error
	LookupTally(ctx context.Context, electionID string) (*models.Tally, bool, error)
}

type tallyExporter interface {
	ExportTally(ctx context.Context, electionID, format string) (*service.ExportFile, error)
}

// ElectionHandler serves elections, ballots and results.
type ElectionHandler struct {
	service  electionService
	exporter tallyExporter
}

// NewElectionHandler creates a new election handler.
func NewElectionHandler(svc electionService, exporter tallyExporter) *ElectionHandler {
	return &ElectionHandler{service: svc, exporter: exporter}
}

// Create godoc
// @Summary Create election
// @Description Open a new election. Dates must be ordered nominate_start <= nominate_end <= vote_start <= vote_end.
// @Tags Elections
// @Accept json
// @Produce json
// @Param payload body dto.CreateElectionRequest true "Election payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /elections [post]
func (h *ElectionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	election, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, election)
}

// Board godoc
// @Summary Current elections
// @Description Elections open for nominations, open for voting, and recently ended with results
// @Tags Elections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /elections [get]
func (h *ElectionHandler) Board(c *gin.Context) {
	var viewerID string
	if claims := claimsFromContext(c); claims != nil {
		viewerID = claims.UserID
	}

	board, err := h.service.Board(c.Request.Context(), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, board, nil)
}

// Get godoc
// @Summary Get election
// @Tags Elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /elections/{id} [get]
func (h *ElectionHandler) Get(c *gin.Context) {
	var viewerID string
	if claims := claimsFromContext(c); claims != nil {
		viewerID = claims.UserID
	}

	view, err := h.service.View(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// Nominate godoc
// @Summary Nominate a candidate
// @Description The authenticated member nominates one person per election
// @Tags Elections
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param payload body dto.NominateRequest true "Nominee"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /elections/{id}/nominations [post]
func (h *ElectionHandler) Nominate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.NominateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "nominee_id is required"))
		return
	}

	if err := h.service.Nominate(c.Request.Context(), c.Param("id"), req.NomineeID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Vote godoc
// @Summary Cast a vote
// @Description The authenticated member votes once per election for a nominee
// @Tags Elections
// @Accept json
// @Produce json
// @Param id path string true "Election ID"
// @Param payload body dto.VoteRequest true "Candidate"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /elections/{id}/votes [post]
func (h *ElectionHandler) Vote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "candidate_id is required"))
		return
	}

	if err := h.service.Vote(c.Request.Context(), c.Param("id"), req.CandidateID, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Tally godoc
// @Summary Election results
// @Description Vote counts per candidate, available once voting has closed
// @Tags Elections
// @Produce json
// @Param id path string true "Election ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /elections/{id}/tally [get]
func (h *ElectionHandler) Tally(c *gin.Context) {
	tally, cacheHit, err := h.service.LookupTally(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, tally, nil, middleware.ExtractMeta(c))
}

// ExportTally godoc
// @Summary Download election results
// @Tags Elections
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Election ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /elections/{id}/tally/export [get]
func (h *ElectionHandler) ExportTally(c *gin.Context) {
	file, err := h.exporter.ExportTally(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Attachment(c, file.ContentType, file.Filename, file.Body)
}
