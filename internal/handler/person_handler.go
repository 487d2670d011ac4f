package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freesideatlanta/member-portal/internal/dto"
	"github.com/freesideatlanta/member-portal/internal/models"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
	"github.com/freesideatlanta/member-portal/pkg/response"
)

type personService interface {
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Person, error)
	GetByUsername(ctx context.Context, username string) (*models.Person, error)
	Create(ctx context.Context, req dto.CreatePersonRequest, actorID string, meta models.RequestMeta) (*models.Person, error)
	Update(ctx context.Context, id string, req dto.UpdatePersonRequest, actor *models.JWTClaims, meta models.RequestMeta) (*models.Person, error)
	Deactivate(ctx context.Context, id, actorID string, meta models.RequestMeta) error
}

type passwordResetter interface {
	ResetPassword(ctx context.Context, targetID, actorID string, meta models.RequestMeta) (*dto.PasswordResetResponse, error)
}

// PersonHandler serves the person directory.
type PersonHandler struct {
	service personService
	reset   passwordResetter
}

// NewPersonHandler creates a new person handler.
func NewPersonHandler(svc personService, reset passwordResetter) *PersonHandler {
	return &PersonHandler{service: svc, reset: reset}
}

// List godoc
// @Summary List people
// @Description List people with pagination and filtering
// @Tags Persons
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param active query bool false "Active filter"
// @Param member query bool false "Member filter"
// @Param search query string false "Matches username, name or email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /persons [get]
func (h *PersonHandler) List(c *gin.Context) {
	filter := models.PersonFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
		Active:   queryBool(c, "active"),
		Member:   queryBool(c, "member"),
		Search:   c.Query("search"),
	}

	persons, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, persons, pagination)
}

// Get godoc
// @Summary Get person
// @Tags Persons
// @Produce json
// @Param id path string true "Person ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /persons/{id} [get]
func (h *PersonHandler) Get(c *gin.Context) {
	person, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, person, nil)
}

// GetByUsername godoc
// @Summary Get person by username
// @Tags Persons
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /persons/by-username/{username} [get]
func (h *PersonHandler) GetByUsername(c *gin.Context) {
	person, err := h.service.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, person.Summary(), nil)
}

// Create godoc
// @Summary Create person
// @Description Add a member or non-member to the directory
// @Tags Persons
// @Accept json
// @Produce json
// @Param payload body dto.CreatePersonRequest true "Create person payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /persons [post]
func (h *PersonHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	person, err := h.service.Create(c.Request.Context(), req, claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, person)
}

// Update godoc
// @Summary Update person
// @Description People may edit their own names, email and username. Other fields require an admin.
// @Tags Persons
// @Accept json
// @Produce json
// @Param id path string true "Person ID"
// @Param payload body dto.UpdatePersonRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /persons/{id} [patch]
func (h *PersonHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	person, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, person, nil)
}

// Deactivate godoc
// @Summary Deactivate person
// @Description Marks a person inactive. People are never deleted.
// @Tags Persons
// @Produce json
// @Param id path string true "Person ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /persons/{id} [delete]
func (h *PersonHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ResetPassword godoc
// @Summary Reset password
// @Description Generates a new password and mails it to the member
// @Tags Persons
// @Produce json
// @Param id path string true "Person ID"
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /persons/{id}/password-reset [post]
func (h *PersonHandler) ResetPassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.reset.ResetPassword(c.Request.Context(), c.Param("id"), claims.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, res, nil)
}
