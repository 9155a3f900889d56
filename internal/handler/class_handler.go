package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/pkg/response"
)

type classService interface {
	CreateClass(ctx context.Context, actorEmail string, req models.CreateClassRequest) (*models.InsertResult, error)
	ListByInstructor(ctx context.Context, email string) ([]models.Class, error)
	ListAll(ctx context.Context) ([]models.Class, error)
	ListApproved(ctx context.Context) ([]models.Class, error)
	UpdateStatus(ctx context.Context, id string, status models.ClassStatus) (*models.UpdateResult, error)
	UpdateFeedback(ctx context.Context, id string, req models.UpdateFeedbackRequest) (*models.UpdateResult, error)
}

// ClassHandler serves the class catalog.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a ClassHandler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// Create godoc
// @Summary Create class
// @Description Instructors add a class; it starts pending review with no enrolled students
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateClassRequest true "Class"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /addclass [post]
func (h *ClassHandler) Create(c *gin.Context) {
	email, ok := callerEmail(c)
	if !ok {
		return
	}
	var req models.CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.CreateClass(c.Request.Context(), email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// ListByInstructor godoc
// @Summary List an instructor's classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param email query string true "Instructor email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) ListByInstructor(c *gin.Context) {
	email, ok := requiredEmail(c)
	if !ok {
		return
	}
	classes, err := h.service.ListByInstructor(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, map[string]interface{}{"count": len(classes)})
}

// ListAll godoc
// @Summary List every class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /allclass [get]
func (h *ClassHandler) ListAll(c *gin.Context) {
	classes, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, map[string]interface{}{"count": len(classes)})
}

// ListApproved godoc
// @Summary List approved classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /allclasses [get]
func (h *ClassHandler) ListApproved(c *gin.Context) {
	classes, err := h.service.ListApproved(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, map[string]interface{}{"count": len(classes)})
}

// UpdateStatus godoc
// @Summary Review a class
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param status query string true "pending, approved or denied"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /updatestatus/{id} [patch]
func (h *ClassHandler) UpdateStatus(c *gin.Context) {
	status, ok := requiredQuery(c, "status")
	if !ok {
		return
	}
	res, err := h.service.UpdateStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), models.ClassStatus(strings.ToLower(status)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// UpdateFeedback godoc
// @Summary Leave feedback on a class
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "Class ID"
// @Param payload body models.UpdateFeedbackRequest true "Feedback"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /updatefb [patch]
func (h *ClassHandler) UpdateFeedback(c *gin.Context) {
	id, ok := requiredQuery(c, "id")
	if !ok {
		return
	}
	var req models.UpdateFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.UpdateFeedback(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
