package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/pkg/response"
)

type userService interface {
	SetUser(ctx context.Context, req models.SetUserRequest) (*models.SetUserResult, error)
	CheckRole(ctx context.Context, email string) (*models.RoleResponse, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListInstructors(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, req models.UpdateRoleRequest) (*models.UpdateResult, error)
}

// UserHandler serves registration, role and directory endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// SetUser godoc
// @Summary Register user
// @Description Creates the user on first sign-in; repeated calls are a no-op
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.SetUserRequest true "User profile"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /setuser [post]
func (h *UserHandler) SetUser(c *gin.Context) {
	var req models.SetUserRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.SetUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Created {
		response.Created(c, res)
		return
	}
	response.OK(c, res)
}

// CheckRole godoc
// @Summary Check user role
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param email path string true "User email"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/checkrole/{email} [get]
func (h *UserHandler) CheckRole(c *gin.Context) {
	role, err := h.service.CheckRole(c.Request.Context(), strings.TrimSpace(c.Param("email")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, role)
}

// ListUsers godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /allusers [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, map[string]interface{}{"count": len(users)})
}

// ListInstructors godoc
// @Summary List instructors
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /allinstructors [get]
func (h *UserHandler) ListInstructors(c *gin.Context) {
	users, err := h.service.ListInstructors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, map[string]interface{}{"count": len(users)})
}

// UpdateRole godoc
// @Summary Change user role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id query string true "User ID"
// @Param payload body models.UpdateRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /updaterole [patch]
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := requiredQuery(c, "id")
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.UpdateRole(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
