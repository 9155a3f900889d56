package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/middleware"
	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
	"github.com/justmusic/justmusic-api/pkg/response"
)

type statsService interface {
	PopularClasses(ctx context.Context, limit int) ([]models.Class, bool, error)
	PopularInstructors(ctx context.Context, limit int) ([]models.User, bool, error)
}

// StatsHandler serves the public popularity rankings.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// PopularClasses godoc
// @Summary Most enrolled approved classes
// @Tags Stats
// @Produce json
// @Param limit query int false "Number of classes (default 2)"
// @Success 200 {object} response.Envelope
// @Router /popularclass [get]
func (h *StatsHandler) PopularClasses(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	classes, hit, err := h.service.PopularClasses(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	meta := responseMeta(c)
	meta["count"] = len(classes)
	response.JSON(c, http.StatusOK, classes, meta)
}

// PopularInstructors godoc
// @Summary Instructors of the most enrolled classes
// @Tags Stats
// @Produce json
// @Param limit query int false "Number of classes to rank (default 2)"
// @Success 200 {object} response.Envelope
// @Router /popularinstructor [get]
func (h *StatsHandler) PopularInstructors(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	users, hit, err := h.service.PopularInstructors(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	meta := responseMeta(c)
	meta["count"] = len(users)
	response.JSON(c, http.StatusOK, users, meta)
}

// limitQuery parses an optional limit. Zero means the service default.
func limitQuery(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
		return 0, false
	}
	return limit, true
}
