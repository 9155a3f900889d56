package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/internal/service"
	"github.com/justmusic/justmusic-api/pkg/response"
)

type enrollmentService interface {
	SelectClass(ctx context.Context, email string, req models.SelectClassRequest) (*models.SelectionResult, error)
	DeleteSelection(ctx context.Context, email, classID string) (*models.DeleteResult, error)
	ListSelected(ctx context.Context, email string) ([]models.StudentClassSelection, error)
	ListEnrolled(ctx context.Context, email string) ([]models.StudentClassSelection, error)
	PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error)
}

type historyExporter interface {
	ExportPaymentHistory(ctx context.Context, email, format string) (*service.ExportFile, error)
}

// EnrollmentHandler serves a student's selections and paid classes.
type EnrollmentHandler struct {
	service  enrollmentService
	exporter historyExporter
}

// NewEnrollmentHandler constructs an EnrollmentHandler.
func NewEnrollmentHandler(svc enrollmentService, exporter historyExporter) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, exporter: exporter}
}

// SelectClass godoc
// @Summary Select a class
// @Description Adds an approved class to the student's selections. An existing selection yields {"matched": true}
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email query string true "Student email"
// @Param payload body models.SelectClassRequest true "Class to select"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /selectclass [post]
func (h *EnrollmentHandler) SelectClass(c *gin.Context) {
	email, ok := requiredEmail(c)
	if !ok {
		return
	}
	var req models.SelectClassRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.SelectClass(c.Request.Context(), email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Matched {
		response.OK(c, res)
		return
	}
	response.Created(c, res)
}

// DeleteSelection godoc
// @Summary Remove a pending selection
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /deletmyclass/{id} [delete]
func (h *EnrollmentHandler) DeleteSelection(c *gin.Context) {
	email, ok := requiredEmail(c)
	if !ok {
		return
	}
	res, err := h.service.DeleteSelection(c.Request.Context(), email, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// ListSelected godoc
// @Summary List unpaid selections
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /myselectedclass [get]
func (h *EnrollmentHandler) ListSelected(c *gin.Context) {
	h.list(c, h.service.ListSelected)
}

// ListEnrolled godoc
// @Summary List paid classes
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /enrolledclass [get]
func (h *EnrollmentHandler) ListEnrolled(c *gin.Context) {
	h.list(c, h.service.ListEnrolled)
}

// PaymentHistory godoc
// @Summary Payment history
// @Description Paid selections, most recent payment first
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param email query string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /payhistory [get]
func (h *EnrollmentHandler) PaymentHistory(c *gin.Context) {
	h.list(c, h.service.PaymentHistory)
}

// ExportHistory godoc
// @Summary Download payment history
// @Tags Enrollment
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param email query string true "Student email"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /payhistory/export [get]
func (h *EnrollmentHandler) ExportHistory(c *gin.Context) {
	email, ok := requiredEmail(c)
	if !ok {
		return
	}
	file, err := h.exporter.ExportPaymentHistory(c.Request.Context(), email, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

func (h *EnrollmentHandler) list(c *gin.Context, load func(ctx context.Context, email string) ([]models.StudentClassSelection, error)) {
	email, ok := requiredEmail(c)
	if !ok {
		return
	}
	rows, err := load(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"count": len(rows)})
}
