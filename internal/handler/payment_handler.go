package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/pkg/response"
)

// IdempotencyHeader lets a checkout retry reuse the same processor intent.
const IdempotencyHeader = "Idempotency-Key"

type paymentService interface {
	CreatePaymentIntent(ctx context.Context, email string, req models.PaymentIntentRequest, idempotencyKey string) (*models.PaymentIntentResponse, error)
	RecordPaymentSuccess(ctx context.Context, classID, email string, details models.PaymentDetails) (*models.PaymentRecordResult, error)
}

// PaymentHandler serves checkout endpoints.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// CreateIntent godoc
// @Summary Create payment intent
// @Description Returns the processor client secret for a card charge of the given price
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Reuse the intent of a previous attempt"
// @Param payload body models.PaymentIntentRequest true "Price to charge"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /paymentintent [post]
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	email, ok := callerEmail(c)
	if !ok {
		return
	}
	var req models.PaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.service.CreatePaymentIntent(c.Request.Context(), email, req, strings.TrimSpace(c.GetHeader(IdempotencyHeader)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// RecordSuccess godoc
// @Summary Record a successful payment
// @Description Marks the selection paid and takes one seat. Repeating the call for a paid pair changes nothing
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId query string true "Class ID"
// @Param email query string true "Student email"
// @Param payload body models.PaymentDetails true "Processor confirmation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /paymentsuccess [patch]
func (h *PaymentHandler) RecordSuccess(c *gin.Context) {
	classID, ok := requiredQuery(c, "classId")
	if !ok {
		return
	}
	email, ok := requiredEmail(c)
	if !ok {
		return
	}
	var details models.PaymentDetails
	if !bindJSON(c, &details) {
		return
	}
	res, err := h.service.RecordPaymentSuccess(c.Request.Context(), classID, email, details)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
