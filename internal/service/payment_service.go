package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
	"github.com/justmusic/justmusic-api/pkg/payment"
)

type paymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error)
}

type paymentSelectionRepository interface {
	FindByKey(ctx context.Context, classID, email string) (*models.StudentClassSelection, error)
	Insert(ctx context.Context, sel *models.StudentClassSelection) (string, error)
	MarkSuccessful(ctx context.Context, classID, email string, details models.PaymentDetails) (bool, error)
	RevertToPending(ctx context.Context, classID, email, transactionID string) error
	DeleteByTransaction(ctx context.Context, classID, email, transactionID string) error
}

type seatRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ConsumeSeat(ctx context.Context, id string) (*models.Class, bool, error)
}

type transactor interface {
	SupportsTransactions() bool
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaymentConfig tunes payment intent creation.
type PaymentConfig struct {
	Currency string
}

var (
	errAlreadyRecorded = errors.New("payment already recorded")
	errNoSeat          = errors.New("no seat left")
)

// PaymentService talks to the payment processor and records confirmed
// payments against class seats.
type PaymentService struct {
	processor  paymentProcessor
	classes    seatRepository
	selections paymentSelectionRepository
	tx         transactor
	cache      statsInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	config     PaymentConfig
	now        func() time.Time
}

// NewPaymentService constructs a PaymentService. tx may be nil, in which case
// a seat failure is undone by compensating writes.
func NewPaymentService(
	processor paymentProcessor,
	classes seatRepository,
	selections paymentSelectionRepository,
	tx transactor,
	cache statsInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config PaymentConfig,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Currency == "" {
		config.Currency = "usd"
	}
	return &PaymentService{
		processor:  processor,
		classes:    classes,
		selections: selections,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// CreatePaymentIntent requests a client secret for a card payment of price
// major currency units. The idempotency key makes client retries reuse the
// same processor intent; a fresh key is generated when none is supplied.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, email string, req models.PaymentIntentRequest, idempotencyKey string) (*models.PaymentIntentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment intent payload")
	}

	amount := toMinorUnits(req.Price)
	if amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price is too small")
	}

	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}

	email = models.NormalizeEmail(email)
	metadata := map[string]string{"studentEmail": email}
	if req.ClassID != "" {
		metadata["classId"] = req.ClassID
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, payment.IntentRequest{
		Amount:         amount,
		Currency:       s.config.Currency,
		IdempotencyKey: key,
		Metadata:       metadata,
	})
	if err != nil {
		s.metrics.RecordPaymentIntent(false)
		s.logger.Error("payment intent failed",
			zap.String("student_email", email),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentFailed.Code, appErrors.ErrPaymentFailed.Status, appErrors.ErrPaymentFailed.Message)
	}
	s.metrics.RecordPaymentIntent(true)
	return &models.PaymentIntentResponse{ClientSecret: intent.ClientSecret}, nil
}

// RecordPaymentSuccess marks the pair as paid and moves one seat into the
// enrolled counter. The selection moves PENDING to SUCCESSFUL at most once, and
// only that transition touches the counters, so client retries never consume
// a second seat.
func (s *PaymentService) RecordPaymentSuccess(ctx context.Context, classID, email string, details models.PaymentDetails) (*models.PaymentRecordResult, error) {
	classID = strings.TrimSpace(classID)
	email = models.NormalizeEmail(email)
	details.TransactionID = strings.TrimSpace(details.TransactionID)
	if err := s.validator.Struct(details); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment details")
	}
	if details.PaymentDate.IsZero() {
		details.PaymentDate = s.now().UTC()
	}
	details.PaymentStatus = models.PaymentStatusSuccessful

	class, err := loadClass(ctx, s.classes, classID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("class_id", classID),
		zap.String("student_email", email),
		zap.String("transaction_id", details.TransactionID),
	)

	var result *models.PaymentRecordResult
	if s.tx != nil && s.tx.SupportsTransactions() {
		err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			var runErr error
			result, _, runErr = s.record(txCtx, class, email, details)
			return runErr
		})
	} else {
		var created bool
		result, created, err = s.record(ctx, class, email, details)
		if transitioned(err) {
			s.compensate(ctx, log, classID, email, details.TransactionID, created)
		}
	}

	switch {
	case err == nil:
		s.metrics.RecordPaymentOutcome(PaymentOutcomeRecorded)
		invalidateStats(ctx, s.cache, log)
		log.Info("payment recorded")
		return result, nil
	case errors.Is(err, errAlreadyRecorded):
		s.metrics.RecordPaymentOutcome(PaymentOutcomeDuplicate)
		log.Info("payment already recorded")
		return &models.PaymentRecordResult{ClassID: classID, StudentEmail: email, AlreadyRecorded: true}, nil
	case errors.Is(err, errNoSeat):
		s.metrics.RecordPaymentOutcome(PaymentOutcomeNoSeat)
		log.Warn("payment recorded for a class without seats")
		return nil, appErrors.Clone(appErrors.ErrConflict, "no seats available for this class")
	default:
		s.metrics.RecordPaymentOutcome(PaymentOutcomeFailed)
		log.Error("failed to record payment", zap.Error(err))
		var typed *appErrors.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, appErrors.Internal(err, "failed to record payment")
	}
}

// seatError marks a failure that happened after the selection transitioned.
type seatError struct {
	err error
}

func (e *seatError) Error() string { return e.err.Error() }

func (e *seatError) Unwrap() error { return e.err }

func transitioned(err error) bool {
	var se *seatError
	return errors.As(err, &se)
}

// record performs the selection transition followed by the seat move. It
// reports whether it inserted a fresh selection so a caller without
// transactions knows how to undo it.
func (s *PaymentService) record(ctx context.Context, class *models.Class, email string, details models.PaymentDetails) (*models.PaymentRecordResult, bool, error) {
	classID := class.ID.Hex()

	moved, err := s.selections.MarkSuccessful(ctx, classID, email, details)
	if err != nil {
		return nil, false, err
	}

	created := false
	if !moved {
		existing, err := s.selections.FindByKey(ctx, classID, email)
		switch {
		case err == nil && existing.PaymentStatus == models.PaymentStatusSuccessful:
			return nil, false, errAlreadyRecorded
		case err == nil:
			return nil, false, appErrors.Clone(appErrors.ErrConflict, "selection changed while recording payment")
		case !errors.Is(err, mongo.ErrNoDocuments):
			return nil, false, err
		}
		if class.Status != models.ClassStatusApproved {
			return nil, false, appErrors.Clone(appErrors.ErrConflict, "class is not open for enrollment")
		}

		sel := snapshotSelection(class, email, details.PaymentDate)
		paidAt := details.PaymentDate
		sel.PaymentStatus = models.PaymentStatusSuccessful
		sel.PaymentDate = &paidAt
		sel.TransactionID = details.TransactionID
		if _, err := s.selections.Insert(ctx, sel); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, false, errAlreadyRecorded
			}
			return nil, false, err
		}
		created = true
	}

	updated, ok, err := s.classes.ConsumeSeat(ctx, classID)
	if err != nil {
		return nil, created, &seatError{err: err}
	}
	if !ok {
		return nil, created, &seatError{err: errNoSeat}
	}

	seats := updated.AvailableSeat
	enrolled := updated.TotalEnrolledStudent
	return &models.PaymentRecordResult{
		ClassID:      classID,
		StudentEmail: email,
		Created:      created,
		SeatsLeft:    &seats,
		Enrolled:     &enrolled,
	}, created, nil
}

// compensate undoes the selection write of a payment whose seat move failed.
func (s *PaymentService) compensate(ctx context.Context, log *zap.Logger, classID, email, transactionID string, created bool) {
	var err error
	if created {
		err = s.selections.DeleteByTransaction(ctx, classID, email, transactionID)
	} else {
		err = s.selections.RevertToPending(ctx, classID, email, transactionID)
	}
	if err != nil {
		log.Error("failed to undo payment selection", zap.Bool("created", created), zap.Error(err))
	}
}

func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
