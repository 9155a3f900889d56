package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/internal/repository"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
)

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type selectionRepository interface {
	Insert(ctx context.Context, sel *models.StudentClassSelection) (string, error)
	DeletePending(ctx context.Context, classID, email string) (int64, error)
	ListByStudent(ctx context.Context, email string, status models.PaymentStatus) ([]models.StudentClassSelection, error)
	PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error)
}

// EnrollmentService manages a student's class selections before and after
// payment.
type EnrollmentService struct {
	classes    classReader
	selections selectionRepository
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(classes classReader, selections selectionRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{classes: classes, selections: selections, validator: validate, logger: logger, now: time.Now}
}

// SelectClass adds an approved class to the student's pending selections. A
// pair that is already selected, pending or paid, yields Matched instead of
// an error.
func (s *EnrollmentService) SelectClass(ctx context.Context, email string, req models.SelectClassRequest) (*models.SelectionResult, error) {
	email = models.NormalizeEmail(email)
	req.ClassID = strings.TrimSpace(req.ClassID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}

	class, err := loadClass(ctx, s.classes, req.ClassID)
	if err != nil {
		return nil, err
	}
	if class.Status != models.ClassStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is not open for enrollment")
	}

	sel := snapshotSelection(class, email, s.now().UTC())
	id, err := s.selections.Insert(ctx, sel)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &models.SelectionResult{Matched: true}, nil
		}
		s.logger.Error("failed to store selection",
			zap.String("class_id", req.ClassID),
			zap.String("student_email", email),
			zap.Error(err),
		)
		return nil, appErrors.Internal(err, "failed to select class")
	}
	return &models.SelectionResult{InsertedID: id}, nil
}

// DeleteSelection removes a pending selection. Paid selections are kept.
func (s *EnrollmentService) DeleteSelection(ctx context.Context, email, classID string) (*models.DeleteResult, error) {
	email = models.NormalizeEmail(email)
	n, err := s.selections.DeletePending(ctx, strings.TrimSpace(classID), email)
	if err != nil {
		s.logger.Error("failed to delete selection",
			zap.String("class_id", classID),
			zap.String("student_email", email),
			zap.Error(err),
		)
		return nil, appErrors.Internal(err, "failed to delete selection")
	}
	return &models.DeleteResult{DeletedCount: n}, nil
}

// ListSelected returns the student's unpaid selections.
func (s *EnrollmentService) ListSelected(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	rows, err := s.selections.ListByStudent(ctx, models.NormalizeEmail(email), models.PaymentStatusPending)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list selected classes")
	}
	return rows, nil
}

// ListEnrolled returns the classes the student has paid for.
func (s *EnrollmentService) ListEnrolled(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	rows, err := s.selections.ListByStudent(ctx, models.NormalizeEmail(email), models.PaymentStatusSuccessful)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list enrolled classes")
	}
	return rows, nil
}

// PaymentHistory returns paid selections, most recent payment first.
func (s *EnrollmentService) PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	rows, err := s.selections.PaymentHistory(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load payment history")
	}
	return rows, nil
}

func loadClass(ctx context.Context, classes classReader, id string) (*models.Class, error) {
	class, err := classes.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidID):
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid class id")
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Internal(err, "failed to load class")
	}
	return class, nil
}

func snapshotSelection(class *models.Class, email string, at time.Time) *models.StudentClassSelection {
	return &models.StudentClassSelection{
		ClassID:         class.ID.Hex(),
		StudentEmail:    email,
		ClassName:       class.ClassName,
		ClassImage:      class.ClassImage,
		InstructorName:  class.InstructorName,
		InstructorEmail: class.InstructorEmail,
		Price:           class.Price,
		PaymentStatus:   models.PaymentStatusPending,
		SelectedAt:      at,
	}
}
