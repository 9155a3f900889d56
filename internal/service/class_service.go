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

type classRepository interface {
	Create(ctx context.Context, class *models.Class) (string, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListAll(ctx context.Context) ([]models.Class, error)
	ListByInstructor(ctx context.Context, email string) ([]models.Class, error)
	ListByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error)
	UpdateStatus(ctx context.Context, id string, status models.ClassStatus) (models.UpdateResult, error)
	UpdateFeedback(ctx context.Context, id, feedback string) (models.UpdateResult, error)
}

// ClassService manages the class catalog.
type ClassService struct {
	repo      classRepository
	cache     statsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, cache statsInvalidator, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// CreateClass stores a new class owned by the calling instructor. New classes
// always wait for review and start with no enrolled students.
func (s *ClassService) CreateClass(ctx context.Context, actorEmail string, req models.CreateClassRequest) (*models.InsertResult, error) {
	req.ClassName = strings.TrimSpace(req.ClassName)
	req.InstructorEmail = models.NormalizeEmail(req.InstructorEmail)
	actorEmail = models.NormalizeEmail(actorEmail)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	owner := req.InstructorEmail
	if owner == "" {
		owner = actorEmail
	}
	if owner != actorEmail {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "instructors can only create their own classes")
	}

	class := &models.Class{
		ClassName:            req.ClassName,
		ClassImage:           req.ClassImage,
		InstructorName:       req.InstructorName,
		InstructorEmail:      actorEmail,
		AvailableSeat:        req.AvailableSeat,
		Price:                req.Price,
		Status:               models.ClassStatusPending,
		TotalEnrolledStudent: 0,
		CreatedAt:            s.now().UTC(),
	}
	id, err := s.repo.Create(ctx, class)
	if err != nil {
		s.logger.Error("failed to create class", zap.String("instructor_email", actorEmail), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to create class")
	}
	return &models.InsertResult{InsertedID: id}, nil
}

// ListByInstructor returns the classes owned by an instructor.
func (s *ClassService) ListByInstructor(ctx context.Context, email string) ([]models.Class, error) {
	classes, err := s.repo.ListByInstructor(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, nil
}

// ListAll returns every class regardless of status.
func (s *ClassService) ListAll(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, nil
}

// ListApproved returns the classes open to students.
func (s *ClassService) ListApproved(ctx context.Context) ([]models.Class, error) {
	classes, err := s.repo.ListByStatus(ctx, models.ClassStatusApproved)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	return classes, nil
}

// UpdateStatus moves a class through review.
func (s *ClassService) UpdateStatus(ctx context.Context, id string, status models.ClassStatus) (*models.UpdateResult, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of pending, approved, denied")
	}

	res, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, s.mutationError(err, id)
	}
	if res.MatchedCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	invalidateStats(ctx, s.cache, s.logger)
	s.logger.Info("class status updated", zap.String("class_id", id), zap.String("status", string(status)))
	return &res, nil
}

// UpdateFeedback stores admin feedback on a class.
func (s *ClassService) UpdateFeedback(ctx context.Context, id string, req models.UpdateFeedbackRequest) (*models.UpdateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback")
	}

	res, err := s.repo.UpdateFeedback(ctx, id, req.Feedback)
	if err != nil {
		return nil, s.mutationError(err, id)
	}
	if res.MatchedCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return &res, nil
}

func (s *ClassService) mutationError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return appErrors.Clone(appErrors.ErrValidation, "invalid class id")
	case errors.Is(err, mongo.ErrNoDocuments):
		return appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	s.logger.Error("failed to update class", zap.String("class_id", id), zap.Error(err))
	return appErrors.Internal(err, "failed to update class")
}
