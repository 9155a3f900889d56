package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/internal/repository"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	InsertIfAbsent(ctx context.Context, user *models.User) (bool, string, error)
	List(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) (models.UpdateResult, error)
}

// UserService handles sign-in registration, role lookups and role changes.
type UserService struct {
	repo      userRepository
	cache     statsInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, cache statsInvalidator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// SetUser registers the user on first sign-in. Later calls with the same
// email leave the stored record untouched.
func (s *UserService) SetUser(ctx context.Context, req models.SetUserRequest) (*models.SetUserResult, error) {
	req.Email = models.NormalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user := &models.User{
		Email: req.Email,
		Name:  req.Name,
		Photo: req.Photo,
		Role:  models.RoleStudent,
	}
	created, id, err := s.repo.InsertIfAbsent(ctx, user)
	if err != nil {
		s.logger.Error("failed to register user", zap.String("email", req.Email), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to register user")
	}
	if created {
		s.logger.Info("user registered", zap.String("email", req.Email), zap.String("user_id", id))
	}
	return &models.SetUserResult{Created: created, UpsertedID: id}, nil
}

// CheckRole returns the stored role for an email.
func (s *UserService) CheckRole(ctx context.Context, email string) (*models.RoleResponse, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email is required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return &models.RoleResponse{Role: user.Role}, nil
}

// ListUsers returns every registered user.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list users")
	}
	return users, nil
}

// ListInstructors returns users holding the instructor role.
func (s *UserService) ListInstructors(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListByRole(ctx, models.RoleInstructor)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list instructors")
	}
	return users, nil
}

// UpdateRole changes the role of the user with the given id.
func (s *UserService) UpdateRole(ctx context.Context, id string, req models.UpdateRoleRequest) (*models.UpdateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role")
	}

	res, err := s.repo.UpdateRole(ctx, id, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid user id")
		}
		return nil, appErrors.Internal(err, "failed to update role")
	}
	if res.MatchedCount == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	s.logger.Info("user role updated", zap.String("user_id", id), zap.String("role", string(req.Role)))
	// Instructor rankings are keyed by role, so any role change can reorder them.
	invalidateStats(ctx, s.cache, s.logger)
	return &res, nil
}
