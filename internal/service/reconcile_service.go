package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
)

type reconcileClassRepository interface {
	ListAll(ctx context.Context) ([]models.Class, error)
	SetCounters(ctx context.Context, id string, enrolled, seats int) (models.UpdateResult, error)
}

type paidSelectionCounter interface {
	CountSuccessfulByClass(ctx context.Context) (map[string]int, error)
}

// ReconcileService compares class enrollment counters with the number of
// paid selections and optionally repairs them.
type ReconcileService struct {
	classes    reconcileClassRepository
	selections paidSelectionCounter
	cache      statsInvalidator
	logger     *zap.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(classes reconcileClassRepository, selections paidSelectionCounter, cache statsInvalidator, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{classes: classes, selections: selections, cache: cache, logger: logger}
}

// Run reports every class whose totalEnrolledStudent differs from its paid
// selections. With apply set, the counter is rewritten and availableSeat is
// shifted by the opposite amount, never below zero.
func (s *ReconcileService) Run(ctx context.Context, apply bool) ([]models.EnrollmentDrift, error) {
	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classes")
	}
	counts, err := s.selections.CountSuccessfulByClass(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count paid selections")
	}

	drifts := []models.EnrollmentDrift{}
	for _, class := range classes {
		id := class.ID.Hex()
		counted := counts[id]
		if counted == class.TotalEnrolledStudent {
			continue
		}

		adjusted := class.AvailableSeat - (counted - class.TotalEnrolledStudent)
		if adjusted < 0 {
			adjusted = 0
		}
		drift := models.EnrollmentDrift{
			ClassID:       id,
			ClassName:     class.ClassName,
			Recorded:      class.TotalEnrolledStudent,
			Counted:       counted,
			AvailableSeat: class.AvailableSeat,
			AdjustedSeat:  adjusted,
		}

		if apply {
			if _, err := s.classes.SetCounters(ctx, id, counted, adjusted); err != nil {
				s.logger.Error("failed to repair class counters", zap.String("class_id", id), zap.Error(err))
				return drifts, appErrors.Internal(err, "failed to repair class counters")
			}
			drift.Applied = true
			s.logger.Info("class counters repaired",
				zap.String("class_id", id),
				zap.Int("recorded", drift.Recorded),
				zap.Int("counted", counted),
				zap.Int("available_seat", adjusted),
			)
		}
		drifts = append(drifts, drift)
	}

	if apply && len(drifts) > 0 {
		invalidateStats(ctx, s.cache, s.logger)
	}
	return drifts, nil
}
