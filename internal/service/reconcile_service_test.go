package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justmusic/justmusic-api/internal/models"
)

func TestReconcileServiceReportsAndRepairs(t *testing.T) {
	classes := newFakeClassRepo()
	drifted := classes.add(models.Class{ClassName: "Bass", AvailableSeat: 5, TotalEnrolledStudent: 0})
	consistent := classes.add(models.Class{ClassName: "Sax", AvailableSeat: 2, TotalEnrolledStudent: 1})
	overCounted := classes.add(models.Class{ClassName: "Tuba", AvailableSeat: 0, TotalEnrolledStudent: 3})

	selections := newFakeSelectionRepo()
	ctx := context.Background()
	for _, row := range []models.StudentClassSelection{
		{ClassID: drifted, StudentEmail: "a@example.com", PaymentStatus: models.PaymentStatusSuccessful},
		{ClassID: drifted, StudentEmail: "b@example.com", PaymentStatus: models.PaymentStatusSuccessful},
		{ClassID: drifted, StudentEmail: "c@example.com", PaymentStatus: models.PaymentStatusPending},
		{ClassID: consistent, StudentEmail: "a@example.com", PaymentStatus: models.PaymentStatusSuccessful},
		{ClassID: overCounted, StudentEmail: "a@example.com", PaymentStatus: models.PaymentStatusSuccessful},
	} {
		row := row
		_, err := selections.Insert(ctx, &row)
		require.NoError(t, err)
	}

	cache := &fakeInvalidator{}
	svc := NewReconcileService(classes, selections, cache, nil)

	report, err := svc.Run(ctx, false)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, models.EnrollmentDrift{ClassID: drifted, ClassName: "Bass", Recorded: 0, Counted: 2, AvailableSeat: 5, AdjustedSeat: 3}, report[0])
	assert.Equal(t, models.EnrollmentDrift{ClassID: overCounted, ClassName: "Tuba", Recorded: 3, Counted: 1, AvailableSeat: 0, AdjustedSeat: 2}, report[1])
	assert.Equal(t, 0, classes.get(drifted).TotalEnrolledStudent)
	assert.Zero(t, cache.calls)

	applied, err := svc.Run(ctx, true)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.True(t, applied[0].Applied)
	assert.Equal(t, 2, classes.get(drifted).TotalEnrolledStudent)
	assert.Equal(t, 3, classes.get(drifted).AvailableSeat)
	assert.Equal(t, 1, classes.get(overCounted).TotalEnrolledStudent)
	assert.Equal(t, 2, classes.get(overCounted).AvailableSeat)
	assert.Equal(t, 1, cache.calls)

	again, err := svc.Run(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, again)
}
