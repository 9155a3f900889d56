package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/justmusic/justmusic-api/internal/models"
)

func classDoc(id primitive.ObjectID, name string, seats, enrolled int) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "className", Value: name},
		{Key: "instructorEmail", Value: "teach@example.com"},
		{Key: "availableSeat", Value: seats},
		{Key: "price", Value: 20.0},
		{Key: "status", Value: "approved"},
		{Key: "totalEnrolledStudent", Value: enrolled},
	}
}

func TestClassRepositoryCreate(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("assigns id", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		class := &models.Class{ClassName: "Guitar", Status: models.ClassStatusPending}
		id, err := repo.Create(context.Background(), class)
		require.NoError(mt, err)
		assert.Len(mt, id, 24)
		assert.Equal(mt, id, class.ID.Hex())
	})
}

func TestClassRepositoryFindByID(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("invalid id", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		_, err := repo.FindByID(context.Background(), "xyz")
		assert.ErrorIs(mt, err, ErrInvalidID)
	})

	mt.Run("found", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(cursorOf(classDoc(oid, "Piano", 3, 2)))

		class, err := repo.FindByID(context.Background(), oid.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, "Piano", class.ClassName)
		assert.Equal(mt, 3, class.AvailableSeat)
		assert.Equal(mt, 2, class.TotalEnrolledStudent)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(cursorOf())

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, mongo.ErrNoDocuments)
	})
}

func TestClassRepositoryConsumeSeat(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("seat available", func(mt *mtest.T) {
		obs := &recordingObserver{}
		repo := NewClassRepository(mt.Coll, obs)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: classDoc(oid, "Drums", 4, 1)}))

		class, ok, err := repo.ConsumeSeat(context.Background(), oid.Hex())
		require.NoError(mt, err)
		require.True(mt, ok)
		assert.Equal(mt, 4, class.AvailableSeat)
		assert.Equal(mt, 1, class.TotalEnrolledStudent)
		assert.Equal(mt, []string{"classes.consume_seat"}, obs.labels)
	})

	mt.Run("sold out", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		class, ok, err := repo.ConsumeSeat(context.Background(), primitive.NewObjectID().Hex())
		require.NoError(mt, err)
		assert.False(mt, ok)
		assert.Nil(mt, class)
	})

	mt.Run("server error", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		_, ok, err := repo.ConsumeSeat(context.Background(), primitive.NewObjectID().Hex())
		require.Error(mt, err)
		assert.False(mt, ok)
	})
}

func TestClassRepositoryTopApproved(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("decodes ranking", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(cursorOf(
			classDoc(primitive.NewObjectID(), "Violin", 1, 9),
			classDoc(primitive.NewObjectID(), "Cello", 4, 6),
		))

		classes, err := repo.TopApproved(context.Background(), 2)
		require.NoError(mt, err)
		require.Len(mt, classes, 2)
		assert.Equal(mt, "Violin", classes[0].ClassName)
		assert.Equal(mt, 9, classes[0].TotalEnrolledStudent)
	})

	mt.Run("empty", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(cursorOf())

		classes, err := repo.TopApproved(context.Background(), 6)
		require.NoError(mt, err)
		assert.NotNil(mt, classes)
		assert.Empty(mt, classes)
	})
}

func TestClassRepositoryUpdateStatus(t *testing.T) {
	mt := newMockMongo(t)

	mt.Run("no match", func(mt *mtest.T) {
		repo := NewClassRepository(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		res, err := repo.UpdateStatus(context.Background(), primitive.NewObjectID().Hex(), models.ClassStatusApproved)
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), res.MatchedCount)
	})
}
