package repository

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testNS = "justMusic.test"

type recordingObserver struct {
	labels []string
}

func (r *recordingObserver) ObserveDBQuery(label string, _ time.Duration) {
	r.labels = append(r.labels, label)
}

func newMockMongo(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func cursorOf(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, testNS, mtest.FirstBatch, docs...)
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error",
	})
}
