package repository

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned when an identifier is not a valid ObjectID hex.
var ErrInvalidID = errors.New("invalid object id")

// QueryObserver receives the duration of each store call.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// track starts timing a store call; invoke the returned func when it ends.
func track(obs QueryObserver, label string) func() {
	start := time.Now()
	return func() {
		if obs != nil {
			obs.ObserveDBQuery(label, time.Since(start))
		}
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
