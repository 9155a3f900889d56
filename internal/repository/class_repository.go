package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/justmusic/justmusic-api/internal/models"
)

// ClassRepository provides access to the classes collection.
type ClassRepository struct {
	coll *mongo.Collection
	obs  QueryObserver
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(coll *mongo.Collection, obs QueryObserver) *ClassRepository {
	return &ClassRepository{coll: coll, obs: obs}
}

// Create inserts a class and returns its id.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) (string, error) {
	defer track(r.obs, "classes.create")()

	res, err := r.coll.InsertOne(ctx, class)
	if err != nil {
		return "", fmt.Errorf("insert class: %w", err)
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	class.ID = oid
	return oid.Hex(), nil
}

// FindByID returns the class or mongo.ErrNoDocuments.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	defer track(r.obs, "classes.find_by_id")()

	var class models.Class
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&class); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ListAll returns every class.
func (r *ClassRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	defer track(r.obs, "classes.list_all")()
	return r.find(ctx, bson.M{})
}

// ListByInstructor returns the classes owned by an instructor.
func (r *ClassRepository) ListByInstructor(ctx context.Context, email string) ([]models.Class, error) {
	defer track(r.obs, "classes.list_by_instructor")()
	return r.find(ctx, bson.M{"instructorEmail": email})
}

// ListByStatus returns classes in the given review state.
func (r *ClassRepository) ListByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error) {
	defer track(r.obs, "classes.list_by_status")()
	return r.find(ctx, bson.M{"status": status})
}

// UpdateStatus sets the review status of a class.
func (r *ClassRepository) UpdateStatus(ctx context.Context, id string, status models.ClassStatus) (models.UpdateResult, error) {
	return r.set(ctx, "classes.update_status", id, bson.M{"status": status})
}

// UpdateFeedback stores admin feedback on a class.
func (r *ClassRepository) UpdateFeedback(ctx context.Context, id, feedback string) (models.UpdateResult, error) {
	return r.set(ctx, "classes.update_feedback", id, bson.M{"feedback": feedback})
}

// ConsumeSeat atomically moves one seat into the enrolled counter. It returns
// false without error when the class has no seat left or does not exist. The
// guard and both counters change in a single document update, so concurrent
// payments cannot lose updates.
func (r *ClassRepository) ConsumeSeat(ctx context.Context, id string) (*models.Class, bool, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, false, err
	}
	defer track(r.obs, "classes.consume_seat")()

	filter := bson.M{"_id": oid, "availableSeat": bson.M{"$gt": 0}}
	update := bson.M{"$inc": bson.M{"totalEnrolledStudent": 1, "availableSeat": -1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var class models.Class
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&class); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("update class seats: %w", err)
	}
	return &class, true, nil
}

// TopApproved ranks approved classes by enrolled students, highest first.
// Order among equal counts is whatever the store returns.
func (r *ClassRepository) TopApproved(ctx context.Context, limit int) ([]models.Class, error) {
	defer track(r.obs, "classes.top_approved")()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.ClassStatusApproved}}},
		{{Key: "$sort", Value: bson.M{"totalEnrolledStudent": -1}}},
		{{Key: "$limit", Value: limit}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate popular classes: %w", err)
	}
	classes := []models.Class{}
	if err := cur.All(ctx, &classes); err != nil {
		return nil, fmt.Errorf("decode popular classes: %w", err)
	}
	return classes, nil
}

// SetCounters overwrites both enrollment counters of a class.
func (r *ClassRepository) SetCounters(ctx context.Context, id string, enrolled, seats int) (models.UpdateResult, error) {
	return r.set(ctx, "classes.set_counters", id, bson.M{"totalEnrolledStudent": enrolled, "availableSeat": seats})
}

func (r *ClassRepository) set(ctx context.Context, label, id string, fields bson.M) (models.UpdateResult, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	defer track(r.obs, label)()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update class: %w", err)
	}
	return models.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (r *ClassRepository) find(ctx context.Context, filter bson.M) ([]models.Class, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find classes: %w", err)
	}
	classes := []models.Class{}
	if err := cur.All(ctx, &classes); err != nil {
		return nil, fmt.Errorf("decode classes: %w", err)
	}
	return classes, nil
}
