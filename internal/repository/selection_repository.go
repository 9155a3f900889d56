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

// SelectionRepository provides access to the studentClasses collection.
type SelectionRepository struct {
	coll *mongo.Collection
	obs  QueryObserver
}

// NewSelectionRepository constructs a SelectionRepository.
func NewSelectionRepository(coll *mongo.Collection, obs QueryObserver) *SelectionRepository {
	return &SelectionRepository{coll: coll, obs: obs}
}

func keyFilter(classID, email string) bson.M {
	return bson.M{"classId": classID, "studentEmail": email}
}

// Insert stores a new selection. A second selection for the same pair fails
// with a duplicate key error from the unique index.
func (r *SelectionRepository) Insert(ctx context.Context, sel *models.StudentClassSelection) (string, error) {
	defer track(r.obs, "selections.insert")()

	res, err := r.coll.InsertOne(ctx, sel)
	if err != nil {
		return "", fmt.Errorf("insert selection: %w", err)
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	sel.ID = oid
	return oid.Hex(), nil
}

// FindByKey returns the selection for a pair or mongo.ErrNoDocuments.
func (r *SelectionRepository) FindByKey(ctx context.Context, classID, email string) (*models.StudentClassSelection, error) {
	defer track(r.obs, "selections.find_by_key")()

	var sel models.StudentClassSelection
	if err := r.coll.FindOne(ctx, keyFilter(classID, email)).Decode(&sel); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("find selection: %w", err)
	}
	return &sel, nil
}

// DeletePending removes a selection that has not been paid yet.
func (r *SelectionRepository) DeletePending(ctx context.Context, classID, email string) (int64, error) {
	defer track(r.obs, "selections.delete_pending")()

	filter := keyFilter(classID, email)
	filter["paymentStatus"] = models.PaymentStatusPending
	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete selection: %w", err)
	}
	return res.DeletedCount, nil
}

// ListByStudent returns a student's selections in the given payment state,
// oldest selection first.
func (r *SelectionRepository) ListByStudent(ctx context.Context, email string, status models.PaymentStatus) ([]models.StudentClassSelection, error) {
	defer track(r.obs, "selections.list_by_student")()
	opts := options.Find().SetSort(bson.D{{Key: "selectedAt", Value: 1}})
	return r.find(ctx, bson.M{"studentEmail": email, "paymentStatus": status}, opts)
}

// PaymentHistory returns a student's paid selections, newest payment first.
func (r *SelectionRepository) PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	defer track(r.obs, "selections.payment_history")()
	opts := options.Find().SetSort(bson.D{{Key: "paymentDate", Value: -1}})
	return r.find(ctx, bson.M{"studentEmail": email, "paymentStatus": models.PaymentStatusSuccessful}, opts)
}

// MarkSuccessful moves a pending selection to successful. It reports false
// when no pending selection exists for the pair, which makes the transition
// happen at most once.
func (r *SelectionRepository) MarkSuccessful(ctx context.Context, classID, email string, details models.PaymentDetails) (bool, error) {
	defer track(r.obs, "selections.mark_successful")()

	filter := keyFilter(classID, email)
	filter["paymentStatus"] = models.PaymentStatusPending
	update := bson.M{"$set": bson.M{
		"paymentStatus": models.PaymentStatusSuccessful,
		"paymentDate":   details.PaymentDate,
		"transactionId": details.TransactionID,
	}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mark selection successful: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// RevertToPending undoes MarkSuccessful for the given transaction.
func (r *SelectionRepository) RevertToPending(ctx context.Context, classID, email, transactionID string) error {
	defer track(r.obs, "selections.revert_to_pending")()

	filter := keyFilter(classID, email)
	filter["paymentStatus"] = models.PaymentStatusSuccessful
	filter["transactionId"] = transactionID
	update := bson.M{
		"$set":   bson.M{"paymentStatus": models.PaymentStatusPending},
		"$unset": bson.M{"paymentDate": "", "transactionId": ""},
	}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("revert selection: %w", err)
	}
	return nil
}

// DeleteByTransaction removes a selection created for the given transaction.
func (r *SelectionRepository) DeleteByTransaction(ctx context.Context, classID, email, transactionID string) error {
	defer track(r.obs, "selections.delete_by_transaction")()

	filter := keyFilter(classID, email)
	filter["transactionId"] = transactionID
	if _, err := r.coll.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("delete selection by transaction: %w", err)
	}
	return nil
}

// CountSuccessfulByClass counts paid selections per class id.
func (r *SelectionRepository) CountSuccessfulByClass(ctx context.Context) (map[string]int, error) {
	defer track(r.obs, "selections.count_successful")()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"paymentStatus": models.PaymentStatusSuccessful}}},
		{{Key: "$group", Value: bson.M{"_id": "$classId", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate successful selections: %w", err)
	}
	var rows []struct {
		ClassID string `bson:"_id"`
		Count   int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode successful selections: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ClassID] = row.Count
	}
	return counts, nil
}

func (r *SelectionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.StudentClassSelection, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find selections: %w", err)
	}
	selections := []models.StudentClassSelection{}
	if err := cur.All(ctx, &selections); err != nil {
		return nil, fmt.Errorf("decode selections: %w", err)
	}
	return selections, nil
}
