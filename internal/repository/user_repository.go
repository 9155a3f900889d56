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

// UserRepository provides access to the users collection.
type UserRepository struct {
	coll *mongo.Collection
	obs  QueryObserver
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(coll *mongo.Collection, obs QueryObserver) *UserRepository {
	return &UserRepository{coll: coll, obs: obs}
}

// FindByEmail returns a user by email address or mongo.ErrNoDocuments.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer track(r.obs, "users.find_by_email")()

	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// InsertIfAbsent creates the user unless one with the same email exists. It
// reports whether a document was created and its id.
func (r *UserRepository) InsertIfAbsent(ctx context.Context, user *models.User) (bool, string, error) {
	defer track(r.obs, "users.insert_if_absent")()

	doc := bson.M{"email": user.Email, "role": user.Role}
	if user.Name != "" {
		doc["name"] = user.Name
	}
	if user.Photo != "" {
		doc["photo"] = user.Photo
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": user.Email},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// A concurrent sign-in won the race on the unique email index.
		if mongo.IsDuplicateKeyError(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("upsert user: %w", err)
	}
	if res.UpsertedCount == 0 {
		return false, "", nil
	}
	id := ""
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	return true, id, nil
}

// List returns every user.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	defer track(r.obs, "users.list")()
	return r.find(ctx, bson.M{})
}

// ListByRole returns users holding the given role.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	defer track(r.obs, "users.list_by_role")()
	return r.find(ctx, bson.M{"role": role})
}

// FindByEmails returns the users whose email is in emails, in store order.
func (r *UserRepository) FindByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	if len(emails) == 0 {
		return []models.User{}, nil
	}
	defer track(r.obs, "users.find_by_emails")()
	return r.find(ctx, bson.M{"email": bson.M{"$in": emails}})
}

// UpdateRole sets the role of the user with the given id.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) (models.UpdateResult, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return models.UpdateResult{}, err
	}
	defer track(r.obs, "users.update_role")()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update user role: %w", err)
	}
	return models.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}
