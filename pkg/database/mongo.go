package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/justmusic/justmusic-api/pkg/config"
)

// Collection names used by the application.
const (
	UsersCollection      = "users"
	ClassesCollection    = "classes"
	SelectionsCollection = "studentClasses"
)

// Mongo owns the client connection and exposes the application collections.
// It is created once at startup and closed on shutdown.
type Mongo struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// NewMongo connects to the configured deployment and verifies it with a ping.
func NewMongo(ctx context.Context, cfg config.MongoConfig) (*Mongo, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Mongo{client: client, db: client.Database(cfg.Database), transactions: cfg.Transactions}, nil
}

// Users returns the users collection. The repositories are built from these accessors.
func (m *Mongo) Users() *mongo.Collection {
	return m.db.Collection(UsersCollection)
}

func (m *Mongo) Classes() *mongo.Collection {
	return m.db.Collection(ClassesCollection)
}

func (m *Mongo) Selections() *mongo.Collection {
	return m.db.Collection(SelectionsCollection)
}

// SupportsTransactions reports whether WithTransaction runs a real
// multi-document transaction.
func (m *Mongo) SupportsTransactions() bool {
	return m.transactions
}

// WithTransaction runs fn inside a multi-document transaction when enabled.
// Standalone servers cannot run transactions, so fn is invoked directly there.
// The driver may retry fn on transient errors; fn must be safe to re-run.
func (m *Mongo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Ping verifies the connection is still healthy.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

// indexSpecs lists the indexes the application relies on. The unique
// (classId, studentEmail) index is what makes a selection's natural key hold.
func indexSpecs() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: UsersCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
				{Keys: bson.D{{Key: "role", Value: 1}}, Options: options.Index().SetName("role")},
			},
		},
		{
			collection: ClassesCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "totalEnrolledStudent", Value: -1}}, Options: options.Index().SetName("status_enrolled")},
				{Keys: bson.D{{Key: "instructorEmail", Value: 1}}, Options: options.Index().SetName("instructor_email")},
			},
		},
		{
			collection: SelectionsCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "classId", Value: 1}, {Key: "studentEmail", Value: 1}}, Options: options.Index().SetName("uniq_class_student").SetUnique(true)},
				{Keys: bson.D{{Key: "studentEmail", Value: 1}, {Key: "paymentStatus", Value: 1}}, Options: options.Index().SetName("student_status")},
			},
		},
	}
}

// EnsureIndexes creates the application indexes. Creating an index that
// already exists with the same definition is a no-op.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	for _, spec := range indexSpecs() {
		if _, err := m.db.Collection(spec.collection).Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.collection, err)
		}
	}
	return nil
}
