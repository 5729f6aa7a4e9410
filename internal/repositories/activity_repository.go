package repositories

import (
	"context"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivityQuery selects active activities. Zero-valued fields do not filter,
// except that a non-nil empty AuthorIDs matches nothing.
type ActivityQuery struct {
	AuthorIDs        []uint
	ExcludeAuthorIDs []uint
	Types            []models.ActivityType
	PublicOnly       bool
	Since            time.Time
	Skip             int64
	Limit            int64
}

func (q ActivityQuery) filter() bson.M {
	filter := bson.M{"is_active": true}
	userFilter := bson.M{}
	if q.AuthorIDs != nil {
		userFilter["$in"] = q.AuthorIDs
	}
	if len(q.ExcludeAuthorIDs) > 0 {
		userFilter["$nin"] = q.ExcludeAuthorIDs
	}
	if len(userFilter) > 0 {
		filter["user_id"] = userFilter
	}
	if len(q.Types) > 0 {
		filter["type"] = bson.M{"$in": q.Types}
	}
	if q.PublicOnly {
		filter["is_public"] = true
	}
	if !q.Since.IsZero() {
		filter["created_at"] = bson.M{"$gte": q.Since}
	}
	return filter
}

// ActivityRepository defines the interface for activity data operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Activity, error)
	Find(ctx context.Context, q ActivityQuery) ([]models.Activity, error)
	Count(ctx context.Context, q ActivityQuery) (int64, error)
	Deactivate(ctx context.Context, id primitive.ObjectID, userID uint, at time.Time) (bool, error)
}

// MongoActivityRepository implements ActivityRepository for MongoDB
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new MongoActivityRepository
func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{collection: db.Collection(ActivitiesCollection)}
}

func (r *MongoActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID.IsZero() {
		activity.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, activity)
	return err
}

// GetByID returns an active activity.
func (r *MongoActivityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Activity, error) {
	var activity models.Activity
	if err := r.collection.FindOne(ctx, bson.M{"_id": id, "is_active": true}).Decode(&activity); err != nil {
		return nil, mapMongoError(err)
	}
	return &activity, nil
}

// Find returns matching activities newest first.
func (r *MongoActivityRepository) Find(ctx context.Context, q ActivityQuery) ([]models.Activity, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if q.Skip > 0 {
		findOptions.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		findOptions.SetLimit(q.Limit)
	}
	cursor, err := r.collection.Find(ctx, q.filter(), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var activities []models.Activity
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *MongoActivityRepository) Count(ctx context.Context, q ActivityQuery) (int64, error) {
	return r.collection.CountDocuments(ctx, q.filter())
}

// Deactivate soft-deletes an activity owned by userID.
func (r *MongoActivityRepository) Deactivate(ctx context.Context, id primitive.ObjectID, userID uint, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
