package repositories

import (
	"context"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	Create(ctx context.Context, like *models.Like) error
	Delete(ctx context.Context, target models.LikeTarget, targetID string, userID uint) (bool, error)
	CountByTargets(ctx context.Context, target models.LikeTarget, targetIDs []string) (map[string]int64, error)
	LikedByUser(ctx context.Context, target models.LikeTarget, targetIDs []string, userID uint) (map[string]bool, error)
}

// MongoLikeRepository implements LikeRepository for MongoDB
type MongoLikeRepository struct {
	collection *mongo.Collection
}

// NewMongoLikeRepository creates a new MongoLikeRepository
func NewMongoLikeRepository(db *mongo.Database) *MongoLikeRepository {
	return &MongoLikeRepository{collection: db.Collection(LikesCollection)}
}

// Create stores a like. Liking the same target twice yields ErrDuplicate.
func (r *MongoLikeRepository) Create(ctx context.Context, like *models.Like) error {
	if like.ID.IsZero() {
		like.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, like)
	return mapMongoError(err)
}

func (r *MongoLikeRepository) Delete(ctx context.Context, target models.LikeTarget, targetID string, userID uint) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"target_type": target, "target_id": targetID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// CountByTargets returns like counts for a batch of targets in one round trip.
// Targets with no likes are absent from the map.
func (r *MongoLikeRepository) CountByTargets(ctx context.Context, target models.LikeTarget, targetIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"target_type": target, "target_id": bson.M{"$in": targetIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$target_id", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

// LikedByUser reports which of the targets userID has liked.
func (r *MongoLikeRepository) LikedByUser(ctx context.Context, target models.LikeTarget, targetIDs []string, userID uint) (map[string]bool, error) {
	liked := make(map[string]bool, len(targetIDs))
	if len(targetIDs) == 0 {
		return liked, nil
	}

	filter := bson.M{"target_type": target, "target_id": bson.M{"$in": targetIDs}, "user_id": userID}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"target_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []models.Like
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		liked[row.TargetID] = true
	}
	return liked, nil
}
