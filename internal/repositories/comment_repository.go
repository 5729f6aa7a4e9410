package repositories

import (
	"context"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ListByActivity(ctx context.Context, activityID primitive.ObjectID, skip, limit int64) ([]models.Comment, int64, error)
	CountByActivities(ctx context.Context, activityIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error)
}

// MongoCommentRepository implements CommentRepository for MongoDB
type MongoCommentRepository struct {
	collection *mongo.Collection
}

// NewMongoCommentRepository creates a new MongoCommentRepository
func NewMongoCommentRepository(db *mongo.Database) *MongoCommentRepository {
	return &MongoCommentRepository{collection: db.Collection(CommentsCollection)}
}

func (r *MongoCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, comment)
	return err
}

func (r *MongoCommentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		return nil, mapMongoError(err)
	}
	return &comment, nil
}

// ListByActivity returns comments oldest first, with the total for the activity.
func (r *MongoCommentRepository) ListByActivity(ctx context.Context, activityID primitive.ObjectID, skip, limit int64) ([]models.Comment, int64, error) {
	filter := bson.M{"activity_id": activityID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// CountByActivities returns comment counts for a batch of activities.
func (r *MongoCommentRepository) CountByActivities(ctx context.Context, activityIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	counts := make(map[primitive.ObjectID]int64, len(activityIDs))
	if len(activityIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"activity_id": bson.M{"$in": activityIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$activity_id", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}
