package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the document store.
const (
	FollowsCollection       = "follows"
	NotificationsCollection = "notifications"
	ActivitiesCollection    = "activities"
	LikesCollection         = "likes"
	CommentsCollection      = "comments"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// indexes on follow pairs, like triples and notification dedup keys are what
// make concurrent identical writes resolve to a single document.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		FollowsCollection: {
			{
				Keys:    bson.D{{Key: "follower_id", Value: 1}, {Key: "following_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("follow_pair_unique"),
			},
			{Keys: bson.D{{Key: "following_id", Value: 1}, {Key: "status", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "follower_id", Value: 1}, {Key: "status", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}, {Key: "type", Value: 1}}},
			{
				Keys: bson.D{{Key: "dedup_key", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("dedup_key_unique").
					SetPartialFilterExpression(bson.M{"dedup_key": bson.M{"$type": "string"}}),
			},
		},
		ActivitiesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "is_public", Value: 1}, {Key: "type", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		LikesCollection: {
			{
				Keys:    bson.D{{Key: "target_type", Value: 1}, {Key: "target_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("like_triple_unique"),
			},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "activity_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
