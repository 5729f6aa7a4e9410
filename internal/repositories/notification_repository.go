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

// NotificationRefresh is applied to an existing deduplicated notification
// when the same action repeats outside its cooldown.
type NotificationRefresh struct {
	Title     string
	Message   string
	Data      models.NotificationPayload
	ExpiresAt time.Time
	At        time.Time
}

// NotificationRewrite converts a notification into another type in place.
type NotificationRewrite struct {
	Type      models.NotificationType
	Title     string
	Message   string
	Data      models.NotificationPayload
	ExpiresAt time.Time
	At        time.Time
}

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	RefreshByDedupKey(ctx context.Context, key string, notAfter time.Time, refresh NotificationRefresh) (*models.Notification, error)
	FindByDedupKey(ctx context.Context, key string) (*models.Notification, error)
	Rewrite(ctx context.Context, key string, rewrite NotificationRewrite) (*models.Notification, error)
	DeleteByDedupKey(ctx context.Context, key string) (bool, error)
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, now time.Time, skip, limit int64) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint, now time.Time) (int64, error)
	MarkRead(ctx context.Context, userID uint, id primitive.ObjectID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, userID uint, id primitive.ObjectID) (bool, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error
	FindExpired(ctx context.Context, now time.Time, t models.NotificationType) ([]models.Notification, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection(NotificationsCollection)}
}

// Insert stores a new notification. A record with the same dedup key already
// present yields ErrDuplicate.
func (r *MongoNotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, n)
	return mapMongoError(err)
}

// RefreshByDedupKey marks the record unread and resets its timestamps, but only
// if it was created at or before notAfter. ErrNotFound means there is no record
// or it is still inside its cooldown.
func (r *MongoNotificationRepository) RefreshByDedupKey(ctx context.Context, key string, notAfter time.Time, refresh NotificationRefresh) (*models.Notification, error) {
	filter := bson.M{"dedup_key": key, "created_at": bson.M{"$lte": notAfter}}
	update := bson.M{
		"$set": bson.M{
			"title":        refresh.Title,
			"message":      refresh.Message,
			"data":         refresh.Data,
			"is_read":      false,
			"is_delivered": false,
			"created_at":   refresh.At,
			"updated_at":   refresh.At,
			"expires_at":   refresh.ExpiresAt,
		},
		"$unset": bson.M{"read_at": "", "delivered_at": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *MongoNotificationRepository) FindByDedupKey(ctx context.Context, key string) (*models.Notification, error) {
	var n models.Notification
	if err := r.collection.FindOne(ctx, bson.M{"dedup_key": key}).Decode(&n); err != nil {
		return nil, mapMongoError(err)
	}
	return &n, nil
}

// Rewrite changes the type and content of the record holding key and drops the
// key, keeping its identity and read state.
func (r *MongoNotificationRepository) Rewrite(ctx context.Context, key string, rewrite NotificationRewrite) (*models.Notification, error) {
	update := bson.M{
		"$set": bson.M{
			"type":       rewrite.Type,
			"title":      rewrite.Title,
			"message":    rewrite.Message,
			"data":       rewrite.Data,
			"updated_at": rewrite.At,
			"expires_at": rewrite.ExpiresAt,
		},
		"$unset": bson.M{"dedup_key": ""},
	}
	return r.findOneAndUpdate(ctx, bson.M{"dedup_key": key}, update)
}

func (r *MongoNotificationRepository) DeleteByDedupKey(ctx context.Context, key string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"dedup_key": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListByUser returns a page of unexpired notifications, newest first, and the
// total matching the same filter.
func (r *MongoNotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, now time.Time, skip, limit int64) ([]models.Notification, int64, error) {
	filter := bson.M{"user_id": userID, "expires_at": bson.M{"$gt": now}}
	if unreadOnly {
		filter["is_read"] = false
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *MongoNotificationRepository) CountUnread(ctx context.Context, userID uint, now time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"user_id":    userID,
		"is_read":    false,
		"expires_at": bson.M{"$gt": now},
	})
}

// MarkRead marks one of the user's notifications read. Notifications owned by
// other users do not match.
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, userID uint, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at, "updated_at": at}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at, "updated_at": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoNotificationRepository) Delete(ctx context.Context, userID uint, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoNotificationRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_delivered": true, "delivered_at": at}},
	)
	return err
}

// FindExpired returns notifications of type t whose expiry has passed.
func (r *MongoNotificationRepository) FindExpired(ctx context.Context, now time.Time, t models.NotificationType) ([]models.Notification, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"type": t, "expires_at": bson.M{"$lt": now}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *MongoNotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoNotificationRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Notification, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n models.Notification
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&n); err != nil {
		return nil, mapMongoError(err)
	}
	return &n, nil
}
