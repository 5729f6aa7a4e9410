package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FollowRepository defines the interface for follow relationship operations.
// State-changing methods are conditional single-document updates; a false
// result means the pair was not in the expected state.
type FollowRepository interface {
	FindPair(ctx context.Context, followerID, followingID uint) (*models.FollowRelationship, error)
	Insert(ctx context.Context, rel *models.FollowRelationship) error
	Activate(ctx context.Context, followerID, followingID uint, at time.Time) (*models.FollowRelationship, error)
	Deactivate(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error)
	MarkPending(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error)
	Accept(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error)
	Reject(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error)
	SetBlocked(ctx context.Context, blockerID, blockedID uint, at time.Time) (*models.FollowRelationship, error)
	Unblock(ctx context.Context, blockerID, blockedID uint, at time.Time) (bool, error)
	DeletePending(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	BlockExists(ctx context.Context, a, b uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error)
	ListFollowing(ctx context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error)
	ListPendingRequests(ctx context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	CountPendingRequests(ctx context.Context, userID uint) (int64, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	BlockedIDs(ctx context.Context, userID uint) ([]uint, error)
}

// MongoFollowRepository implements FollowRepository for MongoDB
type MongoFollowRepository struct {
	collection *mongo.Collection
}

// NewMongoFollowRepository creates a new MongoFollowRepository
func NewMongoFollowRepository(db *mongo.Database) *MongoFollowRepository {
	return &MongoFollowRepository{collection: db.Collection(FollowsCollection)}
}

func pairFilter(followerID, followingID uint) bson.M {
	return bson.M{"follower_id": followerID, "following_id": followingID}
}

func activeFollowFilter() bson.M {
	return bson.M{"status": models.FollowStatusAccepted, "is_active": true}
}

func (r *MongoFollowRepository) FindPair(ctx context.Context, followerID, followingID uint) (*models.FollowRelationship, error) {
	var rel models.FollowRelationship
	if err := r.collection.FindOne(ctx, pairFilter(followerID, followingID)).Decode(&rel); err != nil {
		return nil, mapMongoError(err)
	}
	return &rel, nil
}

// Insert creates the pair document. A concurrent insert for the same pair
// loses on the unique index and gets ErrDuplicate.
func (r *MongoFollowRepository) Insert(ctx context.Context, rel *models.FollowRelationship) error {
	if rel.ID.IsZero() {
		rel.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, rel)
	return mapMongoError(err)
}

// Activate turns any non-blocked, not-currently-following pair into an active
// accepted follow and returns the document as it was before the update.
func (r *MongoFollowRepository) Activate(ctx context.Context, followerID, followingID uint, at time.Time) (*models.FollowRelationship, error) {
	filter := pairFilter(followerID, followingID)
	filter["status"] = bson.M{"$ne": models.FollowStatusBlocked}
	filter["$nor"] = bson.A{activeFollowFilter()}

	update := bson.M{"$set": bson.M{
		"status":      models.FollowStatusAccepted,
		"is_active":   true,
		"followed_at": at,
		"updated_at":  at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prev models.FollowRelationship
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&prev); err != nil {
		return nil, mapMongoError(err)
	}
	return &prev, nil
}

// Deactivate soft-deletes an active follow. The document is retained.
func (r *MongoFollowRepository) Deactivate(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error) {
	filter := pairFilter(followerID, followingID)
	for k, v := range activeFollowFilter() {
		filter[k] = v
	}
	return r.updateOne(ctx, filter, bson.M{"$set": bson.M{"is_active": false, "updated_at": at}})
}

// MarkPending recycles an existing inactive or rejected pair as a pending request.
func (r *MongoFollowRepository) MarkPending(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error) {
	filter := pairFilter(followerID, followingID)
	filter["status"] = bson.M{"$nin": bson.A{models.FollowStatusBlocked, models.FollowStatusPending}}
	filter["$nor"] = bson.A{activeFollowFilter()}

	update := bson.M{"$set": bson.M{
		"status":      models.FollowStatusPending,
		"is_active":   true,
		"followed_at": nil,
		"updated_at":  at,
	}}
	return r.updateOne(ctx, filter, update)
}

// Accept flips a pending request to an active follow.
func (r *MongoFollowRepository) Accept(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error) {
	filter := pairFilter(followerID, followingID)
	filter["status"] = models.FollowStatusPending

	update := bson.M{"$set": bson.M{
		"status":      models.FollowStatusAccepted,
		"is_active":   true,
		"followed_at": at,
		"updated_at":  at,
	}}
	return r.updateOne(ctx, filter, update)
}

// Reject flips a pending request to rejected and clears followed_at.
func (r *MongoFollowRepository) Reject(ctx context.Context, followerID, followingID uint, at time.Time) (bool, error) {
	filter := pairFilter(followerID, followingID)
	filter["status"] = models.FollowStatusPending

	update := bson.M{"$set": bson.M{
		"status":      models.FollowStatusRejected,
		"is_active":   false,
		"followed_at": nil,
		"updated_at":  at,
	}}
	return r.updateOne(ctx, filter, update)
}

// SetBlocked upserts the pair as blocked and returns the previous document,
// or nil when the pair did not exist.
func (r *MongoFollowRepository) SetBlocked(ctx context.Context, blockerID, blockedID uint, at time.Time) (*models.FollowRelationship, error) {
	update := bson.M{
		"$set": bson.M{
			"status":      models.FollowStatusBlocked,
			"is_active":   false,
			"followed_at": nil,
			"updated_at":  at,
		},
		"$setOnInsert": bson.M{
			"notifications_enabled": false,
			"created_at":            at,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	// An upsert racing an Insert for the same pair loses on the unique index;
	// the second attempt matches the inserted document and updates it.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var prev models.FollowRelationship
		err = r.collection.FindOneAndUpdate(ctx, pairFilter(blockerID, blockedID), update, opts).Decode(&prev)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err == nil {
			return &prev, nil
		}
		if err = mapMongoError(err); !errors.Is(err, ErrDuplicate) {
			return nil, err
		}
	}
	return nil, err
}

// Unblock returns a blocked pair to the inactive rejected state.
func (r *MongoFollowRepository) Unblock(ctx context.Context, blockerID, blockedID uint, at time.Time) (bool, error) {
	filter := pairFilter(blockerID, blockedID)
	filter["status"] = models.FollowStatusBlocked
	return r.updateOne(ctx, filter, bson.M{"$set": bson.M{
		"status":     models.FollowStatusRejected,
		"is_active":  false,
		"updated_at": at,
	}})
}

// DeletePending permanently removes a pair that is still pending.
func (r *MongoFollowRepository) DeletePending(ctx context.Context, followerID, followingID uint) (bool, error) {
	filter := pairFilter(followerID, followingID)
	filter["status"] = models.FollowStatusPending
	res, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	filter := pairFilter(followerID, followingID)
	for k, v := range activeFollowFilter() {
		filter[k] = v
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BlockExists reports whether either user has blocked the other.
func (r *MongoFollowRepository) BlockExists(ctx context.Context, a, b uint) (bool, error) {
	filter := bson.M{
		"status": models.FollowStatusBlocked,
		"$or":    bson.A{pairFilter(a, b), pairFilter(b, a)},
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *MongoFollowRepository) ListFollowers(ctx context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error) {
	filter := activeFollowFilter()
	filter["following_id"] = userID
	return r.list(ctx, filter, skip, limit)
}

func (r *MongoFollowRepository) ListFollowing(ctx context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error) {
	filter := activeFollowFilter()
	filter["follower_id"] = userID
	return r.list(ctx, filter, skip, limit)
}

func (r *MongoFollowRepository) ListPendingRequests(ctx context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error) {
	return r.list(ctx, bson.M{"following_id": userID, "status": models.FollowStatusPending}, skip, limit)
}

func (r *MongoFollowRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	filter := activeFollowFilter()
	filter["following_id"] = userID
	return r.collection.CountDocuments(ctx, filter)
}

func (r *MongoFollowRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	filter := activeFollowFilter()
	filter["follower_id"] = userID
	return r.collection.CountDocuments(ctx, filter)
}

func (r *MongoFollowRepository) CountPendingRequests(ctx context.Context, userID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"following_id": userID, "status": models.FollowStatusPending})
}

func (r *MongoFollowRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	filter := activeFollowFilter()
	filter["following_id"] = userID
	return r.pluck(ctx, filter, func(p pairIDs) uint { return p.FollowerID })
}

func (r *MongoFollowRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	filter := activeFollowFilter()
	filter["follower_id"] = userID
	return r.pluck(ctx, filter, func(p pairIDs) uint { return p.FollowingID })
}

// BlockedIDs returns every user blocked by, or blocking, userID.
func (r *MongoFollowRepository) BlockedIDs(ctx context.Context, userID uint) ([]uint, error) {
	filter := bson.M{
		"status": models.FollowStatusBlocked,
		"$or":    bson.A{bson.M{"follower_id": userID}, bson.M{"following_id": userID}},
	}
	return r.pluck(ctx, filter, func(p pairIDs) uint {
		if p.FollowerID == userID {
			return p.FollowingID
		}
		return p.FollowerID
	})
}

func (r *MongoFollowRepository) updateOne(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, mapMongoError(err)
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoFollowRepository) list(ctx context.Context, filter bson.M, skip, limit int64) ([]models.FollowRelationship, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rels []models.FollowRelationship
	if err = cursor.All(ctx, &rels); err != nil {
		return nil, err
	}
	return rels, nil
}

type pairIDs struct {
	FollowerID  uint `bson:"follower_id"`
	FollowingID uint `bson:"following_id"`
}

func (r *MongoFollowRepository) pluck(ctx context.Context, filter bson.M, pick func(pairIDs) uint) ([]uint, error) {
	projection := options.Find().SetProjection(bson.M{"follower_id": 1, "following_id": 1, "_id": 0})
	cursor, err := r.collection.Find(ctx, filter, projection)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []pairIDs
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, pick(row))
	}
	return ids, nil
}
