package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FollowStatus is the state of an ordered follow pair.
type FollowStatus string

const (
	FollowStatusPending  FollowStatus = "pending"
	FollowStatusAccepted FollowStatus = "accepted"
	FollowStatusRejected FollowStatus = "rejected"
	FollowStatusBlocked  FollowStatus = "blocked"
)

// FollowRelationship is the single document kept per ordered (follower, following)
// pair in MongoDB. Unfollow only clears IsActive so the document can be reactivated.
type FollowRelationship struct {
	ID                   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FollowerID           uint               `json:"follower_id" bson:"follower_id"`
	FollowingID          uint               `json:"following_id" bson:"following_id"`
	Status               FollowStatus       `json:"status" bson:"status"`
	IsActive             bool               `json:"is_active" bson:"is_active"`
	FollowedAt           *time.Time         `json:"followed_at" bson:"followed_at"`
	NotificationsEnabled bool               `json:"notifications_enabled" bson:"notifications_enabled"`
	CreatedAt            time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsFollowing reports whether the relationship currently counts as a follow.
func (f *FollowRelationship) IsFollowing() bool {
	return f.IsActive && f.Status == FollowStatusAccepted
}

// FollowUser is a follower/following list entry.
type FollowUser struct {
	User       UserCompact `json:"user"`
	FollowedAt *time.Time  `json:"followed_at"`
}

// FollowRequest is a pending request shown to its recipient.
type FollowRequest struct {
	RelationshipID primitive.ObjectID `json:"relationship_id"`
	Requester      UserCompact        `json:"requester"`
	RequestedAt    time.Time          `json:"requested_at"`
}

// FollowStats is the follow summary shown on a profile.
type FollowStats struct {
	UserID         uint  `json:"user_id"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
	IsFollowedBy   bool  `json:"is_followed_by"`
	RequestPending bool  `json:"request_pending"`
}

// SuggestedUser is a follow suggestion ranked by progress.
type SuggestedUser struct {
	UserCompact
	TotalPoints    int `json:"total_points"`
	CompletedGoals int `json:"completed_goals"`
}
