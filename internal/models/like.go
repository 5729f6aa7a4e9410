package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LikeTarget names the kind of record a like points at.
type LikeTarget string

const (
	LikeTargetActivity LikeTarget = "activity"
	LikeTargetGoal     LikeTarget = "goal"
	LikeTargetComment  LikeTarget = "comment"
)

// Like is a like on an activity, goal or comment (MongoDB).
// (target_type, target_id, user_id) is unique.
type Like struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TargetType LikeTarget         `json:"target_type" bson:"target_type"`
	TargetID   string             `json:"target_id" bson:"target_id"`
	UserID     uint               `json:"user_id" bson:"user_id"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// LikeState is returned after a like or unlike.
type LikeState struct {
	TargetType LikeTarget `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Liked      bool       `json:"liked"`
	LikeCount  int64      `json:"like_count"`
}
