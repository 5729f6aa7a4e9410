package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on an activity (MongoDB)
type Comment struct {
	ID         primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ActivityID primitive.ObjectID  `json:"activity_id" bson:"activity_id"`
	UserID     uint                `json:"user_id" bson:"user_id"`
	ParentID   *primitive.ObjectID `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Content    string              `json:"content" bson:"content"`
	Mentions   []uint              `json:"mentions,omitempty" bson:"mentions,omitempty"`
	CreatedAt  time.Time           `json:"created_at" bson:"created_at"`
}

// CreateCommentRequest defines the request body for commenting on an activity
type CreateCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=500"`
	ParentID string `json:"parent_id" validate:"omitempty,len=24,hexadecimal"`
	Mentions []uint `json:"mentions" validate:"max=20"`
}

// CommentWithAuthor is a comment with its author's display data.
type CommentWithAuthor struct {
	Comment
	Author *UserCompact `json:"author,omitempty"`
}
