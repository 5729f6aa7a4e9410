package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channels selects the surfaces a notification is delivered on.
type Channels struct {
	InApp bool `json:"in_app" bson:"in_app"`
	Email bool `json:"email" bson:"email"`
	Push  bool `json:"push" bson:"push"`
}

// Notification is a user notification (MongoDB). Data holds the payload
// matching Type; see NewPayload for the mapping.
type Notification struct {
	ID          primitive.ObjectID  `json:"id"`
	UserID      uint                `json:"user_id"`
	Type        NotificationType    `json:"type"`
	Title       string              `json:"title"`
	Message     string              `json:"message"`
	Data        NotificationPayload `json:"data"`
	IsRead      bool                `json:"is_read"`
	IsDelivered bool                `json:"is_delivered"`
	Channels    Channels            `json:"channels"`
	DedupKey    string              `json:"-"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ReadAt      *time.Time          `json:"read_at"`
	DeliveredAt *time.Time          `json:"delivered_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// notificationDoc is the stored shape. The payload is kept raw until the
// type is known.
type notificationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      uint               `bson:"user_id"`
	Type        NotificationType   `bson:"type"`
	Title       string             `bson:"title"`
	Message     string             `bson:"message"`
	Data        bson.Raw           `bson:"data,omitempty"`
	IsRead      bool               `bson:"is_read"`
	IsDelivered bool               `bson:"is_delivered"`
	Channels    Channels           `bson:"channels"`
	DedupKey    string             `bson:"dedup_key,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	ReadAt      *time.Time         `bson:"read_at,omitempty"`
	DeliveredAt *time.Time         `bson:"delivered_at,omitempty"`
	ExpiresAt   time.Time          `bson:"expires_at"`
}

// MarshalBSON implements bson.Marshaler.
func (n Notification) MarshalBSON() ([]byte, error) {
	doc := notificationDoc{
		ID:          n.ID,
		UserID:      n.UserID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		IsRead:      n.IsRead,
		IsDelivered: n.IsDelivered,
		Channels:    n.Channels,
		DedupKey:    n.DedupKey,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
		ReadAt:      n.ReadAt,
		DeliveredAt: n.DeliveredAt,
		ExpiresAt:   n.ExpiresAt,
	}
	if n.Data != nil {
		raw, err := bson.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", n.Type, err)
		}
		doc.Data = raw
	}
	return bson.Marshal(doc)
}

// UnmarshalBSON implements bson.Unmarshaler.
func (n *Notification) UnmarshalBSON(data []byte) error {
	var doc notificationDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	*n = Notification{
		ID:          doc.ID,
		UserID:      doc.UserID,
		Type:        doc.Type,
		Title:       doc.Title,
		Message:     doc.Message,
		IsRead:      doc.IsRead,
		IsDelivered: doc.IsDelivered,
		Channels:    doc.Channels,
		DedupKey:    doc.DedupKey,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		ReadAt:      doc.ReadAt,
		DeliveredAt: doc.DeliveredAt,
		ExpiresAt:   doc.ExpiresAt,
	}
	payload := NewPayload(doc.Type)
	if payload == nil || len(doc.Data) == 0 {
		return nil
	}
	if err := bson.Unmarshal(doc.Data, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", doc.Type, err)
	}
	n.Data = payload
	return nil
}

// NotificationPayload is the type-specific part of a notification. Actor and
// target feed the dedup key.
type NotificationPayload interface {
	ActorID() uint
	TargetID() string
}

// FollowPayload is carried by follow_request and new_follower.
type FollowPayload struct {
	FollowerID     uint   `json:"follower_id" bson:"follower_id"`
	FollowerName   string `json:"follower_name" bson:"follower_name"`
	FollowerAvatar string `json:"follower_avatar,omitempty" bson:"follower_avatar,omitempty"`
}

func (p *FollowPayload) ActorID() uint    { return p.FollowerID }
func (p *FollowPayload) TargetID() string { return "" }

// FollowAcceptedPayload is carried by follow_accepted.
type FollowAcceptedPayload struct {
	AccepterID     uint   `json:"accepter_id" bson:"accepter_id"`
	AccepterName   string `json:"accepter_name" bson:"accepter_name"`
	AccepterAvatar string `json:"accepter_avatar,omitempty" bson:"accepter_avatar,omitempty"`
}

func (p *FollowAcceptedPayload) ActorID() uint    { return p.AccepterID }
func (p *FollowAcceptedPayload) TargetID() string { return "" }

// GoalLikePayload is carried by goal_liked.
type GoalLikePayload struct {
	LikerID   uint   `json:"liker_id" bson:"liker_id"`
	LikerName string `json:"liker_name" bson:"liker_name"`
	GoalID    uint   `json:"goal_id" bson:"goal_id"`
	GoalTitle string `json:"goal_title" bson:"goal_title"`
}

func (p *GoalLikePayload) ActorID() uint    { return p.LikerID }
func (p *GoalLikePayload) TargetID() string { return fmt.Sprintf("goal:%d", p.GoalID) }

// ActivityLikePayload is carried by activity_liked.
type ActivityLikePayload struct {
	LikerID      uint         `json:"liker_id" bson:"liker_id"`
	LikerName    string       `json:"liker_name" bson:"liker_name"`
	ActivityID   string       `json:"activity_id" bson:"activity_id"`
	ActivityType ActivityType `json:"activity_type" bson:"activity_type"`
}

func (p *ActivityLikePayload) ActorID() uint    { return p.LikerID }
func (p *ActivityLikePayload) TargetID() string { return "activity:" + p.ActivityID }

// CommentLikePayload is carried by comment_liked.
type CommentLikePayload struct {
	LikerID    uint   `json:"liker_id" bson:"liker_id"`
	LikerName  string `json:"liker_name" bson:"liker_name"`
	CommentID  string `json:"comment_id" bson:"comment_id"`
	ActivityID string `json:"activity_id" bson:"activity_id"`
}

func (p *CommentLikePayload) ActorID() uint    { return p.LikerID }
func (p *CommentLikePayload) TargetID() string { return "comment:" + p.CommentID }

// CommentPayload is carried by activity_comment and comment_reply.
type CommentPayload struct {
	CommenterID     uint   `json:"commenter_id" bson:"commenter_id"`
	CommenterName   string `json:"commenter_name" bson:"commenter_name"`
	CommentID       string `json:"comment_id" bson:"comment_id"`
	ActivityID      string `json:"activity_id" bson:"activity_id"`
	ParentCommentID string `json:"parent_comment_id,omitempty" bson:"parent_comment_id,omitempty"`
	Preview         string `json:"preview" bson:"preview"`
}

func (p *CommentPayload) ActorID() uint    { return p.CommenterID }
func (p *CommentPayload) TargetID() string { return "comment:" + p.CommentID }

// MentionPayload is carried by mention.
type MentionPayload struct {
	MentionerID   uint   `json:"mentioner_id" bson:"mentioner_id"`
	MentionerName string `json:"mentioner_name" bson:"mentioner_name"`
	CommentID     string `json:"comment_id" bson:"comment_id"`
	ActivityID    string `json:"activity_id" bson:"activity_id"`
}

func (p *MentionPayload) ActorID() uint    { return p.MentionerID }
func (p *MentionPayload) TargetID() string { return "comment:" + p.CommentID }

// AchievementPayload is carried by achievement_unlocked.
type AchievementPayload struct {
	AchievementID   uint   `json:"achievement_id" bson:"achievement_id"`
	AchievementName string `json:"achievement_name" bson:"achievement_name"`
	Points          int    `json:"points" bson:"points"`
}

func (p *AchievementPayload) ActorID() uint { return 0 }
func (p *AchievementPayload) TargetID() string {
	return fmt.Sprintf("achievement:%d", p.AchievementID)
}

// GoalPayload is carried by goal and habit lifecycle notifications.
type GoalPayload struct {
	GoalID       uint       `json:"goal_id" bson:"goal_id"`
	GoalTitle    string     `json:"goal_title" bson:"goal_title"`
	SubgoalTitle string     `json:"subgoal_title,omitempty" bson:"subgoal_title,omitempty"`
	DueAt        *time.Time `json:"due_at,omitempty" bson:"due_at,omitempty"`
}

func (p *GoalPayload) ActorID() uint    { return 0 }
func (p *GoalPayload) TargetID() string { return fmt.Sprintf("goal:%d", p.GoalID) }

// StreakPayload is carried by habit_streak and streak_milestone.
type StreakPayload struct {
	GoalID     uint   `json:"goal_id" bson:"goal_id"`
	GoalTitle  string `json:"goal_title" bson:"goal_title"`
	StreakDays int    `json:"streak_days" bson:"streak_days"`
}

func (p *StreakPayload) ActorID() uint    { return 0 }
func (p *StreakPayload) TargetID() string { return fmt.Sprintf("goal:%d", p.GoalID) }

// LevelPayload is carried by level_up.
type LevelPayload struct {
	Level       int `json:"level" bson:"level"`
	TotalPoints int `json:"total_points" bson:"total_points"`
}

func (p *LevelPayload) ActorID() uint    { return 0 }
func (p *LevelPayload) TargetID() string { return fmt.Sprintf("level:%d", p.Level) }

// SummaryPayload is carried by weekly_summary and monthly_summary.
type SummaryPayload struct {
	PeriodStart    time.Time `json:"period_start" bson:"period_start"`
	PeriodEnd      time.Time `json:"period_end" bson:"period_end"`
	GoalsCompleted int       `json:"goals_completed" bson:"goals_completed"`
	PointsEarned   int       `json:"points_earned" bson:"points_earned"`
}

func (p *SummaryPayload) ActorID() uint    { return 0 }
func (p *SummaryPayload) TargetID() string { return p.PeriodStart.UTC().Format("2006-01-02") }

// MessagePayload is carried by reminder, quote and announcement notifications.
type MessagePayload struct {
	Link   string `json:"link,omitempty" bson:"link,omitempty"`
	Quote  string `json:"quote,omitempty" bson:"quote,omitempty"`
	Author string `json:"author,omitempty" bson:"author,omitempty"`
}

func (p *MessagePayload) ActorID() uint    { return 0 }
func (p *MessagePayload) TargetID() string { return p.Link }
