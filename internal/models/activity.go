package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType names the action an activity records.
type ActivityType string

const (
	ActivityGoalCreated         ActivityType = "goal_created"
	ActivityGoalUpdated         ActivityType = "goal_updated"
	ActivityGoalCompleted       ActivityType = "goal_completed"
	ActivitySubgoalCompleted    ActivityType = "subgoal_completed"
	ActivityHabitTargetAchieved ActivityType = "habit_target_achieved"
	ActivityAchievementUnlocked ActivityType = "achievement_unlocked"
	ActivityStreakMilestone     ActivityType = "streak_milestone"
	ActivityUserFollowed        ActivityType = "user_followed"
)

// FeedActivityTypes are the types shown in follower feeds.
var FeedActivityTypes = []ActivityType{
	ActivityGoalCreated,
	ActivityGoalCompleted,
	ActivitySubgoalCompleted,
	ActivityHabitTargetAchieved,
	ActivityAchievementUnlocked,
	ActivityStreakMilestone,
}

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityGoalCreated, ActivityGoalUpdated, ActivityGoalCompleted, ActivitySubgoalCompleted,
		ActivityHabitTargetAchieved, ActivityAchievementUnlocked, ActivityStreakMilestone, ActivityUserFollowed:
		return true
	}
	return false
}

// Activity is an activity record stored in MongoDB.
type Activity struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Type      ActivityType       `json:"type" bson:"type"`
	Data      ActivityData       `json:"data" bson:"data"`
	IsPublic  bool               `json:"is_public" bson:"is_public"`
	IsActive  bool               `json:"is_active" bson:"is_active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// ActivityData carries the references and snapshots of an activity.
// GoalIsPublic is the value at write time; readers re-check the goal.
type ActivityData struct {
	GoalID        *uint  `json:"goal_id,omitempty" bson:"goal_id,omitempty"`
	GoalTitle     string `json:"goal_title,omitempty" bson:"goal_title,omitempty"`
	GoalCategory  string `json:"goal_category,omitempty" bson:"goal_category,omitempty"`
	GoalIsPublic  *bool  `json:"goal_is_public,omitempty" bson:"goal_is_public,omitempty"`
	SubgoalTitle  string `json:"subgoal_title,omitempty" bson:"subgoal_title,omitempty"`
	AchievementID *uint  `json:"achievement_id,omitempty" bson:"achievement_id,omitempty"`
	TargetUserID  *uint  `json:"target_user_id,omitempty" bson:"target_user_id,omitempty"`
	StreakDays    int    `json:"streak_days,omitempty" bson:"streak_days,omitempty"`
}

// FeedItem is an activity with display data merged on at read time.
type FeedItem struct {
	Activity
	Actor        *UserCompact        `json:"actor,omitempty"`
	Goal         *GoalSummary        `json:"goal,omitempty"`
	Achievement  *AchievementSummary `json:"achievement,omitempty"`
	LikeCount    int64               `json:"like_count"`
	CommentCount int64               `json:"comment_count"`
	IsLiked      bool                `json:"is_liked"`
	Score        float64             `json:"score,omitempty"`
}

// AchievementSummary is the display subset of an achievement.
type AchievementSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
	Points  int    `json:"points"`
}

// RecordActivityRequest is the body accepted from goal collaborators.
type RecordActivityRequest struct {
	Type          ActivityType `json:"type" validate:"required,activity_type"`
	GoalID        *uint        `json:"goal_id"`
	SubgoalTitle  string       `json:"subgoal_title" validate:"max=200"`
	AchievementID *uint        `json:"achievement_id"`
	TargetUserID  *uint        `json:"target_user_id"`
	StreakDays    int          `json:"streak_days" validate:"min=0"`
	IsPublic      bool         `json:"is_public"`
}
