package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the canonical user record (PostgreSQL).
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name"`
	Username       string    `json:"username" gorm:"uniqueIndex"`
	Email          string    `json:"-" gorm:"uniqueIndex"`
	AvatarURL      string    `json:"avatar_url"`
	IsActive       bool      `json:"is_active" gorm:"index"`
	IsPrivate      bool      `json:"is_private"`
	TotalPoints    int       `json:"total_points" gorm:"index"`
	CompletedGoals int       `json:"completed_goals"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	FCMToken       string    `json:"-" gorm:"column:fcm_token"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	NotificationPreferences NotificationPreferences `json:"notification_preferences" gorm:"embedded;embeddedPrefix:notify_"`
}

// NotificationPreferences holds the per-user delivery switches.
// A nil switch has never been touched by the user and counts as enabled.
type NotificationPreferences struct {
	InApp      *bool `json:"in_app,omitempty"`
	Social     *bool `json:"social,omitempty"`
	Habits     *bool `json:"habits,omitempty"`
	Journal    *bool `json:"journal,omitempty"`
	Motivation *bool `json:"motivation,omitempty"`
}

// PreferenceCategory groups notification types under a single user toggle.
type PreferenceCategory string

const (
	CategoryNone       PreferenceCategory = ""
	CategorySocial     PreferenceCategory = "social"
	CategoryHabits     PreferenceCategory = "habits"
	CategoryJournal    PreferenceCategory = "journal"
	CategoryMotivation PreferenceCategory = "motivation"
)

// Allows reports whether the master switch and the category switch both permit delivery.
func (p NotificationPreferences) Allows(category PreferenceCategory) bool {
	if !enabled(p.InApp) {
		return false
	}
	switch category {
	case CategorySocial:
		return enabled(p.Social)
	case CategoryHabits:
		return enabled(p.Habits)
	case CategoryJournal:
		return enabled(p.Journal)
	case CategoryMotivation:
		return enabled(p.Motivation)
	}
	return true
}

func enabled(b *bool) bool { return b == nil || *b }

// UserCompact is the display subset attached to feed items, follower lists and notifications.
type UserCompact struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// ToCompact returns the display subset of the user.
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Name: u.Name, Username: u.Username, AvatarURL: u.AvatarURL}
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// CounterField names a user counter that may be adjusted atomically.
type CounterField string

const (
	FollowersCountField CounterField = "followers_count"
	FollowingCountField CounterField = "following_count"
)

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
