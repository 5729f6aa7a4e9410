package services

import (
	"fmt"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// LikeCooldown suppresses repeat like notifications for the same tuple.
	LikeCooldown = 60 * time.Second

	DefaultNotificationTTL = 30 * 24 * time.Hour
	FollowRequestTTL       = 365 * 24 * time.Hour
	NewFollowerTTL         = 365 * 24 * time.Hour
)

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

// dedupKey identifies the (recipient, type, actor, target) tuple. Only types
// with a dedup policy get one.
func dedupKey(recipientID uint, t models.NotificationType, p models.NotificationPayload) string {
	if !deduplicated(t) || p == nil {
		return ""
	}
	return fmt.Sprintf("%d:%s:%d:%s", recipientID, t, p.ActorID(), p.TargetID())
}

func followRequestKey(recipientID, followerID uint) string {
	return dedupKey(recipientID, models.NotificationFollowRequest, &models.FollowPayload{FollowerID: followerID})
}

func deduplicated(t models.NotificationType) bool {
	return t == models.NotificationFollowRequest || t.IsLike()
}

// cooldown is how long an identical notification stays suppressed. A zero
// cooldown refreshes on every repeat.
func cooldown(t models.NotificationType) time.Duration {
	if t.IsLike() {
		return LikeCooldown
	}
	return 0
}

func expiryFor(t models.NotificationType, now time.Time) time.Time {
	if t == models.NotificationFollowRequest {
		return now.Add(FollowRequestTTL)
	}
	return now.Add(DefaultNotificationTTL)
}

func parseObjectID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return id, nil
}

// Pagination normalizes page/limit query values.
type Pagination struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize clamps page to >= 1 and limit to [1, 100], defaulting to 20.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p Pagination) Skip() int64 { return int64((p.Page - 1) * p.Limit) }

// Page is a page of results with the total used for page-count math.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Pages is the number of pages implied by Total.
func (p Page[T]) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}
