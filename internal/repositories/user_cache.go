package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// cachedUser is the Redis snapshot of a user. It keeps the fields that the
// public JSON form of models.User hides.
type cachedUser struct {
	ID             uint                           `json:"id"`
	Name           string                         `json:"name"`
	Username       string                         `json:"username"`
	Email          string                         `json:"email"`
	AvatarURL      string                         `json:"avatar_url"`
	IsActive       bool                           `json:"is_active"`
	IsPrivate      bool                           `json:"is_private"`
	TotalPoints    int                            `json:"total_points"`
	CompletedGoals int                            `json:"completed_goals"`
	FollowersCount int                            `json:"followers_count"`
	FollowingCount int                            `json:"following_count"`
	FCMToken       string                         `json:"fcm_token"`
	Preferences    models.NotificationPreferences `json:"preferences"`
	CreatedAt      time.Time                      `json:"created_at"`
}

func snapshotOf(u *models.User) cachedUser {
	return cachedUser{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		AvatarURL:      u.AvatarURL,
		IsActive:       u.IsActive,
		IsPrivate:      u.IsPrivate,
		TotalPoints:    u.TotalPoints,
		CompletedGoals: u.CompletedGoals,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		FCMToken:       u.FCMToken,
		Preferences:    u.NotificationPreferences,
		CreatedAt:      u.CreatedAt,
	}
}

func (c cachedUser) toUser() models.User {
	return models.User{
		ID:                      c.ID,
		Name:                    c.Name,
		Username:                c.Username,
		Email:                   c.Email,
		AvatarURL:               c.AvatarURL,
		IsActive:                c.IsActive,
		IsPrivate:               c.IsPrivate,
		TotalPoints:             c.TotalPoints,
		CompletedGoals:          c.CompletedGoals,
		FollowersCount:          c.FollowersCount,
		FollowingCount:          c.FollowingCount,
		FCMToken:                c.FCMToken,
		NotificationPreferences: c.Preferences,
		CreatedAt:               c.CreatedAt,
	}
}

// CachedUserGoalGateway serves user lookups from Redis in front of another
// gateway. Goals and achievements always go to the underlying store so goal
// privacy is read live.
type CachedUserGoalGateway struct {
	UserGoalGateway
	cache  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserGoalGateway wraps next with a Redis user cache.
func NewCachedUserGoalGateway(next UserGoalGateway, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedUserGoalGateway {
	return &CachedUserGoalGateway{UserGoalGateway: next, cache: cache, ttl: ttl, logger: logger}
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:snapshot:%d", id)
}

func (g *CachedUserGoalGateway) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	if data, err := g.cache.Get(ctx, userCacheKey(id)).Bytes(); err == nil {
		var snap cachedUser
		if uErr := json.Unmarshal(data, &snap); uErr == nil {
			u := snap.toUser()
			return &u, nil
		}
	} else if err != redis.Nil {
		g.logger.Warn("user cache read failed", zap.Uint("user_id", id), zap.Error(err))
	}

	user, err := g.UserGoalGateway.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.store(ctx, []models.User{*user})
	return user, nil
}

// GetUsersByIDs fetches all keys with one MGET and loads only the misses from
// the underlying store.
func (g *CachedUserGoalGateway) GetUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userCacheKey(id)
	}

	users := make([]models.User, 0, len(ids))
	var missing []uint
	values, err := g.cache.MGet(ctx, keys...).Result()
	if err != nil {
		g.logger.Warn("user cache mget failed", zap.Int("keys", len(keys)), zap.Error(err))
		missing = ids
	} else {
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var snap cachedUser
			if uErr := json.Unmarshal([]byte(raw), &snap); uErr != nil {
				missing = append(missing, ids[i])
				continue
			}
			users = append(users, snap.toUser())
		}
	}

	if len(missing) == 0 {
		return users, nil
	}
	loaded, err := g.UserGoalGateway.GetUsersByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	g.store(ctx, loaded)
	return append(users, loaded...), nil
}

// IncrementCounter updates the store and drops the cached snapshot.
func (g *CachedUserGoalGateway) IncrementCounter(ctx context.Context, userID uint, field models.CounterField, delta int) error {
	if err := g.UserGoalGateway.IncrementCounter(ctx, userID, field, delta); err != nil {
		return err
	}
	if err := g.cache.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		g.logger.Warn("user cache invalidation failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return nil
}

func (g *CachedUserGoalGateway) store(ctx context.Context, users []models.User) {
	if len(users) == 0 {
		return
	}
	pipe := g.cache.Pipeline()
	for i := range users {
		payload, err := json.Marshal(snapshotOf(&users[i]))
		if err != nil {
			continue
		}
		pipe.Set(ctx, userCacheKey(users[i].ID), payload, g.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		g.logger.Warn("user cache write failed", zap.Int("users", len(users)), zap.Error(err))
	}
}
