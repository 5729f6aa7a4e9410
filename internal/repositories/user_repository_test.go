package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGatewayDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Goal{}, &models.Achievement{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, u models.User) models.User {
	t.Helper()
	if u.Username == "" {
		u.Username = fmt.Sprintf("user%d", u.ID)
	}
	if u.Email == "" {
		u.Email = u.Username + "@example.com"
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func TestIncrementCounter(t *testing.T) {
	db := setupGatewayDB(t)
	gw := NewPostgresUserGoalGateway(db)
	ctx := context.Background()
	seedUser(t, db, models.User{ID: 1, IsActive: true})

	require.NoError(t, gw.IncrementCounter(ctx, 1, models.FollowersCountField, 1))
	require.NoError(t, gw.IncrementCounter(ctx, 1, models.FollowersCountField, 1))
	require.NoError(t, gw.IncrementCounter(ctx, 1, models.FollowingCountField, 1))

	u, err := gw.FindUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, u.FollowersCount)
	assert.Equal(t, 1, u.FollowingCount)

	t.Run("never below zero", func(t *testing.T) {
		require.NoError(t, gw.IncrementCounter(ctx, 1, models.FollowingCountField, -5))
		u, err := gw.FindUserByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, u.FollowingCount)
	})

	t.Run("unknown field", func(t *testing.T) {
		err := gw.IncrementCounter(ctx, 1, models.CounterField("total_points"), 1)
		assert.Error(t, err)
	})

	t.Run("missing user", func(t *testing.T) {
		err := gw.IncrementCounter(ctx, 99, models.FollowersCountField, 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFindUserAndGoalNotFound(t *testing.T) {
	gw := NewPostgresUserGoalGateway(setupGatewayDB(t))
	ctx := context.Background()

	_, err := gw.FindUserByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = gw.GetGoalByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchLookupsSkipUnknownIDs(t *testing.T) {
	db := setupGatewayDB(t)
	gw := NewPostgresUserGoalGateway(db)
	ctx := context.Background()

	seedUser(t, db, models.User{ID: 1})
	seedUser(t, db, models.User{ID: 2})
	require.NoError(t, db.Create(&models.Goal{ID: 10, UserID: 1, Title: "Run", IsPublic: true}).Error)
	require.NoError(t, db.Create(&models.Achievement{ID: 5, Name: "First goal", Points: 10}).Error)

	users, err := gw.GetUsersByIDs(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	goals, err := gw.GetGoalsByIDs(ctx, []uint{10, 11})
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Run", goals[0].Title)

	achievements, err := gw.GetAchievementsByIDs(ctx, []uint{5})
	require.NoError(t, err)
	assert.Len(t, achievements, 1)

	empty, err := gw.GetUsersByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindSuggestionCandidates(t *testing.T) {
	db := setupGatewayDB(t)
	gw := NewPostgresUserGoalGateway(db)
	ctx := context.Background()

	seedUser(t, db, models.User{ID: 1, IsActive: true, TotalPoints: 500, CompletedGoals: 3})
	seedUser(t, db, models.User{ID: 2, IsActive: true, TotalPoints: 300, CompletedGoals: 5})
	seedUser(t, db, models.User{ID: 3, IsActive: true, TotalPoints: 300, CompletedGoals: 9})
	seedUser(t, db, models.User{ID: 4, IsActive: true, TotalPoints: 900, CompletedGoals: 0})
	seedUser(t, db, models.User{ID: 5, IsActive: false, TotalPoints: 999, CompletedGoals: 4})
	seedUser(t, db, models.User{ID: 6, IsActive: true, TotalPoints: 100, CompletedGoals: 1})

	users, err := gw.FindSuggestionCandidates(ctx, []uint{6}, 10)
	require.NoError(t, err)

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []uint{1, 3, 2}, ids)

	limited, err := gw.FindSuggestionCandidates(ctx, nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
