package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"gorm.io/gorm"
)

// UserGoalGateway defines the operations the social layer needs from the
// canonical user and goal records.
type UserGoalGateway interface {
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetGoalByID(ctx context.Context, id uint) (*models.Goal, error)
	GetGoalsByIDs(ctx context.Context, ids []uint) ([]models.Goal, error)
	GetAchievementsByIDs(ctx context.Context, ids []uint) ([]models.Achievement, error)
	IncrementCounter(ctx context.Context, userID uint, field models.CounterField, delta int) error
	FindSuggestionCandidates(ctx context.Context, excludeIDs []uint, limit int) ([]models.User, error)
}

// PostgresUserGoalGateway implements UserGoalGateway for PostgreSQL
type PostgresUserGoalGateway struct {
	db *gorm.DB
}

// NewPostgresUserGoalGateway creates a new PostgresUserGoalGateway
func NewPostgresUserGoalGateway(db *gorm.DB) *PostgresUserGoalGateway {
	return &PostgresUserGoalGateway{db: db}
}

// FindUserByID retrieves a user by ID
func (r *PostgresUserGoalGateway) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapGormError(err)
	}
	return &user, nil
}

// GetUsersByIDs retrieves users in one query. Unknown ids are skipped.
func (r *PostgresUserGoalGateway) GetUsersByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetGoalByID retrieves a goal by ID
func (r *PostgresUserGoalGateway) GetGoalByID(ctx context.Context, id uint) (*models.Goal, error) {
	var goal models.Goal
	if err := r.db.WithContext(ctx).First(&goal, id).Error; err != nil {
		return nil, mapGormError(err)
	}
	return &goal, nil
}

// GetGoalsByIDs retrieves goals in one query. Unknown ids are skipped.
func (r *PostgresUserGoalGateway) GetGoalsByIDs(ctx context.Context, ids []uint) ([]models.Goal, error) {
	var goals []models.Goal
	if len(ids) == 0 {
		return goals, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *PostgresUserGoalGateway) GetAchievementsByIDs(ctx context.Context, ids []uint) ([]models.Achievement, error) {
	var achievements []models.Achievement
	if len(ids) == 0 {
		return achievements, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&achievements).Error; err != nil {
		return nil, err
	}
	return achievements, nil
}

// IncrementCounter adjusts a follow counter in a single UPDATE. Counters never
// go below zero.
func (r *PostgresUserGoalGateway) IncrementCounter(ctx context.Context, userID uint, field models.CounterField, delta int) error {
	switch field {
	case models.FollowersCountField, models.FollowingCountField:
	default:
		return fmt.Errorf("unknown counter field %q", field)
	}

	col := string(field)
	expr := gorm.Expr("CASE WHEN "+col+" + ? < 0 THEN 0 ELSE "+col+" + ? END", delta, delta)
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).UpdateColumn(col, expr)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindSuggestionCandidates returns active users with at least one completed
// goal, ranked by points then completions.
func (r *PostgresUserGoalGateway) FindSuggestionCandidates(ctx context.Context, excludeIDs []uint, limit int) ([]models.User, error) {
	q := r.db.WithContext(ctx).
		Where("is_active = ? AND completed_goals >= ?", true, 1)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}

	var users []models.User
	if err := q.Order("total_points DESC").Order("completed_goals DESC").Order("id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
