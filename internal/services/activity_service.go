package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"github.com/anonto42/goalsocial/backend/validators"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SocialNotifier is the part of the notification engine driven by likes,
// comments and recorded activities.
type SocialNotifier interface {
	NotifyGoalLiked(ctx context.Context, likerID uint, goal *models.Goal) (*models.Notification, error)
	NotifyActivityLiked(ctx context.Context, likerID uint, activity *models.Activity) (*models.Notification, error)
	NotifyCommentLiked(ctx context.Context, likerID uint, comment *models.Comment) (*models.Notification, error)
	NotifyActivityComment(ctx context.Context, comment *models.Comment, activity *models.Activity) (*models.Notification, error)
	NotifyCommentReply(ctx context.Context, comment, parent *models.Comment) (*models.Notification, error)
	NotifyMentions(ctx context.Context, comment *models.Comment, skip map[uint]bool)
	NotifyAchievement(ctx context.Context, userID, achievementID uint) (*models.Notification, error)
}

// ActivityService records activities and handles likes and comments on them.
type ActivityService struct {
	activities repositories.ActivityRepository
	likes      repositories.LikeRepository
	comments   repositories.CommentRepository
	follows    repositories.FollowRepository
	users      repositories.UserGoalGateway
	notifier   SocialNotifier
	validate   *validator.Validate
	logger     *zap.Logger
	opts       serviceOptions
}

func NewActivityService(
	activities repositories.ActivityRepository,
	likes repositories.LikeRepository,
	comments repositories.CommentRepository,
	follows repositories.FollowRepository,
	users repositories.UserGoalGateway,
	notifier SocialNotifier,
	logger *zap.Logger,
	opts ...Option,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		likes:      likes,
		comments:   comments,
		follows:    follows,
		users:      users,
		notifier:   notifier,
		validate:   validators.New(),
		logger:     logger,
		opts:       buildOptions(opts),
	}
}

// RecordActivity stores an activity for userID. A referenced goal must exist
// and belong to the user; its title and privacy are snapshotted.
func (s *ActivityService) RecordActivity(ctx context.Context, userID uint, req models.RecordActivityRequest) (*models.Activity, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	data := models.ActivityData{
		GoalID:        req.GoalID,
		SubgoalTitle:  req.SubgoalTitle,
		AchievementID: req.AchievementID,
		TargetUserID:  req.TargetUserID,
		StreakDays:    req.StreakDays,
	}
	if req.GoalID != nil {
		goal, err := s.users.GetGoalByID(ctx, *req.GoalID)
		if err != nil {
			return nil, notFound(err, "goal")
		}
		if goal.UserID != userID {
			return nil, ErrAccessDenied
		}
		isPublic := goal.IsPublic
		data.GoalTitle = goal.Title
		data.GoalCategory = goal.Category
		data.GoalIsPublic = &isPublic
	}

	now := s.opts.now()
	activity := &models.Activity{
		UserID:    userID,
		Type:      req.Type,
		Data:      data,
		IsPublic:  req.IsPublic,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return nil, err
	}

	if activity.Type == models.ActivityAchievementUnlocked && req.AchievementID != nil {
		if _, err := s.notifier.NotifyAchievement(ctx, userID, *req.AchievementID); err != nil {
			s.logger.Warn("achievement notification failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return activity, nil
}

// DeleteActivity soft-deletes one of the user's activities.
func (s *ActivityService) DeleteActivity(ctx context.Context, userID uint, activityID string) error {
	id, err := parseObjectID(activityID, "activity")
	if err != nil {
		return err
	}
	ok, err := s.activities.Deactivate(ctx, id, userID, s.opts.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: activity", ErrNotFound)
	}
	return nil
}

// visibleActivity loads an activity and checks that viewerID may interact
// with it: the author always may; anyone else needs a public activity on a
// currently public goal and no block between them.
func (s *ActivityService) visibleActivity(ctx context.Context, viewerID uint, id primitive.ObjectID) (*models.Activity, error) {
	activity, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "activity")
	}
	if activity.UserID == viewerID {
		return activity, nil
	}
	if !activity.IsPublic {
		return nil, ErrAccessDenied
	}
	if err := s.ensureNoBlock(ctx, viewerID, activity.UserID); err != nil {
		return nil, err
	}
	if activity.Data.GoalID != nil {
		goal, err := s.users.GetGoalByID(ctx, *activity.Data.GoalID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		if err != nil {
			return nil, err
		}
		if !goal.IsPublic {
			return nil, ErrAccessDenied
		}
	}
	return activity, nil
}

func (s *ActivityService) ensureNoBlock(ctx context.Context, a, b uint) error {
	blocked, err := s.follows.BlockExists(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return ErrAccessDenied
	}
	return nil
}

// like stores the like and reports whether it is new.
func (s *ActivityService) like(ctx context.Context, userID uint, target models.LikeTarget, targetID string) (bool, error) {
	err := s.likes.Create(ctx, &models.Like{
		TargetType: target,
		TargetID:   targetID,
		UserID:     userID,
		CreatedAt:  s.opts.now(),
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		return false, nil
	}
	return err == nil, err
}

func (s *ActivityService) likeState(ctx context.Context, userID uint, target models.LikeTarget, targetID string) (*models.LikeState, error) {
	counts, err := s.likes.CountByTargets(ctx, target, []string{targetID})
	if err != nil {
		return nil, err
	}
	liked, err := s.likes.LikedByUser(ctx, target, []string{targetID}, userID)
	if err != nil {
		return nil, err
	}
	return &models.LikeState{
		TargetType: target,
		TargetID:   targetID,
		Liked:      liked[targetID],
		LikeCount:  counts[targetID],
	}, nil
}

// LikeActivity likes an activity. Liking twice is a no-op; only the first
// like notifies the author.
func (s *ActivityService) LikeActivity(ctx context.Context, userID uint, activityID string) (*models.LikeState, error) {
	id, err := parseObjectID(activityID, "activity")
	if err != nil {
		return nil, err
	}
	activity, err := s.visibleActivity(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	created, err := s.like(ctx, userID, models.LikeTargetActivity, id.Hex())
	if err != nil {
		return nil, err
	}
	if created {
		if _, err := s.notifier.NotifyActivityLiked(ctx, userID, activity); err != nil {
			s.logger.Warn("activity like notification failed", zap.String("activity_id", id.Hex()), zap.Error(err))
		}
	}
	return s.likeState(ctx, userID, models.LikeTargetActivity, id.Hex())
}

func (s *ActivityService) UnlikeActivity(ctx context.Context, userID uint, activityID string) (*models.LikeState, error) {
	id, err := parseObjectID(activityID, "activity")
	if err != nil {
		return nil, err
	}
	if _, err := s.likes.Delete(ctx, models.LikeTargetActivity, id.Hex(), userID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, userID, models.LikeTargetActivity, id.Hex())
}

// LikeGoal likes a goal. Private goals can only be liked by their owner.
func (s *ActivityService) LikeGoal(ctx context.Context, userID, goalID uint) (*models.LikeState, error) {
	goal, err := s.users.GetGoalByID(ctx, goalID)
	if err != nil {
		return nil, notFound(err, "goal")
	}
	if goal.UserID != userID {
		if !goal.IsPublic {
			return nil, ErrAccessDenied
		}
		if err := s.ensureNoBlock(ctx, userID, goal.UserID); err != nil {
			return nil, err
		}
	}

	targetID := strconv.FormatUint(uint64(goalID), 10)
	created, err := s.like(ctx, userID, models.LikeTargetGoal, targetID)
	if err != nil {
		return nil, err
	}
	if created {
		if _, err := s.notifier.NotifyGoalLiked(ctx, userID, goal); err != nil {
			s.logger.Warn("goal like notification failed", zap.Uint("goal_id", goalID), zap.Error(err))
		}
	}
	return s.likeState(ctx, userID, models.LikeTargetGoal, targetID)
}

func (s *ActivityService) UnlikeGoal(ctx context.Context, userID, goalID uint) (*models.LikeState, error) {
	targetID := strconv.FormatUint(uint64(goalID), 10)
	if _, err := s.likes.Delete(ctx, models.LikeTargetGoal, targetID, userID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, userID, models.LikeTargetGoal, targetID)
}

// LikeComment likes a comment on an activity the user can see.
func (s *ActivityService) LikeComment(ctx context.Context, userID uint, commentID string) (*models.LikeState, error) {
	id, err := parseObjectID(commentID, "comment")
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "comment")
	}
	if _, err := s.visibleActivity(ctx, userID, comment.ActivityID); err != nil {
		return nil, err
	}

	created, err := s.like(ctx, userID, models.LikeTargetComment, id.Hex())
	if err != nil {
		return nil, err
	}
	if created {
		if _, err := s.notifier.NotifyCommentLiked(ctx, userID, comment); err != nil {
			s.logger.Warn("comment like notification failed", zap.String("comment_id", id.Hex()), zap.Error(err))
		}
	}
	return s.likeState(ctx, userID, models.LikeTargetComment, id.Hex())
}

func (s *ActivityService) UnlikeComment(ctx context.Context, userID uint, commentID string) (*models.LikeState, error) {
	id, err := parseObjectID(commentID, "comment")
	if err != nil {
		return nil, err
	}
	if _, err := s.likes.Delete(ctx, models.LikeTargetComment, id.Hex(), userID); err != nil {
		return nil, err
	}
	return s.likeState(ctx, userID, models.LikeTargetComment, id.Hex())
}

// AddComment comments on an activity, optionally as a reply. The parent
// author gets a reply notification, the activity author a comment
// notification, and mentioned users a mention, each at most once.
func (s *ActivityService) AddComment(ctx context.Context, userID uint, activityID string, req models.CreateCommentRequest) (*models.Comment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	id, err := parseObjectID(activityID, "activity")
	if err != nil {
		return nil, err
	}
	activity, err := s.visibleActivity(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if req.ParentID != "" {
		parentID, err := parseObjectID(req.ParentID, "parent comment")
		if err != nil {
			return nil, err
		}
		parent, err = s.comments.GetByID(ctx, parentID)
		if err != nil {
			return nil, notFound(err, "parent comment")
		}
		if parent.ActivityID != activity.ID {
			return nil, fmt.Errorf("%w: parent comment belongs to another activity", ErrValidation)
		}
	}

	comment := &models.Comment{
		ActivityID: activity.ID,
		UserID:     userID,
		Content:    req.Content,
		Mentions:   req.Mentions,
		CreatedAt:  s.opts.now(),
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	notified := map[uint]bool{userID: true}
	if parent != nil && !notified[parent.UserID] {
		if _, err := s.notifier.NotifyCommentReply(ctx, comment, parent); err != nil {
			s.logger.Warn("reply notification failed", zap.String("comment_id", comment.ID.Hex()), zap.Error(err))
		}
		notified[parent.UserID] = true
	}
	if !notified[activity.UserID] {
		if _, err := s.notifier.NotifyActivityComment(ctx, comment, activity); err != nil {
			s.logger.Warn("comment notification failed", zap.String("comment_id", comment.ID.Hex()), zap.Error(err))
		}
		notified[activity.UserID] = true
	}
	s.notifier.NotifyMentions(ctx, comment, notified)
	return comment, nil
}

// ListComments returns an activity's comments oldest first with author data.
func (s *ActivityService) ListComments(ctx context.Context, viewerID uint, activityID string, p Pagination) (Page[models.CommentWithAuthor], error) {
	p = p.Normalize()
	id, err := parseObjectID(activityID, "activity")
	if err != nil {
		return Page[models.CommentWithAuthor]{}, err
	}
	if _, err := s.visibleActivity(ctx, viewerID, id); err != nil {
		return Page[models.CommentWithAuthor]{}, err
	}

	comments, total, err := s.comments.ListByActivity(ctx, id, p.Skip(), int64(p.Limit))
	if err != nil {
		return Page[models.CommentWithAuthor]{}, err
	}
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	users, err := s.users.GetUsersByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return Page[models.CommentWithAuthor]{}, err
	}
	authors := make(map[uint]models.UserCompact, len(users))
	for i := range users {
		authors[users[i].ID] = users[i].ToCompact()
	}

	items := make([]models.CommentWithAuthor, 0, len(comments))
	for _, c := range comments {
		item := models.CommentWithAuthor{Comment: c}
		if a, ok := authors[c.UserID]; ok {
			item.Author = &a
		}
		items = append(items, item)
	}
	return Page[models.CommentWithAuthor]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
