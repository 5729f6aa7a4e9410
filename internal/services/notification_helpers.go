package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"go.uber.org/zap"
)

const commentPreviewLen = 80

func (s *NotificationService) actor(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// NotifyFollowRequest creates or refreshes the single follow_request record
// for (recipient, requester).
func (s *NotificationService) NotifyFollowRequest(ctx context.Context, requesterID, recipientID uint) (*models.Notification, error) {
	requester, err := s.actor(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateNotificationInput{
		UserID:  recipientID,
		Type:    models.NotificationFollowRequest,
		Title:   "New follow request",
		Message: fmt.Sprintf("%s wants to follow you", requester.DisplayName()),
		Data:    followPayloadOf(requester),
	})
}

func (s *NotificationService) NotifyNewFollower(ctx context.Context, followerID, recipientID uint) (*models.Notification, error) {
	follower, err := s.actor(ctx, followerID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, newFollowerInput(follower, recipientID))
}

// NotifyFollowAccepted tells the requester their request was accepted.
func (s *NotificationService) NotifyFollowAccepted(ctx context.Context, accepterID, requesterID uint) (*models.Notification, error) {
	accepter, err := s.actor(ctx, accepterID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateNotificationInput{
		UserID:  requesterID,
		Type:    models.NotificationFollowAccepted,
		Title:   "Follow request accepted",
		Message: fmt.Sprintf("%s accepted your follow request", accepter.DisplayName()),
		Data: &models.FollowAcceptedPayload{
			AccepterID:     accepter.ID,
			AccepterName:   accepter.DisplayName(),
			AccepterAvatar: accepter.AvatarURL,
		},
	})
}

// ConvertFollowRequest rewrites the pending follow_request record into a
// new_follower record in place, with a fresh expiry from now. Without such a
// record a new new_follower notification with the same expiry is created
// instead.
func (s *NotificationService) ConvertFollowRequest(ctx context.Context, followerID, recipientID uint) (*models.Notification, error) {
	follower, err := s.actor(ctx, followerID)
	if err != nil {
		return nil, err
	}
	in := newFollowerInput(follower, recipientID)
	now := s.opts.now()

	converted, err := s.notifications.Rewrite(ctx, followRequestKey(recipientID, followerID), repositories.NotificationRewrite{
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		ExpiresAt: now.Add(NewFollowerTTL),
		At:        now,
	})
	if err == nil {
		return converted, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	in.TTL = NewFollowerTTL
	return s.Create(ctx, in)
}

// RemoveFollowRequest deletes the follow_request record for the pair, if any.
func (s *NotificationService) RemoveFollowRequest(ctx context.Context, followerID, recipientID uint) error {
	_, err := s.notifications.DeleteByDedupKey(ctx, followRequestKey(recipientID, followerID))
	return err
}

// NotifyGoalLiked notifies the goal owner. Liking your own goal notifies no one.
func (s *NotificationService) NotifyGoalLiked(ctx context.Context, likerID uint, goal *models.Goal) (*models.Notification, error) {
	if goal.UserID == likerID {
		return nil, nil
	}
	liker, err := s.actor(ctx, likerID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateNotificationInput{
		UserID:  goal.UserID,
		Type:    models.NotificationGoalLiked,
		Title:   "Someone liked your goal",
		Message: fmt.Sprintf("%s liked your goal %q", liker.DisplayName(), goal.Title),
		Data: &models.GoalLikePayload{
			LikerID:   liker.ID,
			LikerName: liker.DisplayName(),
			GoalID:    goal.ID,
			GoalTitle: goal.Title,
		},
	})
}

func (s *NotificationService) NotifyActivityLiked(ctx context.Context, likerID uint, activity *models.Activity) (*models.Notification, error) {
	if activity.UserID == likerID {
		return nil, nil
	}
	liker, err := s.actor(ctx, likerID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateNotificationInput{
		UserID:  activity.UserID,
		Type:    models.NotificationActivityLiked,
		Title:   "New like",
		Message: fmt.Sprintf("%s liked your activity", liker.DisplayName()),
		Data: &models.ActivityLikePayload{
			LikerID:      liker.ID,
			LikerName:    liker.DisplayName(),
			ActivityID:   activity.ID.Hex(),
			ActivityType: activity.Type,
		},
	})
}

func (s *NotificationService) NotifyCommentLiked(ctx context.Context, likerID uint, comment *models.Comment) (*models.Notification, error) {
	if comment.UserID == likerID {
		return nil, nil
	}
	liker, err := s.actor(ctx, likerID)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, CreateNotificationInput{
		UserID:  comment.UserID,
		Type:    models.NotificationCommentLiked,
		Title:   "New like",
		Message: fmt.Sprintf("%s liked your comment", liker.DisplayName()),
		Data: &models.CommentLikePayload{
			LikerID:    liker.ID,
			LikerName:  liker.DisplayName(),
			CommentID:  comment.ID.Hex(),
			ActivityID: comment.ActivityID.Hex(),
		},
	})
}

// NotifyActivityComment notifies the activity author of a top-level comment.
func (s *NotificationService) NotifyActivityComment(ctx context.Context, comment *models.Comment, activity *models.Activity) (*models.Notification, error) {
	if activity.UserID == comment.UserID {
		return nil, nil
	}
	return s.commentNotification(ctx, comment, activity.UserID, models.NotificationActivityComment, "New comment", "%s commented on your activity")
}

// NotifyCommentReply notifies the author of the parent comment.
func (s *NotificationService) NotifyCommentReply(ctx context.Context, comment, parent *models.Comment) (*models.Notification, error) {
	if parent.UserID == comment.UserID {
		return nil, nil
	}
	return s.commentNotification(ctx, comment, parent.UserID, models.NotificationCommentReply, "New reply", "%s replied to your comment")
}

func (s *NotificationService) commentNotification(ctx context.Context, comment *models.Comment, recipientID uint, t models.NotificationType, title, format string) (*models.Notification, error) {
	commenter, err := s.actor(ctx, comment.UserID)
	if err != nil {
		return nil, err
	}
	payload := &models.CommentPayload{
		CommenterID:   commenter.ID,
		CommenterName: commenter.DisplayName(),
		CommentID:     comment.ID.Hex(),
		ActivityID:    comment.ActivityID.Hex(),
		Preview:       preview(comment.Content),
	}
	if comment.ParentID != nil {
		payload.ParentCommentID = comment.ParentID.Hex()
	}
	return s.Create(ctx, CreateNotificationInput{
		UserID:  recipientID,
		Type:    t,
		Title:   title,
		Message: fmt.Sprintf(format, commenter.DisplayName()),
		Data:    payload,
	})
}

// NotifyMentions notifies each mentioned user once. Failures for one
// recipient are logged and do not stop the others.
func (s *NotificationService) NotifyMentions(ctx context.Context, comment *models.Comment, skip map[uint]bool) {
	if len(comment.Mentions) == 0 {
		return
	}
	mentioner, err := s.actor(ctx, comment.UserID)
	if err != nil {
		s.logger.Warn("mention notifications skipped", zap.Uint("user_id", comment.UserID), zap.Error(err))
		return
	}

	seen := map[uint]bool{comment.UserID: true}
	for id := range skip {
		seen[id] = true
	}
	for _, mentionedID := range comment.Mentions {
		if seen[mentionedID] {
			continue
		}
		seen[mentionedID] = true
		_, err := s.Create(ctx, CreateNotificationInput{
			UserID:  mentionedID,
			Type:    models.NotificationMention,
			Title:   "You were mentioned",
			Message: fmt.Sprintf("%s mentioned you in a comment", mentioner.DisplayName()),
			Data: &models.MentionPayload{
				MentionerID:   mentioner.ID,
				MentionerName: mentioner.DisplayName(),
				CommentID:     comment.ID.Hex(),
				ActivityID:    comment.ActivityID.Hex(),
			},
		})
		if err != nil {
			s.logger.Warn("mention notification failed", zap.Uint("recipient_id", mentionedID), zap.Error(err))
		}
	}
}

// NotifyAchievement announces an unlocked achievement to its owner.
func (s *NotificationService) NotifyAchievement(ctx context.Context, userID, achievementID uint) (*models.Notification, error) {
	achievements, err := s.users.GetAchievementsByIDs(ctx, []uint{achievementID})
	if err != nil {
		return nil, err
	}
	if len(achievements) == 0 {
		return nil, fmt.Errorf("%w: achievement", ErrNotFound)
	}
	a := achievements[0]
	return s.Create(ctx, CreateNotificationInput{
		UserID:  userID,
		Type:    models.NotificationAchievement,
		Title:   "Achievement unlocked!",
		Message: fmt.Sprintf("You unlocked %q (+%d points)", a.Name, a.Points),
		Data: &models.AchievementPayload{
			AchievementID:   a.ID,
			AchievementName: a.Name,
			Points:          a.Points,
		},
	})
}

func followPayloadOf(u *models.User) *models.FollowPayload {
	return &models.FollowPayload{
		FollowerID:     u.ID,
		FollowerName:   u.DisplayName(),
		FollowerAvatar: u.AvatarURL,
	}
}

func newFollowerInput(follower *models.User, recipientID uint) CreateNotificationInput {
	return CreateNotificationInput{
		UserID:  recipientID,
		Type:    models.NotificationNewFollower,
		Title:   "New follower",
		Message: fmt.Sprintf("%s started following you", follower.DisplayName()),
		Data:    followPayloadOf(follower),
	}
}

func preview(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= commentPreviewLen {
		return content
	}
	return string(runes[:commentPreviewLen]) + "..."
}
