package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/push"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"github.com/anonto42/goalsocial/backend/validators"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// CreateNotificationInput is the single creation payload. Channels nil means
// the defaults for Type.
type CreateNotificationInput struct {
	UserID   uint                       `validate:"required"`
	Type     models.NotificationType    `validate:"required,notification_type"`
	Title    string                     `validate:"required,max=200"`
	Message  string                     `validate:"required,max=1000"`
	Data     models.NotificationPayload `validate:"-"`
	Channels *models.Channels           `validate:"-"`
	// TTL overrides the per-type expiry when positive.
	TTL time.Duration `validate:"min=0"`
}

// CleanupResult reports what CleanupExpired removed.
type CleanupResult struct {
	Notifications  int64 `json:"notifications"`
	FollowRequests int64 `json:"follow_requests"`
}

// NotificationService creates, deduplicates, expires and delivers notifications.
type NotificationService struct {
	notifications repositories.NotificationRepository
	follows       repositories.FollowRepository
	users         repositories.UserGoalGateway
	push          push.Gateway
	validate      *validator.Validate
	logger        *zap.Logger
	opts          serviceOptions
}

func NewNotificationService(
	notifications repositories.NotificationRepository,
	follows repositories.FollowRepository,
	users repositories.UserGoalGateway,
	pushGateway push.Gateway,
	logger *zap.Logger,
	opts ...Option,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		follows:       follows,
		users:         users,
		push:          pushGateway,
		validate:      validators.New(),
		logger:        logger,
		opts:          buildOptions(opts),
	}
}

// Create is the single entry point for new notifications. Deduplicated types
// (follow requests and likes) resolve to at most one record per
// (recipient, type, actor, target): a repeat inside the cooldown returns the
// existing record untouched, a repeat outside it refreshes the record in place.
func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	now := s.opts.now()
	key := dedupKey(in.UserID, in.Type, in.Data)
	if key == "" {
		n := s.newRecord(in, "", now)
		if err := s.notifications.Insert(ctx, n); err != nil {
			return nil, err
		}
		s.deliverAsync(ctx, n)
		return n, nil
	}

	refresh := repositories.NotificationRefresh{
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		ExpiresAt: in.expiry(now),
		At:        now,
	}
	for attempt := 0; attempt < 2; attempt++ {
		refreshed, err := s.notifications.RefreshByDedupKey(ctx, key, now.Add(-cooldown(in.Type)), refresh)
		if err == nil {
			s.deliverAsync(ctx, refreshed)
			return refreshed, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}

		n := s.newRecord(in, key, now)
		err = s.notifications.Insert(ctx, n)
		if err == nil {
			s.deliverAsync(ctx, n)
			return n, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, err
		}

		// Inside the cooldown, or a concurrent writer won the insert.
		existing, err := s.notifications.FindByDedupKey(ctx, key)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("notification %s for user %d: dedup record changed concurrently", in.Type, in.UserID)
}

func (s *NotificationService) validateInput(in CreateNotificationInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if in.Data != nil && !models.PayloadMatches(in.Type, in.Data) {
		return fmt.Errorf("%w: payload %T does not match type %s", ErrValidation, in.Data, in.Type)
	}
	if in.Data == nil && deduplicated(in.Type) {
		return fmt.Errorf("%w: type %s requires a payload", ErrValidation, in.Type)
	}
	return nil
}

func (s *NotificationService) newRecord(in CreateNotificationInput, key string, now time.Time) *models.Notification {
	channels := models.Channels{InApp: true, Push: in.Type.PushByDefault()}
	if in.Channels != nil {
		channels = *in.Channels
	}
	return &models.Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		Channels:  channels,
		DedupKey:  key,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: in.expiry(now),
	}
}

func (in CreateNotificationInput) expiry(now time.Time) time.Time {
	if in.TTL > 0 {
		return now.Add(in.TTL)
	}
	return expiryFor(in.Type, now)
}

// deliverAsync pushes a copy of n off the request path. The originating
// action has already succeeded; failures are only logged.
func (s *NotificationService) deliverAsync(ctx context.Context, n *models.Notification) {
	if !n.Channels.Push {
		return
	}
	snapshot := *n
	detached := context.WithoutCancel(ctx)
	s.opts.dispatch(func() {
		ctx, cancel := context.WithTimeout(detached, s.opts.pushTimeout)
		defer cancel()
		s.deliver(ctx, &snapshot)
	})
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) {
	log := s.logger.With(
		zap.String("notification_id", n.ID.Hex()),
		zap.String("type", string(n.Type)),
		zap.Uint("user_id", n.UserID),
	)

	user, err := s.users.FindUserByID(ctx, n.UserID)
	if err != nil {
		log.Warn("push skipped: recipient lookup failed", zap.Error(err))
		return
	}
	if !user.NotificationPreferences.Allows(n.Type.Category()) {
		log.Debug("push suppressed by preferences")
		return
	}
	if err := s.push.Send(ctx, user, n); err != nil {
		log.Warn("push delivery failed", zap.Error(err))
		return
	}
	if err := s.notifications.MarkDelivered(ctx, n.ID, s.opts.now()); err != nil {
		log.Warn("mark delivered failed", zap.Error(err))
	}
}

// List returns a page of the user's unexpired notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, p Pagination) (Page[models.Notification], error) {
	p = p.Normalize()
	items, total, err := s.notifications.ListByUser(ctx, userID, unreadOnly, s.opts.now(), p.Skip(), int64(p.Limit))
	if err != nil {
		return Page[models.Notification]{}, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return Page[models.Notification]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.CountUnread(ctx, userID, s.opts.now())
}

// MarkRead marks one notification read. Another user's notification is
// reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, notificationID string) error {
	id, err := parseObjectID(notificationID, "notification")
	if err != nil {
		return err
	}
	ok, err := s.notifications.MarkRead(ctx, userID, id, s.opts.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: notification", ErrNotFound)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID, s.opts.now())
}

func (s *NotificationService) Delete(ctx context.Context, userID uint, notificationID string) error {
	id, err := parseObjectID(notificationID, "notification")
	if err != nil {
		return err
	}
	ok, err := s.notifications.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: notification", ErrNotFound)
	}
	return nil
}

// CleanupExpired deletes every notification past its expiry. Each expired
// follow request also removes the pending relationship it announced, so that
// no request outlives its notification.
func (s *NotificationService) CleanupExpired(ctx context.Context) (CleanupResult, error) {
	now := s.opts.now()
	var result CleanupResult

	expired, err := s.notifications.FindExpired(ctx, now, models.NotificationFollowRequest)
	if err != nil {
		return result, fmt.Errorf("find expired follow requests: %w", err)
	}
	for _, n := range expired {
		p, ok := n.Data.(*models.FollowPayload)
		if !ok {
			s.logger.Warn("expired follow request without payload", zap.String("notification_id", n.ID.Hex()))
			continue
		}
		deleted, err := s.follows.DeletePending(ctx, p.FollowerID, n.UserID)
		if err != nil {
			return result, fmt.Errorf("delete pending request %d->%d: %w", p.FollowerID, n.UserID, err)
		}
		if deleted {
			result.FollowRequests++
		}
	}

	result.Notifications, err = s.notifications.DeleteExpired(ctx, now)
	if err != nil {
		return result, fmt.Errorf("delete expired notifications: %w", err)
	}
	s.logger.Info("expired notifications cleaned up",
		zap.Int64("notifications", result.Notifications),
		zap.Int64("follow_requests", result.FollowRequests),
	)
	return result, nil
}
