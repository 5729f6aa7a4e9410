package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"go.uber.org/zap"
)

// FollowNotifier is the part of the notification engine driven by follow
// state transitions.
type FollowNotifier interface {
	NotifyFollowRequest(ctx context.Context, requesterID, recipientID uint) (*models.Notification, error)
	NotifyNewFollower(ctx context.Context, followerID, recipientID uint) (*models.Notification, error)
	NotifyFollowAccepted(ctx context.Context, accepterID, requesterID uint) (*models.Notification, error)
	ConvertFollowRequest(ctx context.Context, followerID, recipientID uint) (*models.Notification, error)
	RemoveFollowRequest(ctx context.Context, followerID, recipientID uint) error
}

// FollowService implements the follow relationship state machine.
type FollowService struct {
	follows  repositories.FollowRepository
	users    repositories.UserGoalGateway
	notifier FollowNotifier
	logger   *zap.Logger
	opts     serviceOptions
}

func NewFollowService(
	follows repositories.FollowRepository,
	users repositories.UserGoalGateway,
	notifier FollowNotifier,
	logger *zap.Logger,
	opts ...Option,
) *FollowService {
	return &FollowService{
		follows:  follows,
		users:    users,
		notifier: notifier,
		logger:   logger,
		opts:     buildOptions(opts),
	}
}

func (s *FollowService) targetUser(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *FollowService) ensureNotBlocked(ctx context.Context, a, b uint) error {
	blocked, err := s.follows.BlockExists(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return ErrAccessDenied
	}
	return nil
}

// adjustCounters moves both follow counters by delta. The relationship change
// has already been committed, so failures are logged rather than returned.
func (s *FollowService) adjustCounters(ctx context.Context, followerID, followingID uint, delta int) {
	if err := s.users.IncrementCounter(ctx, followerID, models.FollowingCountField, delta); err != nil {
		s.logger.Error("following counter update failed", zap.Uint("user_id", followerID), zap.Int("delta", delta), zap.Error(err))
	}
	if err := s.users.IncrementCounter(ctx, followingID, models.FollowersCountField, delta); err != nil {
		s.logger.Error("followers counter update failed", zap.Uint("user_id", followingID), zap.Int("delta", delta), zap.Error(err))
	}
}

func (s *FollowService) warn(msg string, followerID, followingID uint, err error) {
	if err != nil {
		s.logger.Warn(msg, zap.Uint("follower_id", followerID), zap.Uint("following_id", followingID), zap.Error(err))
	}
}

// Follow creates an accepted follow, or reactivates the pair's existing
// document. Following a user whose request is pending converts the request
// notification instead of creating a second one.
func (s *FollowService) Follow(ctx context.Context, followerID, followingID uint) (*models.FollowRelationship, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}
	if _, err := s.targetUser(ctx, followingID); err != nil {
		return nil, err
	}
	if err := s.ensureNotBlocked(ctx, followerID, followingID); err != nil {
		return nil, err
	}

	now := s.opts.now()
	rel, prev, err := s.activateOrInsert(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}

	s.adjustCounters(ctx, followerID, followingID, 1)
	if prev != nil && prev.Status == models.FollowStatusPending {
		_, err = s.notifier.ConvertFollowRequest(ctx, followerID, followingID)
	} else {
		_, err = s.notifier.NotifyNewFollower(ctx, followerID, followingID)
	}
	s.warn("follow notification failed", followerID, followingID, err)

	s.logger.Info("user followed",
		zap.Uint("follower_id", followerID),
		zap.Uint("following_id", followingID),
		zap.Bool("reactivated", prev != nil),
		zap.Time("at", now),
	)
	return rel, nil
}

// activateOrInsert returns the accepted relationship and, when an existing
// document was reused, its state before the update. The unique pair index
// turns a lost insert race, or an existing active follow, into
// ErrAlreadyFollowing.
func (s *FollowService) activateOrInsert(ctx context.Context, followerID, followingID uint) (*models.FollowRelationship, *models.FollowRelationship, error) {
	now := s.opts.now()
	prev, err := s.follows.Activate(ctx, followerID, followingID, now)
	if err == nil {
		rel := *prev
		rel.Status = models.FollowStatusAccepted
		rel.IsActive = true
		rel.FollowedAt = &now
		rel.UpdatedAt = now
		return &rel, prev, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, err
	}

	rel := &models.FollowRelationship{
		FollowerID:           followerID,
		FollowingID:          followingID,
		Status:               models.FollowStatusAccepted,
		IsActive:             true,
		FollowedAt:           &now,
		NotificationsEnabled: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.follows.Insert(ctx, rel); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, nil, ErrAlreadyFollowing
		}
		return nil, nil, err
	}
	return rel, nil, nil
}

// Unfollow soft-deletes an active follow.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followingID uint) error {
	ok, err := s.follows.Deactivate(ctx, followerID, followingID, s.opts.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFollowing
	}
	s.adjustCounters(ctx, followerID, followingID, -1)
	return nil
}

// FollowOrRequest follows public profiles directly and sends a request to
// private ones.
func (s *FollowService) FollowOrRequest(ctx context.Context, followerID, followingID uint) (*models.FollowRelationship, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}
	target, err := s.targetUser(ctx, followingID)
	if err != nil {
		return nil, err
	}
	if target.IsPrivate {
		return s.RequestFollow(ctx, followerID, followingID)
	}
	return s.Follow(ctx, followerID, followingID)
}

// RequestFollow opens a pending request, recycling any existing document for
// the pair. Repeating a pending request refreshes its notification.
func (s *FollowService) RequestFollow(ctx context.Context, followerID, followingID uint) (*models.FollowRelationship, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}
	if _, err := s.targetUser(ctx, followingID); err != nil {
		return nil, err
	}
	if err := s.ensureNotBlocked(ctx, followerID, followingID); err != nil {
		return nil, err
	}

	now := s.opts.now()
	ok, err := s.follows.MarkPending(ctx, followerID, followingID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.insertPending(ctx, followerID, followingID); err != nil {
			return nil, err
		}
	}

	rel, err := s.follows.FindPair(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	_, err = s.notifier.NotifyFollowRequest(ctx, followerID, followingID)
	s.warn("follow request notification failed", followerID, followingID, err)
	return rel, nil
}

// insertPending handles the cases MarkPending does not match: no document,
// an existing pending request, or an active follow.
func (s *FollowService) insertPending(ctx context.Context, followerID, followingID uint) error {
	now := s.opts.now()
	err := s.follows.Insert(ctx, &models.FollowRelationship{
		FollowerID:           followerID,
		FollowingID:          followingID,
		Status:               models.FollowStatusPending,
		IsActive:             true,
		NotificationsEnabled: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrDuplicate) {
		return err
	}

	existing, err := s.follows.FindPair(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	switch {
	case existing.IsFollowing():
		return ErrAlreadyFollowing
	case existing.Status == models.FollowStatusBlocked:
		return ErrAccessDenied
	case existing.Status == models.FollowStatusPending:
		return nil
	}
	return fmt.Errorf("follow pair %d->%d changed concurrently", followerID, followingID)
}

// AcceptFollowRequest accepts requesterID's pending request to recipientID.
func (s *FollowService) AcceptFollowRequest(ctx context.Context, recipientID, requesterID uint) error {
	ok, err := s.follows.Accept(ctx, requesterID, recipientID, s.opts.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrFollowRequestNotFound
	}

	s.adjustCounters(ctx, requesterID, recipientID, 1)
	_, err = s.notifier.ConvertFollowRequest(ctx, requesterID, recipientID)
	s.warn("follow request conversion failed", requesterID, recipientID, err)
	_, err = s.notifier.NotifyFollowAccepted(ctx, recipientID, requesterID)
	s.warn("follow accepted notification failed", requesterID, recipientID, err)
	return nil
}

// RejectFollowRequest rejects requesterID's pending request and deletes its
// notification.
func (s *FollowService) RejectFollowRequest(ctx context.Context, recipientID, requesterID uint) error {
	return s.closeRequest(ctx, requesterID, recipientID)
}

// CancelFollowRequest withdraws the caller's own pending request.
func (s *FollowService) CancelFollowRequest(ctx context.Context, requesterID, recipientID uint) error {
	return s.closeRequest(ctx, requesterID, recipientID)
}

func (s *FollowService) closeRequest(ctx context.Context, requesterID, recipientID uint) error {
	ok, err := s.follows.Reject(ctx, requesterID, recipientID, s.opts.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrFollowRequestNotFound
	}
	s.warn("follow request notification removal failed", requesterID, recipientID,
		s.notifier.RemoveFollowRequest(ctx, requesterID, recipientID))
	return nil
}

// Block marks blockerID -> blockedID as blocked and tears down follows and
// requests in both directions.
func (s *FollowService) Block(ctx context.Context, blockerID, blockedID uint) error {
	if blockerID == blockedID {
		return fmt.Errorf("%w: cannot block yourself", ErrValidation)
	}
	if _, err := s.targetUser(ctx, blockedID); err != nil {
		return err
	}

	now := s.opts.now()
	prev, err := s.follows.SetBlocked(ctx, blockerID, blockedID, now)
	if err != nil {
		return err
	}
	if prev != nil {
		if prev.IsFollowing() {
			s.adjustCounters(ctx, blockerID, blockedID, -1)
		}
		if prev.Status == models.FollowStatusPending {
			s.warn("follow request notification removal failed", blockerID, blockedID,
				s.notifier.RemoveFollowRequest(ctx, blockerID, blockedID))
		}
	}

	reverseFollowing, err := s.follows.Deactivate(ctx, blockedID, blockerID, now)
	if err != nil {
		return err
	}
	if reverseFollowing {
		s.adjustCounters(ctx, blockedID, blockerID, -1)
	}
	reversePending, err := s.follows.Reject(ctx, blockedID, blockerID, now)
	if err != nil {
		return err
	}
	if reversePending {
		s.warn("follow request notification removal failed", blockedID, blockerID,
			s.notifier.RemoveFollowRequest(ctx, blockedID, blockerID))
	}
	return nil
}

// Unblock lifts a block set by blockerID.
func (s *FollowService) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	ok, err := s.follows.Unblock(ctx, blockerID, blockedID, s.opts.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: block", ErrNotFound)
	}
	return nil
}

// IsFollowing reports whether a has an active accepted follow of b.
func (s *FollowService) IsFollowing(ctx context.Context, a, b uint) (bool, error) {
	return s.follows.IsFollowing(ctx, a, b)
}

// GetFollowers lists the users following userID, newest first.
func (s *FollowService) GetFollowers(ctx context.Context, userID uint, p Pagination) (Page[models.FollowUser], error) {
	p = p.Normalize()
	rels, err := s.follows.ListFollowers(ctx, userID, p.Skip(), int64(p.Limit))
	if err != nil {
		return Page[models.FollowUser]{}, err
	}
	total, err := s.follows.CountFollowers(ctx, userID)
	if err != nil {
		return Page[models.FollowUser]{}, err
	}
	items, err := s.followUsers(ctx, rels, func(r models.FollowRelationship) uint { return r.FollowerID })
	if err != nil {
		return Page[models.FollowUser]{}, err
	}
	return Page[models.FollowUser]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// GetFollowing lists the users userID follows, newest first.
func (s *FollowService) GetFollowing(ctx context.Context, userID uint, p Pagination) (Page[models.FollowUser], error) {
	p = p.Normalize()
	rels, err := s.follows.ListFollowing(ctx, userID, p.Skip(), int64(p.Limit))
	if err != nil {
		return Page[models.FollowUser]{}, err
	}
	total, err := s.follows.CountFollowing(ctx, userID)
	if err != nil {
		return Page[models.FollowUser]{}, err
	}
	items, err := s.followUsers(ctx, rels, func(r models.FollowRelationship) uint { return r.FollowingID })
	if err != nil {
		return Page[models.FollowUser]{}, err
	}
	return Page[models.FollowUser]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func (s *FollowService) followUsers(ctx context.Context, rels []models.FollowRelationship, pick func(models.FollowRelationship) uint) ([]models.FollowUser, error) {
	ids := make([]uint, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, pick(r))
	}
	byID, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.FollowUser, 0, len(rels))
	for _, r := range rels {
		u, ok := byID[pick(r)]
		if !ok {
			continue
		}
		items = append(items, models.FollowUser{User: u.ToCompact(), FollowedAt: r.FollowedAt})
	}
	return items, nil
}

func (s *FollowService) usersByID(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return byID, nil
}

func (s *FollowService) GetFollowerCount(ctx context.Context, userID uint) (int64, error) {
	return s.follows.CountFollowers(ctx, userID)
}

func (s *FollowService) GetFollowingCount(ctx context.Context, userID uint) (int64, error) {
	return s.follows.CountFollowing(ctx, userID)
}

func (s *FollowService) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.follows.FollowingIDs(ctx, userID)
}

// GetBlockedUserIDs returns the users blocked by or blocking userID.
func (s *FollowService) GetBlockedUserIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.follows.BlockedIDs(ctx, userID)
}

// GetMutualFollowerCount counts users who follow both a and b.
func (s *FollowService) GetMutualFollowerCount(ctx context.Context, a, b uint) (int64, error) {
	left, err := s.follows.FollowerIDs(ctx, a)
	if err != nil {
		return 0, err
	}
	right, err := s.follows.FollowerIDs(ctx, b)
	if err != nil {
		return 0, err
	}

	set := make(map[uint]struct{}, len(left))
	for _, id := range left {
		set[id] = struct{}{}
	}
	var n int64
	for _, id := range right {
		if _, ok := set[id]; ok {
			n++
			delete(set, id)
		}
	}
	return n, nil
}

// GetSuggestedUsers ranks active users with completed goals that userID does
// not already follow, by points then completions.
func (s *FollowService) GetSuggestedUsers(ctx context.Context, userID uint, limit int) ([]models.SuggestedUser, error) {
	if limit < 1 || limit > maxPageLimit {
		limit = 10
	}
	following, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.follows.BlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	exclude := make([]uint, 0, len(following)+len(blocked)+1)
	exclude = append(exclude, userID)
	exclude = append(exclude, following...)
	exclude = append(exclude, blocked...)

	users, err := s.users.FindSuggestionCandidates(ctx, exclude, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.SuggestedUser, 0, len(users))
	for i := range users {
		out = append(out, models.SuggestedUser{
			UserCompact:    users[i].ToCompact(),
			TotalPoints:    users[i].TotalPoints,
			CompletedGoals: users[i].CompletedGoals,
		})
	}
	return out, nil
}

// GetPendingRequests lists requests addressed to userID, newest first.
func (s *FollowService) GetPendingRequests(ctx context.Context, userID uint, p Pagination) (Page[models.FollowRequest], error) {
	p = p.Normalize()
	rels, err := s.follows.ListPendingRequests(ctx, userID, p.Skip(), int64(p.Limit))
	if err != nil {
		return Page[models.FollowRequest]{}, err
	}
	total, err := s.follows.CountPendingRequests(ctx, userID)
	if err != nil {
		return Page[models.FollowRequest]{}, err
	}

	ids := make([]uint, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, r.FollowerID)
	}
	byID, err := s.usersByID(ctx, ids)
	if err != nil {
		return Page[models.FollowRequest]{}, err
	}

	items := make([]models.FollowRequest, 0, len(rels))
	for _, r := range rels {
		u, ok := byID[r.FollowerID]
		if !ok {
			continue
		}
		items = append(items, models.FollowRequest{
			RelationshipID: r.ID,
			Requester:      u.ToCompact(),
			RequestedAt:    r.UpdatedAt,
		})
	}
	return Page[models.FollowRequest]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// GetFollowStats summarizes userID's follow graph as seen by viewerID.
func (s *FollowService) GetFollowStats(ctx context.Context, viewerID, userID uint) (*models.FollowStats, error) {
	if _, err := s.targetUser(ctx, userID); err != nil {
		return nil, err
	}
	stats := &models.FollowStats{UserID: userID}

	var err error
	if stats.FollowersCount, err = s.follows.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if stats.FollowingCount, err = s.follows.CountFollowing(ctx, userID); err != nil {
		return nil, err
	}
	if viewerID == userID {
		return stats, nil
	}
	if stats.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, userID); err != nil {
		return nil, err
	}
	if stats.IsFollowedBy, err = s.follows.IsFollowing(ctx, userID, viewerID); err != nil {
		return nil, err
	}

	rel, err := s.follows.FindPair(ctx, viewerID, userID)
	switch {
	case err == nil:
		stats.RequestPending = rel.Status == models.FollowStatusPending
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}
	return stats, nil
}
