package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrendingWindow = 24 * time.Hour
	ExploreWindow         = 7 * 24 * time.Hour

	// candidateLimit caps the activities scored in memory by the trending
	// and explore reads.
	candidateLimit = 500
	recencyWeight  = 10.0
)

// RecentScope selects the activities returned by GetRecentActivities.
type RecentScope string

const (
	ScopeGlobal   RecentScope = "global"
	ScopePersonal RecentScope = "personal"
)

// FeedService assembles activity pages from the follow graph, the activity
// store and the relational user and goal records.
type FeedService struct {
	activities repositories.ActivityRepository
	follows    repositories.FollowRepository
	likes      repositories.LikeRepository
	comments   repositories.CommentRepository
	users      repositories.UserGoalGateway
	logger     *zap.Logger
	opts       serviceOptions
}

func NewFeedService(
	activities repositories.ActivityRepository,
	follows repositories.FollowRepository,
	likes repositories.LikeRepository,
	comments repositories.CommentRepository,
	users repositories.UserGoalGateway,
	logger *zap.Logger,
	opts ...Option,
) *FeedService {
	return &FeedService{
		activities: activities,
		follows:    follows,
		likes:      likes,
		comments:   comments,
		users:      users,
		logger:     logger,
		opts:       buildOptions(opts),
	}
}

// GetFeed returns activities of accounts viewerID follows, newest first.
// Blocked accounts in either direction, non-feed types and activities on
// goals that are private right now are left out.
//
// Total counts the stored activities before the live goal privacy check, so
// it can exceed the number of items actually returned across all pages.
func (s *FeedService) GetFeed(ctx context.Context, viewerID uint, p Pagination) (Page[models.FeedItem], error) {
	p = p.Normalize()
	following, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return Page[models.FeedItem]{}, err
	}
	blocked, err := s.follows.BlockedIDs(ctx, viewerID)
	if err != nil {
		return Page[models.FeedItem]{}, err
	}

	q := repositories.ActivityQuery{
		AuthorIDs:  without(following, blocked),
		Types:      models.FeedActivityTypes,
		PublicOnly: true,
		Skip:       p.Skip(),
		Limit:      int64(p.Limit),
	}
	return s.page(ctx, viewerID, q, p)
}

// GetUserActivities lists authorID's activities. Viewers other than the
// author must follow the author and see public activities only.
func (s *FeedService) GetUserActivities(ctx context.Context, viewerID, authorID uint, p Pagination) (Page[models.FeedItem], error) {
	p = p.Normalize()
	q := repositories.ActivityQuery{
		AuthorIDs: []uint{authorID},
		Skip:      p.Skip(),
		Limit:     int64(p.Limit),
	}
	if viewerID != authorID {
		blocked, err := s.follows.BlockExists(ctx, viewerID, authorID)
		if err != nil {
			return Page[models.FeedItem]{}, err
		}
		following, err := s.follows.IsFollowing(ctx, viewerID, authorID)
		if err != nil {
			return Page[models.FeedItem]{}, err
		}
		if blocked || !following {
			return Page[models.FeedItem]{}, ErrAccessDenied
		}
		q.PublicOnly = true
	}
	return s.page(ctx, viewerID, q, p)
}

// GetRecentActivities returns the newest public feed activities from everyone
// (global) or the viewer's own activities (personal).
func (s *FeedService) GetRecentActivities(ctx context.Context, viewerID uint, scope RecentScope, p Pagination) (Page[models.FeedItem], error) {
	p = p.Normalize()
	q := repositories.ActivityQuery{Skip: p.Skip(), Limit: int64(p.Limit)}

	switch scope {
	case ScopePersonal:
		q.AuthorIDs = []uint{viewerID}
	case ScopeGlobal, "":
		blocked, err := s.follows.BlockedIDs(ctx, viewerID)
		if err != nil {
			return Page[models.FeedItem]{}, err
		}
		q.ExcludeAuthorIDs = blocked
		q.Types = models.FeedActivityTypes
		q.PublicOnly = true
	default:
		return Page[models.FeedItem]{}, fmt.Errorf("%w: unknown scope %q", ErrValidation, scope)
	}
	return s.page(ctx, viewerID, q, p)
}

// GetTrendingActivities ranks public activities created within window by like
// count, newest first among equals.
func (s *FeedService) GetTrendingActivities(ctx context.Context, viewerID uint, window time.Duration, limit int) ([]models.FeedItem, error) {
	if window <= 0 {
		window = DefaultTrendingWindow
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	candidates, err := s.candidates(ctx, viewerID, window, models.FeedActivityTypes)
	if err != nil {
		return nil, err
	}
	counts, err := s.likes.CountByTargets(ctx, models.LikeTargetActivity, activityHexIDs(candidates))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := counts[candidates[i].ID.Hex()], counts[candidates[j].ID.Hex()]
		if ci != cj {
			return ci > cj
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	out := make([]models.FeedItem, 0, limit)
	for start := 0; start < len(candidates) && len(out) < limit; start += limit {
		end := min(start+limit, len(candidates))
		items, err := s.enrich(ctx, viewerID, candidates[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetExploreActivityFeed ranks goal completions from the last seven days by
// likes + 2*comments plus a recency bonus that decays linearly to zero over
// the window. The viewer's own activities are excluded.
func (s *FeedService) GetExploreActivityFeed(ctx context.Context, viewerID uint, p Pagination) (Page[models.FeedItem], error) {
	p = p.Normalize()
	candidates, err := s.candidates(ctx, viewerID, ExploreWindow, []models.ActivityType{models.ActivityGoalCompleted})
	if err != nil {
		return Page[models.FeedItem]{}, err
	}
	filtered := candidates[:0]
	for _, a := range candidates {
		if a.UserID != viewerID {
			filtered = append(filtered, a)
		}
	}

	items, err := s.enrich(ctx, viewerID, filtered)
	if err != nil {
		return Page[models.FeedItem]{}, err
	}
	now := s.opts.now()
	for i := range items {
		items[i].Score = exploreScore(items[i], now)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })

	total := int64(len(items))
	start := min(int(p.Skip()), len(items))
	end := min(start+p.Limit, len(items))
	return Page[models.FeedItem]{Items: items[start:end], Total: total, Page: p.Page, Limit: p.Limit}, nil
}

func exploreScore(item models.FeedItem, now time.Time) float64 {
	age := now.Sub(item.CreatedAt)
	recency := 0.0
	if age < ExploreWindow {
		recency = recencyWeight * (1 - float64(age)/float64(ExploreWindow))
	}
	return float64(item.LikeCount) + 2*float64(item.CommentCount) + recency
}

func (s *FeedService) candidates(ctx context.Context, viewerID uint, window time.Duration, types []models.ActivityType) ([]models.Activity, error) {
	blocked, err := s.follows.BlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.activities.Find(ctx, repositories.ActivityQuery{
		ExcludeAuthorIDs: blocked,
		Types:            types,
		PublicOnly:       true,
		Since:            s.opts.now().Add(-window),
		Limit:            candidateLimit,
	})
}

func (s *FeedService) page(ctx context.Context, viewerID uint, q repositories.ActivityQuery, p Pagination) (Page[models.FeedItem], error) {
	total, err := s.activities.Count(ctx, q)
	if err != nil {
		return Page[models.FeedItem]{}, err
	}
	activities, err := s.activities.Find(ctx, q)
	if err != nil {
		return Page[models.FeedItem]{}, err
	}
	items, err := s.enrich(ctx, viewerID, activities)
	if err != nil {
		return Page[models.FeedItem]{}, err
	}
	return Page[models.FeedItem]{Items: items, Total: total, Page: p.Page, Limit: p.Limit}, nil
}

// enrich batch-loads everything the page references and drops activities
// whose goal is not public right now (unless the viewer owns it) or whose
// goal or author no longer exists. Goal and user lookups must succeed, since
// privacy cannot be verified without them; achievements and like/comment
// data degrade to empty on failure.
func (s *FeedService) enrich(ctx context.Context, viewerID uint, activities []models.Activity) ([]models.FeedItem, error) {
	items := make([]models.FeedItem, 0, len(activities))
	if len(activities) == 0 {
		return items, nil
	}

	var goalIDs, userIDs, achievementIDs []uint
	objectIDs := make([]primitive.ObjectID, 0, len(activities))
	for _, a := range activities {
		userIDs = append(userIDs, a.UserID)
		objectIDs = append(objectIDs, a.ID)
		if a.Data.GoalID != nil {
			goalIDs = append(goalIDs, *a.Data.GoalID)
		}
		if a.Data.AchievementID != nil {
			achievementIDs = append(achievementIDs, *a.Data.AchievementID)
		}
	}
	hexIDs := activityHexIDs(activities)

	var (
		goals        = map[uint]models.Goal{}
		users        = map[uint]models.User{}
		achievements = map[uint]models.Achievement{}
		likeCounts   = map[string]int64{}
		liked        = map[string]bool{}
		commentCount = map[primitive.ObjectID]int64{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.users.GetGoalsByIDs(gctx, uniqueIDs(goalIDs))
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		for _, row := range rows {
			goals[row.ID] = row
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.users.GetUsersByIDs(gctx, uniqueIDs(userIDs))
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		for _, row := range rows {
			users[row.ID] = row
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.users.GetAchievementsByIDs(gctx, uniqueIDs(achievementIDs))
		if err != nil {
			s.logger.Warn("feed achievements unavailable", zap.Error(err))
			return nil
		}
		for _, row := range rows {
			achievements[row.ID] = row
		}
		return nil
	})
	g.Go(func() error {
		counts, err := s.likes.CountByTargets(gctx, models.LikeTargetActivity, hexIDs)
		if err != nil {
			s.logger.Warn("feed like counts unavailable", zap.Error(err))
			return nil
		}
		likeCounts = counts
		return nil
	})
	g.Go(func() error {
		mine, err := s.likes.LikedByUser(gctx, models.LikeTargetActivity, hexIDs, viewerID)
		if err != nil {
			s.logger.Warn("feed like state unavailable", zap.Error(err))
			return nil
		}
		liked = mine
		return nil
	})
	g.Go(func() error {
		counts, err := s.comments.CountByActivities(gctx, objectIDs)
		if err != nil {
			s.logger.Warn("feed comment counts unavailable", zap.Error(err))
			return nil
		}
		commentCount = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, a := range activities {
		author, ok := users[a.UserID]
		if !ok {
			continue
		}
		item := models.FeedItem{
			Activity:     a,
			LikeCount:    likeCounts[a.ID.Hex()],
			CommentCount: commentCount[a.ID],
			IsLiked:      liked[a.ID.Hex()],
		}
		actor := author.ToCompact()
		item.Actor = &actor

		if a.Data.GoalID != nil {
			goal, ok := goals[*a.Data.GoalID]
			if !ok || (!goal.IsPublic && a.UserID != viewerID) {
				continue
			}
			summary := goal.ToSummary()
			item.Goal = &summary
		}
		if a.Data.AchievementID != nil {
			if ach, ok := achievements[*a.Data.AchievementID]; ok {
				item.Achievement = &models.AchievementSummary{
					ID:      ach.ID,
					Name:    ach.Name,
					IconURL: ach.IconURL,
					Points:  ach.Points,
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func activityHexIDs(activities []models.Activity) []string {
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ID.Hex())
	}
	return ids
}

// without returns ids minus exclude, never nil.
func without(ids, exclude []uint) []uint {
	drop := make(map[uint]struct{}, len(exclude))
	for _, id := range exclude {
		drop[id] = struct{}{}
	}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
