package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store unavailable")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func paginate[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return []T{}
	}
	end := int64(len(items))
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

// --- follows ---

type pairKey struct{ follower, following uint }

type fakeFollowRepo struct {
	mu   sync.Mutex
	rels map[pairKey]*models.FollowRelationship
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{rels: map[pairKey]*models.FollowRelationship{}}
}

func (r *fakeFollowRepo) get(a, b uint) (*models.FollowRelationship, bool) {
	rel, ok := r.rels[pairKey{a, b}]
	return rel, ok
}

func (r *fakeFollowRepo) FindPair(_ context.Context, a, b uint) (*models.FollowRelationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rel
	return &cp, nil
}

func (r *fakeFollowRepo) Insert(_ context.Context, rel *models.FollowRelationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.get(rel.FollowerID, rel.FollowingID); ok {
		return repositories.ErrDuplicate
	}
	rel.ID = primitive.NewObjectID()
	cp := *rel
	r.rels[pairKey{rel.FollowerID, rel.FollowingID}] = &cp
	return nil
}

func (r *fakeFollowRepo) Activate(_ context.Context, a, b uint, at time.Time) (*models.FollowRelationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || rel.Status == models.FollowStatusBlocked || rel.IsFollowing() {
		return nil, repositories.ErrNotFound
	}
	prev := *rel
	rel.Status, rel.IsActive, rel.FollowedAt, rel.UpdatedAt = models.FollowStatusAccepted, true, &at, at
	return &prev, nil
}

func (r *fakeFollowRepo) Deactivate(_ context.Context, a, b uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || !rel.IsFollowing() {
		return false, nil
	}
	rel.IsActive, rel.UpdatedAt = false, at
	return true, nil
}

func (r *fakeFollowRepo) MarkPending(_ context.Context, a, b uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || rel.IsFollowing() || rel.Status == models.FollowStatusBlocked || rel.Status == models.FollowStatusPending {
		return false, nil
	}
	rel.Status, rel.IsActive, rel.FollowedAt, rel.UpdatedAt = models.FollowStatusPending, true, nil, at
	return true, nil
}

func (r *fakeFollowRepo) Accept(_ context.Context, a, b uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || rel.Status != models.FollowStatusPending {
		return false, nil
	}
	rel.Status, rel.IsActive, rel.FollowedAt, rel.UpdatedAt = models.FollowStatusAccepted, true, &at, at
	return true, nil
}

func (r *fakeFollowRepo) Reject(_ context.Context, a, b uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || rel.Status != models.FollowStatusPending {
		return false, nil
	}
	rel.Status, rel.IsActive, rel.FollowedAt, rel.UpdatedAt = models.FollowStatusRejected, false, nil, at
	return true, nil
}

func (r *fakeFollowRepo) SetBlocked(_ context.Context, a, b uint, at time.Time) (*models.FollowRelationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok {
		r.rels[pairKey{a, b}] = &models.FollowRelationship{
			ID:          primitive.NewObjectID(),
			FollowerID:  a,
			FollowingID: b,
			Status:      models.FollowStatusBlocked,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		return nil, nil
	}
	prev := *rel
	rel.Status, rel.IsActive, rel.FollowedAt, rel.UpdatedAt = models.FollowStatusBlocked, false, nil, at
	return &prev, nil
}

func (r *fakeFollowRepo) Unblock(_ context.Context, a, b uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || rel.Status != models.FollowStatusBlocked {
		return false, nil
	}
	rel.Status, rel.IsActive, rel.UpdatedAt = models.FollowStatusRejected, false, at
	return true, nil
}

func (r *fakeFollowRepo) DeletePending(_ context.Context, a, b uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	if !ok || rel.Status != models.FollowStatusPending {
		return false, nil
	}
	delete(r.rels, pairKey{a, b})
	return true, nil
}

func (r *fakeFollowRepo) IsFollowing(_ context.Context, a, b uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.get(a, b)
	return ok && rel.IsFollowing(), nil
}

func (r *fakeFollowRepo) BlockExists(_ context.Context, a, b uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range []pairKey{{a, b}, {b, a}} {
		if rel, ok := r.rels[k]; ok && rel.Status == models.FollowStatusBlocked {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFollowRepo) filter(keep func(*models.FollowRelationship) bool) []models.FollowRelationship {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.FollowRelationship
	for _, rel := range r.rels {
		if keep(rel) {
			out = append(out, *rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeFollowRepo) followers(userID uint) []models.FollowRelationship {
	return r.filter(func(rel *models.FollowRelationship) bool { return rel.FollowingID == userID && rel.IsFollowing() })
}

func (r *fakeFollowRepo) following(userID uint) []models.FollowRelationship {
	return r.filter(func(rel *models.FollowRelationship) bool { return rel.FollowerID == userID && rel.IsFollowing() })
}

func (r *fakeFollowRepo) pending(userID uint) []models.FollowRelationship {
	return r.filter(func(rel *models.FollowRelationship) bool {
		return rel.FollowingID == userID && rel.Status == models.FollowStatusPending
	})
}

func (r *fakeFollowRepo) ListFollowers(_ context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error) {
	return paginate(r.followers(userID), skip, limit), nil
}

func (r *fakeFollowRepo) ListFollowing(_ context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error) {
	return paginate(r.following(userID), skip, limit), nil
}

func (r *fakeFollowRepo) ListPendingRequests(_ context.Context, userID uint, skip, limit int64) ([]models.FollowRelationship, error) {
	return paginate(r.pending(userID), skip, limit), nil
}

func (r *fakeFollowRepo) CountFollowers(_ context.Context, userID uint) (int64, error) {
	return int64(len(r.followers(userID))), nil
}

func (r *fakeFollowRepo) CountFollowing(_ context.Context, userID uint) (int64, error) {
	return int64(len(r.following(userID))), nil
}

func (r *fakeFollowRepo) CountPendingRequests(_ context.Context, userID uint) (int64, error) {
	return int64(len(r.pending(userID))), nil
}

func (r *fakeFollowRepo) FollowerIDs(_ context.Context, userID uint) ([]uint, error) {
	var ids []uint
	for _, rel := range r.followers(userID) {
		ids = append(ids, rel.FollowerID)
	}
	return ids, nil
}

func (r *fakeFollowRepo) FollowingIDs(_ context.Context, userID uint) ([]uint, error) {
	var ids []uint
	for _, rel := range r.following(userID) {
		ids = append(ids, rel.FollowingID)
	}
	return ids, nil
}

func (r *fakeFollowRepo) BlockedIDs(_ context.Context, userID uint) ([]uint, error) {
	var ids []uint
	for _, rel := range r.filter(func(rel *models.FollowRelationship) bool { return rel.Status == models.FollowStatusBlocked }) {
		switch userID {
		case rel.FollowerID:
			ids = append(ids, rel.FollowingID)
		case rel.FollowingID:
			ids = append(ids, rel.FollowerID)
		}
	}
	return ids, nil
}

func (r *fakeFollowRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rels)
}

// --- notifications ---

type fakeNotificationRepo struct {
	mu        sync.Mutex
	items     map[primitive.ObjectID]*models.Notification
	insertErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: map[primitive.ObjectID]*models.Notification{}}
}

func (r *fakeNotificationRepo) byKey(key string) *models.Notification {
	for _, n := range r.items {
		if n.DedupKey != "" && n.DedupKey == key {
			return n
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Insert(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	if n.DedupKey != "" && r.byKey(n.DedupKey) != nil {
		return repositories.ErrDuplicate
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) RefreshByDedupKey(_ context.Context, key string, notAfter time.Time, refresh repositories.NotificationRefresh) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byKey(key)
	if n == nil || n.CreatedAt.After(notAfter) {
		return nil, repositories.ErrNotFound
	}
	n.Title, n.Message, n.Data = refresh.Title, refresh.Message, refresh.Data
	n.IsRead, n.ReadAt, n.IsDelivered, n.DeliveredAt = false, nil, false, nil
	n.CreatedAt, n.UpdatedAt, n.ExpiresAt = refresh.At, refresh.At, refresh.ExpiresAt
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) FindByDedupKey(_ context.Context, key string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byKey(key)
	if n == nil {
		return nil, repositories.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) Rewrite(_ context.Context, key string, rw repositories.NotificationRewrite) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byKey(key)
	if n == nil {
		return nil, repositories.ErrNotFound
	}
	n.Type, n.Title, n.Message, n.Data = rw.Type, rw.Title, rw.Message, rw.Data
	n.UpdatedAt, n.ExpiresAt, n.DedupKey = rw.At, rw.ExpiresAt, ""
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) DeleteByDedupKey(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.byKey(key)
	if n == nil {
		return false, nil
	}
	delete(r.items, n.ID)
	return true, nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uint, unreadOnly bool, now time.Time, skip, limit int64) ([]models.Notification, int64, error) {
	r.mu.Lock()
	var out []models.Notification
	for _, n := range r.items {
		if n.UserID == userID && n.ExpiresAt.After(now) && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, skip, limit), int64(len(out)), nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID uint, now time.Time) (int64, error) {
	_, total, err := r.ListByUser(context.Background(), userID, true, now, 0, 0)
	return total, err
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, userID uint, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead, n.ReadAt = true, &at
	return true, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID uint, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, item := range r.items {
		if item.UserID == userID && !item.IsRead {
			item.IsRead, item.ReadAt = true, &at
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, userID uint, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *fakeNotificationRepo) MarkDelivered(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.items[id]; ok {
		n.IsDelivered, n.DeliveredAt = true, &at
	}
	return nil
}

func (r *fakeNotificationRepo) FindExpired(_ context.Context, now time.Time, t models.NotificationType) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.items {
		if n.Type == t && n.ExpiresAt.Before(now) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, item := range r.items {
		if item.ExpiresAt.Before(now) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) find(userID uint, t models.NotificationType) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.items {
		if n.UserID == userID && n.Type == t {
			out = append(out, *n)
		}
	}
	return out
}

func (r *fakeNotificationRepo) get(id primitive.ObjectID) (models.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return models.Notification{}, false
	}
	return *n, true
}

// --- activities ---

type fakeActivityRepo struct {
	mu    sync.Mutex
	items []*models.Activity
}

func (r *fakeActivityRepo) Create(_ context.Context, a *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	cp := *a
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeActivityRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id && a.IsActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func containsUint(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *fakeActivityRepo) match(q repositories.ActivityQuery) []models.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Activity
	for _, a := range r.items {
		if !a.IsActive {
			continue
		}
		if q.AuthorIDs != nil && !containsUint(q.AuthorIDs, a.UserID) {
			continue
		}
		if containsUint(q.ExcludeAuthorIDs, a.UserID) {
			continue
		}
		if len(q.Types) > 0 {
			found := false
			for _, t := range q.Types {
				found = found || t == a.Type
			}
			if !found {
				continue
			}
		}
		if q.PublicOnly && !a.IsPublic {
			continue
		}
		if !q.Since.IsZero() && a.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeActivityRepo) Find(_ context.Context, q repositories.ActivityQuery) ([]models.Activity, error) {
	return paginate(r.match(q), q.Skip, q.Limit), nil
}

func (r *fakeActivityRepo) Count(_ context.Context, q repositories.ActivityQuery) (int64, error) {
	return int64(len(r.match(q))), nil
}

func (r *fakeActivityRepo) Deactivate(_ context.Context, id primitive.ObjectID, userID uint, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id && a.UserID == userID && a.IsActive {
			a.IsActive, a.UpdatedAt = false, at
			return true, nil
		}
	}
	return false, nil
}

// --- likes ---

type likeKey struct {
	target   models.LikeTarget
	targetID string
	userID   uint
}

type fakeLikeRepo struct {
	mu       sync.Mutex
	likes    map[likeKey]models.Like
	countErr error
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: map[likeKey]models.Like{}}
}

func (r *fakeLikeRepo) Create(_ context.Context, l *models.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := likeKey{l.TargetType, l.TargetID, l.UserID}
	if _, ok := r.likes[k]; ok {
		return repositories.ErrDuplicate
	}
	l.ID = primitive.NewObjectID()
	r.likes[k] = *l
	return nil
}

func (r *fakeLikeRepo) Delete(_ context.Context, target models.LikeTarget, targetID string, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := likeKey{target, targetID, userID}
	_, ok := r.likes[k]
	delete(r.likes, k)
	return ok, nil
}

func (r *fakeLikeRepo) CountByTargets(_ context.Context, target models.LikeTarget, ids []string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return nil, r.countErr
	}
	out := map[string]int64{}
	for k := range r.likes {
		for _, id := range ids {
			if k.target == target && k.targetID == id {
				out[id]++
			}
		}
	}
	return out, nil
}

func (r *fakeLikeRepo) LikedByUser(_ context.Context, target models.LikeTarget, ids []string, userID uint) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for _, id := range ids {
		if _, ok := r.likes[likeKey{target, id, userID}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// --- comments ---

type fakeCommentRepo struct {
	mu    sync.Mutex
	items []*models.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = primitive.NewObjectID()
	cp := *c
	r.items = append(r.items, &cp)
	return nil
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeCommentRepo) ListByActivity(_ context.Context, activityID primitive.ObjectID, skip, limit int64) ([]models.Comment, int64, error) {
	r.mu.Lock()
	var out []models.Comment
	for _, c := range r.items {
		if c.ActivityID == activityID {
			out = append(out, *c)
		}
	}
	r.mu.Unlock()
	return paginate(out, skip, limit), int64(len(out)), nil
}

func (r *fakeCommentRepo) CountByActivities(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[primitive.ObjectID]int64{}
	for _, c := range r.items {
		for _, id := range ids {
			if c.ActivityID == id {
				out[id]++
			}
		}
	}
	return out, nil
}

// --- relational gateway ---

type fakeUsers struct {
	mu           sync.Mutex
	users        map[uint]*models.User
	goals        map[uint]*models.Goal
	achievements map[uint]*models.Achievement
	goalsErr     error
	lookups      map[uint]int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:        map[uint]*models.User{},
		goals:        map[uint]*models.Goal{},
		achievements: map[uint]*models.Achievement{},
		lookups:      map[uint]int{},
	}
}

func (f *fakeUsers) addUser(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.Name == "" {
		u.Name = "user"
	}
	u.IsActive = true
	f.users[u.ID] = &u
}

func (f *fakeUsers) addGoal(g models.Goal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals[g.ID] = &g
}

func (f *fakeUsers) setGoalPublic(id uint, public bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals[id].IsPublic = public
}

func (f *fakeUsers) user(id uint) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

func (f *fakeUsers) lookupCount(id uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[id]
}

func (f *fakeUsers) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups[id]++
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetUsersByIDs(_ context.Context, ids []uint) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetGoalByID(_ context.Context, id uint) (*models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goalsErr != nil {
		return nil, f.goalsErr
	}
	g, ok := f.goals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeUsers) GetGoalsByIDs(_ context.Context, ids []uint) ([]models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goalsErr != nil {
		return nil, f.goalsErr
	}
	var out []models.Goal
	for _, id := range ids {
		if g, ok := f.goals[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeUsers) GetAchievementsByIDs(_ context.Context, ids []uint) ([]models.Achievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Achievement
	for _, id := range ids {
		if a, ok := f.achievements[id]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeUsers) IncrementCounter(_ context.Context, userID uint, field models.CounterField, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	switch field {
	case models.FollowersCountField:
		u.FollowersCount = max(0, u.FollowersCount+delta)
	case models.FollowingCountField:
		u.FollowingCount = max(0, u.FollowingCount+delta)
	}
	return nil
}

func (f *fakeUsers) FindSuggestionCandidates(_ context.Context, exclude []uint, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if u.IsActive && u.CompletedGoals >= 1 && !containsUint(exclude, u.ID) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		if out[i].CompletedGoals != out[j].CompletedGoals {
			return out[i].CompletedGoals > out[j].CompletedGoals
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- push ---

type sentPush struct {
	userID uint
	token  string
	n      models.Notification
}

type fakePush struct {
	mu   sync.Mutex
	sent []sentPush
	err  error
}

func (p *fakePush) Send(_ context.Context, recipient *models.User, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sentPush{userID: recipient.ID, token: recipient.FCMToken, n: *n})
	return nil
}

func (p *fakePush) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// --- harness ---

type harness struct {
	clock         *fakeClock
	follows       *fakeFollowRepo
	notifications *fakeNotificationRepo
	activities    *fakeActivityRepo
	likes         *fakeLikeRepo
	comments      *fakeCommentRepo
	users         *fakeUsers
	push          *fakePush

	notifier *NotificationService
	follow   *FollowService
	activity *ActivityService
	feed     *FeedService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:         newFakeClock(),
		follows:       newFakeFollowRepo(),
		notifications: newFakeNotificationRepo(),
		activities:    &fakeActivityRepo{},
		likes:         newFakeLikeRepo(),
		comments:      &fakeCommentRepo{},
		users:         newFakeUsers(),
		push:          &fakePush{},
	}
	opts := []Option{
		WithClock(h.clock.Now),
		WithDispatcher(func(f func()) { f() }),
	}
	log := zap.NewNop()
	h.notifier = NewNotificationService(h.notifications, h.follows, h.users, h.push, log, opts...)
	h.follow = NewFollowService(h.follows, h.users, h.notifier, log, opts...)
	h.activity = NewActivityService(h.activities, h.likes, h.comments, h.follows, h.users, h.notifier, log, opts...)
	h.feed = NewFeedService(h.activities, h.follows, h.likes, h.comments, h.users, log, opts...)

	for id := uint(1); id <= 5; id++ {
		h.users.addUser(models.User{ID: id})
	}
	return h
}

func ptr[T any](v T) *T { return &v }
