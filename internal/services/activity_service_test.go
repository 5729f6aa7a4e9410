package services

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// seedActivity stores a public goal_completed activity by userID on goalID.
func seedActivity(t *testing.T, h *harness, userID, goalID uint) *models.Activity {
	t.Helper()
	a, err := h.activity.RecordActivity(context.Background(), userID, models.RecordActivityRequest{
		Type:     models.ActivityGoalCompleted,
		GoalID:   ptr(goalID),
		IsPublic: true,
	})
	require.NoError(t, err)
	return a
}

func TestRecordActivity_SnapshotsGoal(t *testing.T) {
	h := newHarness(t)
	h.users.addGoal(models.Goal{ID: 10, UserID: 1, Title: "Run a marathon", Category: "fitness", IsPublic: true})

	a := seedActivity(t, h, 1, 10)
	assert.False(t, a.ID.IsZero())
	assert.Equal(t, "Run a marathon", a.Data.GoalTitle)
	assert.Equal(t, "fitness", a.Data.GoalCategory)
	require.NotNil(t, a.Data.GoalIsPublic)
	assert.True(t, *a.Data.GoalIsPublic)
	assert.True(t, a.IsActive)
	assert.Equal(t, h.clock.Now(), a.CreatedAt)
}

func TestRecordActivity_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, Title: "Theirs", IsPublic: true})

	_, err := h.activity.RecordActivity(ctx, 1, models.RecordActivityRequest{Type: models.ActivityGoalCompleted, GoalID: ptr(uint(10))})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = h.activity.RecordActivity(ctx, 1, models.RecordActivityRequest{Type: models.ActivityGoalCompleted, GoalID: ptr(uint(77))})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.activity.RecordActivity(ctx, 1, models.RecordActivityRequest{Type: "went_for_a_walk"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordActivity_AchievementNotifiesOwner(t *testing.T) {
	h := newHarness(t)
	h.users.achievements[3] = &models.Achievement{ID: 3, Name: "Consistency", Points: 100}

	_, err := h.activity.RecordActivity(context.Background(), 1, models.RecordActivityRequest{
		Type:          models.ActivityAchievementUnlocked,
		AchievementID: ptr(uint(3)),
		IsPublic:      true,
	})
	require.NoError(t, err)

	notes := h.notifications.find(1, models.NotificationAchievement)
	require.Len(t, notes, 1)
	assert.Equal(t, 100, notes[0].Data.(*models.AchievementPayload).Points)
}

func TestDeleteActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 1, IsPublic: true})
	a := seedActivity(t, h, 1, 10)

	assert.ErrorIs(t, h.activity.DeleteActivity(ctx, 2, a.ID.Hex()), ErrNotFound)
	require.NoError(t, h.activity.DeleteActivity(ctx, 1, a.ID.Hex()))
	assert.ErrorIs(t, h.activity.DeleteActivity(ctx, 1, a.ID.Hex()), ErrNotFound)

	_, err := h.activity.LikeActivity(ctx, 2, a.ID.Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikeGoal_LikeUnlikeLikeNotifiesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, Title: "Learn Go", IsPublic: true})

	state, err := h.activity.LikeGoal(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.EqualValues(t, 1, state.LikeCount)

	h.clock.Advance(2 * time.Second)
	state, err = h.activity.UnlikeGoal(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.EqualValues(t, 0, state.LikeCount)

	h.clock.Advance(2 * time.Second)
	_, err = h.activity.LikeGoal(ctx, 1, 10)
	require.NoError(t, err)

	notes := h.notifications.find(2, models.NotificationGoalLiked)
	require.Len(t, notes, 1)
	payload := notes[0].Data.(*models.GoalLikePayload)
	assert.Equal(t, uint(1), payload.LikerID)
	assert.Equal(t, uint(10), payload.GoalID)
}

func TestLikeGoal_PrivateGoal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: false})

	_, err := h.activity.LikeGoal(ctx, 1, 10)
	assert.ErrorIs(t, err, ErrAccessDenied)

	state, err := h.activity.LikeGoal(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Empty(t, h.notifications.find(2, models.NotificationGoalLiked))

	_, err = h.activity.LikeGoal(ctx, 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLikeActivity_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	a := seedActivity(t, h, 2, 10)

	for i := 0; i < 3; i++ {
		state, err := h.activity.LikeActivity(ctx, 1, a.ID.Hex())
		require.NoError(t, err)
		assert.EqualValues(t, 1, state.LikeCount)
		h.clock.Advance(2 * time.Minute)
	}
	notes := h.notifications.find(2, models.NotificationActivityLiked)
	require.Len(t, notes, 1)
	assert.Equal(t, h.clock.Now().Add(-6*time.Minute), notes[0].CreatedAt, "repeat likes do not refresh")
}

func TestLikeActivity_RelikeAfterCooldownRefreshes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	a := seedActivity(t, h, 2, 10)

	_, err := h.activity.LikeActivity(ctx, 1, a.ID.Hex())
	require.NoError(t, err)
	_, err = h.activity.UnlikeActivity(ctx, 1, a.ID.Hex())
	require.NoError(t, err)

	h.clock.Advance(LikeCooldown + time.Second)
	_, err = h.activity.LikeActivity(ctx, 1, a.ID.Hex())
	require.NoError(t, err)

	notes := h.notifications.find(2, models.NotificationActivityLiked)
	require.Len(t, notes, 1)
	assert.Equal(t, h.clock.Now(), notes[0].CreatedAt)
}

func TestLikeActivity_Visibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	a := seedActivity(t, h, 2, 10)

	h.users.setGoalPublic(10, false)
	_, err := h.activity.LikeActivity(ctx, 1, a.ID.Hex())
	assert.ErrorIs(t, err, ErrAccessDenied, "goal made private after the activity was written")

	_, err = h.activity.LikeActivity(ctx, 2, a.ID.Hex())
	require.NoError(t, err, "the author always sees their own activity")

	h.users.setGoalPublic(10, true)
	require.NoError(t, h.follow.Block(ctx, 2, 3))
	_, err = h.activity.LikeActivity(ctx, 3, a.ID.Hex())
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = h.activity.LikeActivity(ctx, 1, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.activity.LikeActivity(ctx, 1, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddComment_NotificationsFanOut(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	a := seedActivity(t, h, 2, 10)

	parent, err := h.activity.AddComment(ctx, 3, a.ID.Hex(), models.CreateCommentRequest{Content: "Congrats!"})
	require.NoError(t, err)
	require.Len(t, h.notifications.find(2, models.NotificationActivityComment), 1)

	reply, err := h.activity.AddComment(ctx, 1, a.ID.Hex(), models.CreateCommentRequest{
		Content:  "Agreed",
		ParentID: parent.ID.Hex(),
		Mentions: []uint{2, 3, 4, 4, 1},
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	replies := h.notifications.find(3, models.NotificationCommentReply)
	require.Len(t, replies, 1)
	assert.Equal(t, parent.ID.Hex(), replies[0].Data.(*models.CommentPayload).ParentCommentID)
	assert.Len(t, h.notifications.find(2, models.NotificationActivityComment), 2)

	assert.Len(t, h.notifications.find(4, models.NotificationMention), 1)
	assert.Empty(t, h.notifications.find(2, models.NotificationMention), "already notified as author")
	assert.Empty(t, h.notifications.find(3, models.NotificationMention), "already notified as parent author")
	assert.Empty(t, h.notifications.find(1, models.NotificationMention), "never notify yourself")
}

func TestAddComment_ParentOnAnotherActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	first := seedActivity(t, h, 2, 10)
	second := seedActivity(t, h, 2, 10)

	parent, err := h.activity.AddComment(ctx, 3, first.ID.Hex(), models.CreateCommentRequest{Content: "one"})
	require.NoError(t, err)

	_, err = h.activity.AddComment(ctx, 3, second.ID.Hex(), models.CreateCommentRequest{Content: "two", ParentID: parent.ID.Hex()})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.activity.AddComment(ctx, 3, second.ID.Hex(), models.CreateCommentRequest{Content: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLikeComment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	a := seedActivity(t, h, 2, 10)

	c, err := h.activity.AddComment(ctx, 3, a.ID.Hex(), models.CreateCommentRequest{Content: "nice"})
	require.NoError(t, err)

	state, err := h.activity.LikeComment(ctx, 1, c.ID.Hex())
	require.NoError(t, err)
	assert.True(t, state.Liked)
	assert.Len(t, h.notifications.find(3, models.NotificationCommentLiked), 1)

	state, err = h.activity.UnlikeComment(ctx, 1, c.ID.Hex())
	require.NoError(t, err)
	assert.False(t, state.Liked)
	assert.Zero(t, state.LikeCount)
}

func TestListComments_OldestFirstWithAuthors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.addGoal(models.Goal{ID: 10, UserID: 2, IsPublic: true})
	a := seedActivity(t, h, 2, 10)

	for _, uid := range []uint{3, 4, 3} {
		_, err := h.activity.AddComment(ctx, uid, a.ID.Hex(), models.CreateCommentRequest{Content: "hi"})
		require.NoError(t, err)
		h.clock.Advance(time.Second)
	}

	page, err := h.activity.ListComments(ctx, 1, a.ID.Hex(), Pagination{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, uint(3), page.Items[0].UserID)
	require.NotNil(t, page.Items[1].Author)
	assert.Equal(t, uint(4), page.Items[1].Author.ID)
}
