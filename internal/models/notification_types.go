package models

import "reflect"

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationFollowRequest      NotificationType = "follow_request"
	NotificationNewFollower        NotificationType = "new_follower"
	NotificationFollowAccepted     NotificationType = "follow_accepted"
	NotificationGoalLiked          NotificationType = "goal_liked"
	NotificationActivityLiked      NotificationType = "activity_liked"
	NotificationCommentLiked       NotificationType = "comment_liked"
	NotificationActivityComment    NotificationType = "activity_comment"
	NotificationCommentReply       NotificationType = "comment_reply"
	NotificationMention            NotificationType = "mention"
	NotificationAchievement        NotificationType = "achievement_unlocked"
	NotificationGoalCompleted      NotificationType = "goal_completed"
	NotificationGoalReminder       NotificationType = "goal_reminder"
	NotificationGoalDeadline       NotificationType = "goal_deadline"
	NotificationSubgoalCompleted   NotificationType = "subgoal_completed"
	NotificationHabitReminder      NotificationType = "habit_reminder"
	NotificationHabitTarget        NotificationType = "habit_target_achieved"
	NotificationHabitStreak        NotificationType = "habit_streak"
	NotificationStreakMilestone    NotificationType = "streak_milestone"
	NotificationLevelUp            NotificationType = "level_up"
	NotificationWeeklySummary      NotificationType = "weekly_summary"
	NotificationMonthlySummary     NotificationType = "monthly_summary"
	NotificationJournalReminder    NotificationType = "journal_reminder"
	NotificationMotivationQuote    NotificationType = "motivation_quote"
	NotificationSystemAnnouncement NotificationType = "system_announcement"
	NotificationWelcome            NotificationType = "welcome"
)

type notificationKind struct {
	newPayload func() NotificationPayload
	category   PreferenceCategory
	push       bool
}

var (
	followPayload  = func() NotificationPayload { return &FollowPayload{} }
	commentPayload = func() NotificationPayload { return &CommentPayload{} }
	goalPayload    = func() NotificationPayload { return &GoalPayload{} }
	streakPayload  = func() NotificationPayload { return &StreakPayload{} }
	summaryPayload = func() NotificationPayload { return &SummaryPayload{} }
	messagePayload = func() NotificationPayload { return &MessagePayload{} }
)

var notificationKinds = map[NotificationType]notificationKind{
	NotificationFollowRequest:      {followPayload, CategorySocial, true},
	NotificationNewFollower:        {followPayload, CategorySocial, true},
	NotificationFollowAccepted:     {func() NotificationPayload { return &FollowAcceptedPayload{} }, CategorySocial, true},
	NotificationGoalLiked:          {func() NotificationPayload { return &GoalLikePayload{} }, CategorySocial, true},
	NotificationActivityLiked:      {func() NotificationPayload { return &ActivityLikePayload{} }, CategorySocial, true},
	NotificationCommentLiked:       {func() NotificationPayload { return &CommentLikePayload{} }, CategorySocial, true},
	NotificationActivityComment:    {commentPayload, CategorySocial, true},
	NotificationCommentReply:       {commentPayload, CategorySocial, true},
	NotificationMention:            {func() NotificationPayload { return &MentionPayload{} }, CategorySocial, true},
	NotificationAchievement:        {func() NotificationPayload { return &AchievementPayload{} }, CategoryNone, true},
	NotificationGoalCompleted:      {goalPayload, CategoryNone, false},
	NotificationGoalReminder:       {goalPayload, CategoryHabits, false},
	NotificationGoalDeadline:       {goalPayload, CategoryHabits, false},
	NotificationSubgoalCompleted:   {goalPayload, CategoryNone, false},
	NotificationHabitReminder:      {goalPayload, CategoryHabits, true},
	NotificationHabitTarget:        {goalPayload, CategoryHabits, true},
	NotificationHabitStreak:        {streakPayload, CategoryHabits, true},
	NotificationStreakMilestone:    {streakPayload, CategoryHabits, true},
	NotificationLevelUp:            {func() NotificationPayload { return &LevelPayload{} }, CategoryNone, true},
	NotificationWeeklySummary:      {summaryPayload, CategoryNone, true},
	NotificationMonthlySummary:     {summaryPayload, CategoryNone, true},
	NotificationJournalReminder:    {messagePayload, CategoryJournal, false},
	NotificationMotivationQuote:    {messagePayload, CategoryMotivation, false},
	NotificationSystemAnnouncement: {messagePayload, CategoryNone, false},
	NotificationWelcome:            {messagePayload, CategoryNone, false},
}

// Valid reports whether t is one of the known kinds.
func (t NotificationType) Valid() bool {
	_, ok := notificationKinds[t]
	return ok
}

// Category is the preference toggle that governs delivery of t.
func (t NotificationType) Category() PreferenceCategory {
	return notificationKinds[t].category
}

// PushByDefault reports whether t is on the push allow-list.
func (t NotificationType) PushByDefault() bool {
	return notificationKinds[t].push
}

// IsLike reports whether t is subject to the like cooldown.
func (t NotificationType) IsLike() bool {
	switch t {
	case NotificationGoalLiked, NotificationActivityLiked, NotificationCommentLiked:
		return true
	}
	return false
}

// NewPayload returns an empty payload of the concrete type carried by t,
// or nil for unknown types.
func NewPayload(t NotificationType) NotificationPayload {
	k, ok := notificationKinds[t]
	if !ok {
		return nil
	}
	return k.newPayload()
}

// PayloadMatches reports whether p has the concrete type carried by t.
func PayloadMatches(t NotificationType, p NotificationPayload) bool {
	want := NewPayload(t)
	if want == nil || p == nil {
		return false
	}
	return reflect.TypeOf(want) == reflect.TypeOf(p)
}
