package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/p-n-ai/pai-progress/internal/suggest"
)

// QuickAction is a shortcut the dashboard offers based on current state.
type QuickAction struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
}

// DashboardStats is the composite dashboard response.
type DashboardStats struct {
	CurrentProgress ProgressSummary      `json:"current_progress"`
	SkillsMastery   SkillsMastery        `json:"skills_mastery"`
	LearningStreak  LearningStreak       `json:"learning_streak"`
	TotalPoints     int                  `json:"total_points"`
	Level           Level                `json:"level"`
	AISuggestions   []suggest.Suggestion `json:"ai_suggestions"`
	ProgressGraph   ProgressGraph        `json:"progress_graph"`
	RecentActivity  []ActivityEntry      `json:"recent_activity"`
	QuickActions    []QuickAction        `json:"quick_actions"`
	Achievements    []AchievementDef     `json:"achievements"`
}

// GetDashboardStats assembles the full dashboard. The suggestion fetch is the
// only network call: it runs outside the user lock under a bounded timeout,
// and any failure degrades to the generic fallback without surfacing to the
// caller.
func (s *Service) GetDashboardStats(ctx context.Context, userID string) (DashboardStats, error) {
	lock := s.userLock(userID)
	lock.Lock()

	u, err := s.store.User(userID)
	if err != nil {
		lock.Unlock()
		return DashboardStats{}, fmt.Errorf("load user: %w", err)
	}
	entries, err := s.store.Activities(userID)
	if err != nil {
		lock.Unlock()
		return DashboardStats{}, fmt.Errorf("load activities: %w", err)
	}
	lock.Unlock()

	now := s.now()
	streak := CalculateStreak(entries, now)
	mastery := CalculateMastery(s.registry, u.Chapters)

	stats := DashboardStats{
		CurrentProgress: ProgressSummary{
			UserID:            u.UserID,
			TotalChapters:     u.TotalChapters,
			CompletedChapters: u.CompletedChapters,
			CurrentChapter:    u.CurrentChapter,
			OverallPercent:    u.OverallPercent(),
			TotalPoints:       u.TotalPoints,
			Level:             CalculateLevel(u.TotalPoints),
			Streak:            streak,
			Achievements:      resolveAchievements(u.Achievements),
			CreatedAt:         u.CreatedAt,
		},
		SkillsMastery:  mastery,
		LearningStreak: streak,
		TotalPoints:    u.TotalPoints,
		Level:          CalculateLevel(u.TotalPoints),
		ProgressGraph:  BuildProgressGraph(entries, now),
		RecentActivity: recentActivity(entries, recentActivityLimit),
		QuickActions:   quickActions(u, streak, mastery),
		Achievements:   resolveAchievements(u.Achievements),
	}
	stats.AISuggestions = s.fetchSuggestions(ctx, u, entries, streak, mastery)
	return stats, nil
}

// fetchSuggestions asks the configured provider with a bounded timeout and
// falls back to the generic set on any failure. Provider errors are logged
// only; dashboard retrieval never fails because of them.
func (s *Service) fetchSuggestions(ctx context.Context, u *UserProgress, entries []ActivityEntry, streak LearningStreak, mastery SkillsMastery) []suggest.Suggestion {
	if s.suggester == nil {
		return suggest.Fallback()
	}

	callCtx, cancel := context.WithTimeout(ctx, s.suggestTimeout)
	defer cancel()

	weak := make([]string, 0, len(mastery.ImprovementAreas))
	for _, m := range mastery.ImprovementAreas {
		weak = append(weak, m.Skill)
	}
	recent := recentActivity(entries, 5)
	titles := make([]string, 0, len(recent))
	for _, e := range recent {
		titles = append(titles, e.Title)
	}

	suggestions, err := s.suggester.Suggest(callCtx, suggest.StudyContext{
		UserID:            u.UserID,
		CompletedChapters: u.CompletedChapters,
		TotalChapters:     u.TotalChapters,
		CurrentChapter:    u.CurrentChapter,
		AverageQuizScore:  averageQuizScore(u),
		Streak:            streak.CurrentStreak,
		WeakSkills:        weak,
		RecentActivity:    titles,
	})
	if err != nil || len(suggestions) == 0 {
		slog.Warn("suggestion provider failed, using fallback", "user_id", u.UserID, "error", err)
		return suggest.Fallback()
	}
	return suggestions
}

// recentActivity returns up to limit entries, newest first.
func recentActivity(entries []ActivityEntry, limit int) []ActivityEntry {
	out := make([]ActivityEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func quickActions(u *UserProgress, streak LearningStreak, mastery SkillsMastery) []QuickAction {
	var actions []QuickAction

	next := u.CurrentChapter
	if next == 0 {
		next = 1
	}
	if u.CompletedChapters < u.TotalChapters {
		actions = append(actions, QuickAction{
			Label:       fmt.Sprintf("Continue chapter %d", next),
			Description: "Pick up where you left off",
			Link:        fmt.Sprintf("/chapters/%d", next),
		})
	}

	if streak.CurrentStreak == 0 {
		actions = append(actions, QuickAction{
			Label:       "Restart your streak",
			Description: "Any activity today starts a new streak",
			Link:        "/practice",
		})
	} else {
		actions = append(actions, QuickAction{
			Label:       fmt.Sprintf("Keep your %d-day streak", streak.CurrentStreak),
			Description: fmt.Sprintf("Next milestone: %d days", streak.NextMilestone),
			Link:        "/practice",
		})
	}

	if len(mastery.ImprovementAreas) > 0 {
		weakest := mastery.ImprovementAreas[0]
		actions = append(actions, QuickAction{
			Label:       fmt.Sprintf("Review %s", weakest.DisplayName),
			Description: fmt.Sprintf("Currently at %d%% mastery", weakest.MasteryPercent),
			Link:        fmt.Sprintf("/skills/%s", weakest.Skill),
		})
	}
	return actions
}

// averageQuizScore is the mean quiz score over completed chapters with a
// recorded score, 0 when there are none.
func averageQuizScore(u *UserProgress) float64 {
	sum, count := 0, 0
	for _, ch := range u.Chapters {
		if ch.Status == ChapterCompleted && ch.QuizScore != nil {
			sum += *ch.QuizScore
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}
