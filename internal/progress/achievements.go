package progress

import "log/slog"

// AchievementDef is one unlockable achievement: a stable id, display copy, the
// point award, and the qualifying predicate over current aggregates.
type AchievementDef struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`

	Qualifies func(Snapshot) bool `json:"-"`
}

// Snapshot holds the aggregates achievement rules are evaluated against.
// It is computed before any new achievement's points are added, so a rule can
// never observe its own award (no feedback recursion).
type Snapshot struct {
	CompletedChapters int
	TotalChapters     int
	TotalPoints       int
	CurrentStreak     int
	HighQuizCount     int // completed quizzes scoring >= 90
}

// achievementCatalog is the ordered rule set. Order determines unlock order
// when several rules fire on the same mutation.
var achievementCatalog = []AchievementDef{
	{
		ID:          "first_chapter",
		Title:       "First Steps",
		Description: "Complete your first chapter",
		Points:      0,
		Qualifies:   func(s Snapshot) bool { return s.CompletedChapters >= 1 },
	},
	{
		ID:          "halfway_there",
		Title:       "Halfway There",
		Description: "Complete half of the roadmap",
		Points:      100,
		Qualifies: func(s Snapshot) bool {
			return s.TotalChapters > 0 && s.CompletedChapters*2 >= s.TotalChapters
		},
	},
	{
		ID:          "quiz_master",
		Title:       "Quiz Master",
		Description: "Score 90% or higher on three quizzes",
		Points:      150,
		Qualifies:   func(s Snapshot) bool { return s.HighQuizCount >= 3 },
	},
	{
		ID:          "week_streak",
		Title:       "Week Warrior",
		Description: "Learn every day for a week",
		Points:      200,
		Qualifies:   func(s Snapshot) bool { return s.CurrentStreak >= 7 },
	},
	{
		ID:          "month_streak",
		Title:       "Monthly Master",
		Description: "Learn every day for a month",
		Points:      500,
		Qualifies:   func(s Snapshot) bool { return s.CurrentStreak >= 30 },
	},
	{
		ID:          "points_1000",
		Title:       "Point Collector",
		Description: "Earn 1,000 total points",
		Points:      100,
		Qualifies:   func(s Snapshot) bool { return s.TotalPoints >= 1000 },
	},
	{
		ID:          "points_5000",
		Title:       "Point Hoarder",
		Description: "Earn 5,000 total points",
		Points:      250,
		Qualifies:   func(s Snapshot) bool { return s.TotalPoints >= 5000 },
	},
}

// AchievementByID returns the catalog definition for id.
func AchievementByID(id string) (AchievementDef, bool) {
	for _, def := range achievementCatalog {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDef{}, false
}

// EvaluateAchievements returns catalog rules that qualify against snap and are
// not yet unlocked. Each predicate runs isolated: a panicking rule is logged
// and skipped so it cannot block the rest of the mutation pipeline.
func EvaluateAchievements(snap Snapshot, unlocked map[string]bool) []AchievementDef {
	var earned []AchievementDef
	for _, def := range achievementCatalog {
		if unlocked[def.ID] {
			continue
		}
		if qualifiesSafely(def, snap) {
			earned = append(earned, def)
		}
	}
	return earned
}

func qualifiesSafely(def AchievementDef, snap Snapshot) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("achievement rule panicked", "id", def.ID, "panic", r)
			ok = false
		}
	}()
	if def.Qualifies == nil {
		return false
	}
	return def.Qualifies(snap)
}

// snapshotOf computes the rule aggregates for a user's current state.
func snapshotOf(u *UserProgress, streak LearningStreak) Snapshot {
	highQuiz := 0
	for _, ch := range u.Chapters {
		if ch.Status == ChapterCompleted && ch.QuizScore != nil && *ch.QuizScore >= 90 {
			highQuiz++
		}
	}
	return Snapshot{
		CompletedChapters: u.CompletedChapters,
		TotalChapters:     u.TotalChapters,
		TotalPoints:       u.TotalPoints,
		CurrentStreak:     streak.CurrentStreak,
		HighQuizCount:     highQuiz,
	}
}
