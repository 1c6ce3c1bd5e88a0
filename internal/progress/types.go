// Package progress implements the learning progress and gamification engine:
// activity and points ledgers, streak/mastery/level calculators, the
// achievement rule engine, and the dashboard aggregator behind the Service façade.
package progress

import "time"

// ActivityType classifies a logged learning activity.
type ActivityType int

const (
	ActivityChapterCompleted ActivityType = iota
	ActivityQuizCompleted
	ActivitySkillImproved
	ActivityStreakMilestone
	ActivityAchievementEarned
	ActivityPracticeSession
)

var activityTypeNames = map[ActivityType]string{
	ActivityChapterCompleted:  "chapter_completed",
	ActivityQuizCompleted:     "quiz_completed",
	ActivitySkillImproved:     "skill_improved",
	ActivityStreakMilestone:   "streak_milestone",
	ActivityAchievementEarned: "achievement_earned",
	ActivityPracticeSession:   "practice_session",
}

func (t ActivityType) String() string {
	if s, ok := activityTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseActivityType maps a wire name to an ActivityType.
func ParseActivityType(s string) (ActivityType, bool) {
	for t, name := range activityTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// PointsCategory is the ledger bucket a point award is posted to.
type PointsCategory string

const (
	CategoryChapters     PointsCategory = "chapters"
	CategoryQuizzes      PointsCategory = "quizzes"
	CategoryStreaks      PointsCategory = "streaks"
	CategoryAchievements PointsCategory = "achievements"
	CategoryBonuses      PointsCategory = "bonuses"
)

// Category returns the ledger category point awards of this activity type post to.
// Every activity type maps somewhere; unmapped types land in bonuses so a new
// type can never silently drop points.
func (t ActivityType) Category() PointsCategory {
	switch t {
	case ActivityChapterCompleted:
		return CategoryChapters
	case ActivityQuizCompleted:
		return CategoryQuizzes
	case ActivityStreakMilestone:
		return CategoryStreaks
	case ActivityAchievementEarned:
		return CategoryAchievements
	default:
		return CategoryBonuses
	}
}

// ChapterStatus is the lifecycle state of a roadmap chapter.
type ChapterStatus string

const (
	ChapterNotStarted ChapterStatus = "not_started"
	ChapterInProgress ChapterStatus = "in_progress"
	ChapterCompleted  ChapterStatus = "completed"
)

// ChapterState tracks a user's progress through one chapter.
type ChapterState struct {
	ID          int           `json:"id"`
	Status      ChapterStatus `json:"status"`
	Progress    int           `json:"progress"` // 0–100
	QuizScore   *int          `json:"quiz_score,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"` // set once, on first completion
}

// SkillState is the caller-supplied skill target, independent of computed mastery.
type SkillState struct {
	Skill     string    `json:"skill"`
	Progress  int       `json:"progress"` // 0–100
	UpdatedAt time.Time `json:"updated_at"`
}

// UserProgress is the per-user progress record. Created lazily on first touch.
type UserProgress struct {
	UserID            string                `json:"user_id"`
	TotalChapters     int                   `json:"total_chapters"`
	CompletedChapters int                   `json:"completed_chapters"`
	CurrentChapter    int                   `json:"current_chapter"` // 0 means not started
	Chapters          map[int]*ChapterState `json:"chapters"`
	SkillProgress     map[string]SkillState `json:"skill_progress"`
	TotalPoints       int                   `json:"total_points"`
	Achievements      []string              `json:"achievements"` // insertion order, no duplicates
	CreatedAt         time.Time             `json:"created_at"`
}

// HasAchievement reports whether the achievement id is already unlocked.
func (u *UserProgress) HasAchievement(id string) bool {
	for _, a := range u.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// OverallPercent is the chapter completion percentage, rounded down.
func (u *UserProgress) OverallPercent() int {
	if u.TotalChapters == 0 {
		return 0
	}
	return u.CompletedChapters * 100 / u.TotalChapters
}

// ActivityEntry is one append-only activity log record.
type ActivityEntry struct {
	ID               string       `json:"id"`
	Type             ActivityType `json:"type"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Date             time.Time    `json:"date"`
	TimeSpentMinutes int          `json:"time_spent_minutes"`
	PointsEarned     int          `json:"points_earned"`
	ChapterID        *int         `json:"chapter_id,omitempty"`
}

// LedgerEntry is one append-only points ledger record. The ledger is the source
// of truth for TotalPoints: their sum must always match.
type LedgerEntry struct {
	Category PointsCategory `json:"category"`
	Points   int            `json:"points"`
	Date     time.Time      `json:"date"`
}
