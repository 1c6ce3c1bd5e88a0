// Package suggest produces personalized study suggestions. Providers may call
// external AI services; callers are expected to fall back to Fallback() when a
// provider fails, so suggestion delivery never depends on provider health.
package suggest

import "context"

// Priority labels for suggestions.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// StudyContext summarizes a user's progress for suggestion generation.
type StudyContext struct {
	UserID            string   `json:"user_id"`
	CompletedChapters int      `json:"completed_chapters"`
	TotalChapters     int      `json:"total_chapters"`
	CurrentChapter    int      `json:"current_chapter"`
	AverageQuizScore  float64  `json:"average_quiz_score"`
	Streak            int      `json:"streak"`
	WeakSkills        []string `json:"weak_skills"`
	RecentActivity    []string `json:"recent_activity"`
}

// Suggestion is one actionable study suggestion.
type Suggestion struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	ActionText  string `json:"action_text,omitempty"`
	ActionLink  string `json:"action_link,omitempty"`
}

// Provider generates suggestions for a study context. Implementations may fail
// or time out; they must respect ctx cancellation.
type Provider interface {
	Suggest(ctx context.Context, sc StudyContext) ([]Suggestion, error)
}

// Fallback returns the fixed generic suggestions used when no provider is
// configured or the provider fails.
func Fallback() []Suggestion {
	return []Suggestion{
		{
			Type:        "chapter",
			Title:       "Continue your roadmap",
			Description: "Pick up the next chapter and keep your momentum going.",
			Priority:    PriorityHigh,
			ActionText:  "Resume learning",
			ActionLink:  "/roadmap",
		},
		{
			Type:        "practice",
			Title:       "Practice what you learned",
			Description: "A short practice session helps move knowledge into long-term memory.",
			Priority:    PriorityMedium,
			ActionText:  "Start practice",
			ActionLink:  "/practice",
		},
		{
			Type:        "quiz",
			Title:       "Test yourself",
			Description: "Retake a quiz on a recent chapter to check your understanding.",
			Priority:    PriorityMedium,
			ActionText:  "Take a quiz",
			ActionLink:  "/quiz",
		},
	}
}
