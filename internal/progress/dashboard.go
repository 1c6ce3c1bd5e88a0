package progress

import (
	"fmt"
	"time"
)

// graphWeeks is the number of calendar weeks on the progress graph, including
// the current partial week.
const graphWeeks = 12

// WeekStats is one weekly bucket of the progress graph.
type WeekStats struct {
	WeekStart         time.Time `json:"week_start"`
	WeekEnd           time.Time `json:"week_end"`
	ChaptersCompleted int       `json:"chapters_completed"`
	QuizzesCompleted  int       `json:"quizzes_completed"`
	TimeSpentMinutes  int       `json:"time_spent_minutes"`
	PointsEarned      int       `json:"points_earned"`
	ActiveDays        int       `json:"active_days"`
}

// ProgressGraph is the 12-week activity view plus derived trends.
type ProgressGraph struct {
	Weeks              []WeekStats `json:"weeks"`
	AvgChaptersPerWeek float64     `json:"avg_chapters_per_week"`
	AvgMinutesPerWeek  float64     `json:"avg_minutes_per_week"`
	MostProductiveWeek *WeekStats  `json:"most_productive_week,omitempty"`
	Insights           []string    `json:"insights"`
}

// BuildProgressGraph bins the activity log into the last 12 calendar weeks
// (Monday-start) and derives trends. Read-only: it never mutates state, and an
// empty log yields well-defined zeroed buckets rather than placeholder data.
func BuildProgressGraph(entries []ActivityEntry, now time.Time) ProgressGraph {
	currentWeek := weekStart(now)
	firstWeek := currentWeek.AddDate(0, 0, -7*(graphWeeks-1))

	weeks := make([]WeekStats, graphWeeks)
	activeDays := make([]map[time.Time]struct{}, graphWeeks)
	for i := range weeks {
		start := firstWeek.AddDate(0, 0, 7*i)
		weeks[i] = WeekStats{WeekStart: start, WeekEnd: start.AddDate(0, 0, 7).Add(-time.Second)}
		activeDays[i] = make(map[time.Time]struct{})
	}

	for _, e := range entries {
		day := dayOf(e.Date)
		idx := int(weekStart(e.Date).Sub(firstWeek).Hours() / (24 * 7))
		if idx < 0 || idx >= graphWeeks {
			continue
		}
		w := &weeks[idx]
		switch e.Type {
		case ActivityChapterCompleted:
			w.ChaptersCompleted++
		case ActivityQuizCompleted:
			w.QuizzesCompleted++
		}
		w.TimeSpentMinutes += e.TimeSpentMinutes
		w.PointsEarned += e.PointsEarned
		activeDays[idx][day] = struct{}{}
	}
	for i := range weeks {
		weeks[i].ActiveDays = len(activeDays[i])
	}

	graph := ProgressGraph{Weeks: weeks}

	totalChapters, totalMinutes := 0, 0
	for _, w := range weeks {
		totalChapters += w.ChaptersCompleted
		totalMinutes += w.TimeSpentMinutes
	}
	graph.AvgChaptersPerWeek = float64(totalChapters) / graphWeeks
	graph.AvgMinutesPerWeek = float64(totalMinutes) / graphWeeks

	// Most productive week: chapters dominate, time breaks near-ties, and the
	// earliest week wins an exact tie.
	best, bestScore := -1, 0
	for i, w := range weeks {
		score := w.ChaptersCompleted*100 + w.TimeSpentMinutes
		if score > 0 && (best == -1 || score > bestScore) {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		week := weeks[best]
		graph.MostProductiveWeek = &week
	}

	graph.Insights = graphInsights(graph)
	return graph
}

func graphInsights(g ProgressGraph) []string {
	var insights []string

	switch {
	case g.AvgChaptersPerWeek > 2:
		insights = append(insights, "Great pace! You're completing more than two chapters a week.")
	case g.AvgChaptersPerWeek > 0:
		insights = append(insights, "Steady progress. Try to finish one more chapter this week.")
	default:
		insights = append(insights, "No chapters completed recently. Pick up where you left off!")
	}

	if g.AvgMinutesPerWeek >= 120 {
		insights = append(insights, fmt.Sprintf("You're averaging %.0f minutes of study per week.", g.AvgMinutesPerWeek))
	}
	if g.MostProductiveWeek != nil {
		insights = append(insights, fmt.Sprintf("Your most productive week started %s.",
			g.MostProductiveWeek.WeekStart.Format("Jan 2")))
	}
	return insights
}

// weekStart returns the Monday midnight (UTC) of t's calendar week.
func weekStart(t time.Time) time.Time {
	day := dayOf(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}
