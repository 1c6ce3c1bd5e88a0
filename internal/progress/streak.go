package progress

import (
	"sort"
	"time"
)

// Streak bands by current streak length.
const (
	StreakBroken    = "broken"
	StreakStarting  = "starting"
	StreakBuilding  = "building"
	StreakStrong    = "strong"
	StreakLegendary = "legendary"
)

// streakMilestones are the celebrated streak lengths, ascending.
var streakMilestones = []int{3, 7, 14, 30, 60, 100}

// LearningStreak is the derived day-streak view over the activity log.
type LearningStreak struct {
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
	Status        string     `json:"status"`
	NextMilestone int        `json:"next_milestone"`
}

// CalculateStreak derives the current and longest consecutive-day streaks from
// the activity log at day granularity. Multiple activities on one calendar day
// count once. The current streak is anchored to now: it is 0 when the most
// recent activity is more than one day old. The longest streak is the maximum
// consecutive-day run anywhere in history, independent of now.
func CalculateStreak(entries []ActivityEntry, now time.Time) LearningStreak {
	if len(entries) == 0 {
		return LearningStreak{Status: StreakBroken, NextMilestone: streakMilestones[0]}
	}

	days := distinctDays(entries)
	last := days[len(days)-1]
	today := dayOf(now)

	current := 0
	if !last.Before(today.AddDate(0, 0, -1)) {
		current = 1
		for i := len(days) - 2; i >= 0; i-- {
			if days[i+1].Sub(days[i]) == 24*time.Hour {
				current++
			} else {
				break
			}
		}
	}

	longest := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	lastActivity := latestDate(entries)
	return LearningStreak{
		CurrentStreak: current,
		LongestStreak: longest,
		LastActivity:  &lastActivity,
		Status:        streakStatus(current),
		NextMilestone: nextMilestone(current),
	}
}

func streakStatus(current int) string {
	switch {
	case current <= 0:
		return StreakBroken
	case current < 3:
		return StreakStarting
	case current < 7:
		return StreakBuilding
	case current < 30:
		return StreakStrong
	default:
		return StreakLegendary
	}
}

func nextMilestone(current int) int {
	for _, m := range streakMilestones {
		if m > current {
			return m
		}
	}
	return streakMilestones[len(streakMilestones)-1]
}

// distinctDays returns the distinct activity days, normalized to UTC midnight,
// sorted ascending.
func distinctDays(entries []ActivityEntry) []time.Time {
	seen := make(map[time.Time]struct{}, len(entries))
	for _, e := range entries {
		seen[dayOf(e.Date)] = struct{}{}
	}
	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func latestDate(entries []ActivityEntry) time.Time {
	latest := entries[0].Date
	for _, e := range entries[1:] {
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	return latest
}
