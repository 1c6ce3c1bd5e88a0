package progress_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

// 2026-03-09 is a Monday, so a now of 2026-03-11 puts the current week at
// Mar 9 and the twelve-week window start at Dec 22, 2025.
var graphNow = time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)

func TestBuildProgressGraph_EmptyLog(t *testing.T) {
	got := progress.BuildProgressGraph(nil, graphNow)

	if len(got.Weeks) != 12 {
		t.Fatalf("len(Weeks) = %d, want 12", len(got.Weeks))
	}
	for i, w := range got.Weeks {
		if w.ChaptersCompleted != 0 || w.TimeSpentMinutes != 0 || w.ActiveDays != 0 {
			t.Errorf("week %d not zeroed: %+v", i, w)
		}
	}
	if got.MostProductiveWeek != nil {
		t.Errorf("MostProductiveWeek = %+v, want nil for empty log", got.MostProductiveWeek)
	}
	if got.AvgChaptersPerWeek != 0 {
		t.Errorf("AvgChaptersPerWeek = %f, want 0", got.AvgChaptersPerWeek)
	}
	if len(got.Insights) == 0 {
		t.Error("Insights is empty, want at least the no-progress nudge")
	}
}

func TestBuildProgressGraph_WeekBoundaries(t *testing.T) {
	got := progress.BuildProgressGraph(nil, graphNow)

	first := got.Weeks[0].WeekStart
	wantFirst := time.Date(2025, 12, 22, 0, 0, 0, 0, time.UTC)
	if !first.Equal(wantFirst) {
		t.Errorf("Weeks[0].WeekStart = %v, want %v", first, wantFirst)
	}

	last := got.Weeks[11].WeekStart
	wantLast := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !last.Equal(wantLast) {
		t.Errorf("Weeks[11].WeekStart = %v, want %v", last, wantLast)
	}
	if last.Weekday() != time.Monday {
		t.Errorf("WeekStart weekday = %v, want Monday", last.Weekday())
	}
}

func TestBuildProgressGraph_BinsActivities(t *testing.T) {
	entries := []progress.ActivityEntry{
		{
			Type:             progress.ActivityChapterCompleted,
			Title:            "Completed chapter 3",
			Date:             time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
			TimeSpentMinutes: 45,
			PointsEarned:     100,
		},
		{
			Type:             progress.ActivityQuizCompleted,
			Title:            "Passed chapter 3 quiz",
			Date:             time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			TimeSpentMinutes: 15,
			PointsEarned:     150,
		},
		{
			Type:             progress.ActivityPracticeSession,
			Title:            "Practice",
			Date:             time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
			TimeSpentMinutes: 30,
		},
	}

	got := progress.BuildProgressGraph(entries, graphNow)

	w := got.Weeks[11]
	if w.ChaptersCompleted != 1 {
		t.Errorf("ChaptersCompleted = %d, want 1", w.ChaptersCompleted)
	}
	if w.QuizzesCompleted != 1 {
		t.Errorf("QuizzesCompleted = %d, want 1", w.QuizzesCompleted)
	}
	if w.TimeSpentMinutes != 90 {
		t.Errorf("TimeSpentMinutes = %d, want 90", w.TimeSpentMinutes)
	}
	if w.PointsEarned != 250 {
		t.Errorf("PointsEarned = %d, want 250", w.PointsEarned)
	}
	if w.ActiveDays != 2 {
		t.Errorf("ActiveDays = %d, want 2", w.ActiveDays)
	}
}

func TestBuildProgressGraph_OldEntriesOutsideWindowSkipped(t *testing.T) {
	entries := []progress.ActivityEntry{
		{
			Type:  progress.ActivityChapterCompleted,
			Title: "Ancient history",
			Date:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	got := progress.BuildProgressGraph(entries, graphNow)

	for i, w := range got.Weeks {
		if w.ChaptersCompleted != 0 {
			t.Errorf("week %d ChaptersCompleted = %d, want 0", i, w.ChaptersCompleted)
		}
	}
	if got.MostProductiveWeek != nil {
		t.Error("MostProductiveWeek set from out-of-window entry")
	}
}

func TestBuildProgressGraph_MostProductiveWeek(t *testing.T) {
	entries := []progress.ActivityEntry{
		// Two chapters in the week of Feb 23.
		{Type: progress.ActivityChapterCompleted, Date: time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)},
		{Type: progress.ActivityChapterCompleted, Date: time.Date(2026, 2, 26, 9, 0, 0, 0, time.UTC)},
		// One chapter with lots of time in the current week.
		{Type: progress.ActivityChapterCompleted, Date: graphNow, TimeSpentMinutes: 90},
	}

	got := progress.BuildProgressGraph(entries, graphNow)

	if got.MostProductiveWeek == nil {
		t.Fatal("MostProductiveWeek = nil, want set")
	}
	want := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	if !got.MostProductiveWeek.WeekStart.Equal(want) {
		t.Errorf("MostProductiveWeek.WeekStart = %v, want %v (chapters outrank minutes)",
			got.MostProductiveWeek.WeekStart, want)
	}
}

func TestBuildProgressGraph_TieGoesToEarliestWeek(t *testing.T) {
	entries := []progress.ActivityEntry{
		{Type: progress.ActivityChapterCompleted, Date: time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC)},
		{Type: progress.ActivityChapterCompleted, Date: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)},
	}

	got := progress.BuildProgressGraph(entries, graphNow)

	if got.MostProductiveWeek == nil {
		t.Fatal("MostProductiveWeek = nil, want set")
	}
	want := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	if !got.MostProductiveWeek.WeekStart.Equal(want) {
		t.Errorf("MostProductiveWeek.WeekStart = %v, want earliest tied week %v",
			got.MostProductiveWeek.WeekStart, want)
	}
}

func TestBuildProgressGraph_Averages(t *testing.T) {
	entries := []progress.ActivityEntry{
		{Type: progress.ActivityChapterCompleted, Date: graphNow, TimeSpentMinutes: 60},
		{Type: progress.ActivityChapterCompleted, Date: graphNow.AddDate(0, 0, -7), TimeSpentMinutes: 60},
		{Type: progress.ActivityChapterCompleted, Date: graphNow.AddDate(0, 0, -14), TimeSpentMinutes: 60},
	}

	got := progress.BuildProgressGraph(entries, graphNow)

	if got.AvgChaptersPerWeek != 0.25 {
		t.Errorf("AvgChaptersPerWeek = %f, want 0.25 (3 over 12 weeks)", got.AvgChaptersPerWeek)
	}
	if got.AvgMinutesPerWeek != 15 {
		t.Errorf("AvgMinutesPerWeek = %f, want 15", got.AvgMinutesPerWeek)
	}
}
