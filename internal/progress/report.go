package progress

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteReport renders a progress report workbook for userID and writes it to
// w: a summary sheet (points, level, streak, achievements), a per-skill
// mastery sheet, and the 12-week activity sheet.
func (s *Service) WriteReport(userID string, w io.Writer) error {
	lock := s.userLock(userID)
	lock.Lock()
	u, err := s.store.User(userID)
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("load user: %w", err)
	}
	entries, err := s.store.Activities(userID)
	if err != nil {
		lock.Unlock()
		return fmt.Errorf("load activities: %w", err)
	}
	lock.Unlock()

	now := s.now()
	streak := CalculateStreak(entries, now)
	mastery := CalculateMastery(s.registry, u.Chapters)
	graph := BuildProgressGraph(entries, now)
	level := CalculateLevel(u.TotalPoints)

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	summaryRows := [][]any{
		{"User", u.UserID},
		{"Chapters completed", fmt.Sprintf("%d / %d", u.CompletedChapters, u.TotalChapters)},
		{"Overall progress", fmt.Sprintf("%d%%", u.OverallPercent())},
		{"Total points", u.TotalPoints},
		{"Level", fmt.Sprintf("%s (level %d)", level.Name, level.Number)},
		{"Current streak", fmt.Sprintf("%d days (%s)", streak.CurrentStreak, streak.Status)},
		{"Longest streak", fmt.Sprintf("%d days", streak.LongestStreak)},
		{"Achievements", len(u.Achievements)},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	const skillsSheet = "Skills"
	if _, err := f.NewSheet(skillsSheet); err != nil {
		return fmt.Errorf("create skills sheet: %w", err)
	}
	skillHeader := []any{"Skill", "Category", "Chapters", "Completion %", "Avg quiz", "Mastery %", "Level"}
	if err := f.SetSheetRow(skillsSheet, "A1", &skillHeader); err != nil {
		return fmt.Errorf("write skills header: %w", err)
	}
	for i, m := range mastery.Skills {
		row := []any{
			m.DisplayName,
			m.Category,
			fmt.Sprintf("%d / %d", m.CompletedChapters, m.TotalChapters),
			m.CompletionRate,
			m.AverageQuizScore,
			m.MasteryPercent,
			m.Level,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(skillsSheet, cell, &row); err != nil {
			return fmt.Errorf("write skill row: %w", err)
		}
	}

	const weeksSheet = "Weekly Activity"
	if _, err := f.NewSheet(weeksSheet); err != nil {
		return fmt.Errorf("create weekly sheet: %w", err)
	}
	weekHeader := []any{"Week of", "Chapters", "Quizzes", "Minutes", "Points", "Active days"}
	if err := f.SetSheetRow(weeksSheet, "A1", &weekHeader); err != nil {
		return fmt.Errorf("write weekly header: %w", err)
	}
	for i, week := range graph.Weeks {
		row := []any{
			week.WeekStart.Format("2006-01-02"),
			week.ChaptersCompleted,
			week.QuizzesCompleted,
			week.TimeSpentMinutes,
			week.PointsEarned,
			week.ActiveDays,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(weeksSheet, cell, &row); err != nil {
			return fmt.Errorf("write weekly row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
