package progress_test

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-progress/internal/progress"
)

func TestWriteReport(t *testing.T) {
	svc := newTestService(t)

	score := 85
	status := progress.ChapterCompleted
	if _, err := svc.UpdateChapterProgress("alice", 1, progress.ChapterUpdate{Status: &status, QuizScore: &score}); err != nil {
		t.Fatalf("UpdateChapterProgress() error = %v", err)
	}

	var buf bytes.Buffer
	if err := svc.WriteReport("alice", &buf); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("WriteReport() wrote nothing")
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Summary", "Skills", "Weekly Activity"} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("sheet %q missing (index %d, err %v)", sheet, idx, err)
		}
	}

	user, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatalf("GetCellValue(Summary, B1) error = %v", err)
	}
	if user != "alice" {
		t.Errorf("Summary B1 = %q, want alice", user)
	}

	points, err := f.GetCellValue("Summary", "B4")
	if err != nil {
		t.Fatalf("GetCellValue(Summary, B4) error = %v", err)
	}
	if points != "250" {
		t.Errorf("Summary B4 (total points) = %q, want 250", points)
	}

	skillRows, err := f.GetRows("Skills")
	if err != nil {
		t.Fatalf("GetRows(Skills) error = %v", err)
	}
	// Header plus one row per registered skill.
	if len(skillRows) != 6 {
		t.Errorf("Skills rows = %d, want 6 (header + 5 default skills)", len(skillRows))
	}

	weekRows, err := f.GetRows("Weekly Activity")
	if err != nil {
		t.Fatalf("GetRows(Weekly Activity) error = %v", err)
	}
	if len(weekRows) != 13 {
		t.Errorf("Weekly Activity rows = %d, want 13 (header + 12 weeks)", len(weekRows))
	}
}

func TestWriteReport_FreshUser(t *testing.T) {
	svc := newTestService(t)

	var buf bytes.Buffer
	if err := svc.WriteReport("nobody", &buf); err != nil {
		t.Fatalf("WriteReport() for fresh user error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	points, err := f.GetCellValue("Summary", "B4")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if points != "0" {
		t.Errorf("Summary B4 (total points) = %q, want 0", points)
	}
}
