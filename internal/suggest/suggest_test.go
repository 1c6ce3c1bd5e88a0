package suggest_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/suggest"
)

func TestFallback(t *testing.T) {
	got := suggest.Fallback()

	if len(got) < 3 {
		t.Fatalf("len(Fallback()) = %d, want at least 3", len(got))
	}
	for i, s := range got {
		if s.Title == "" || s.Description == "" {
			t.Errorf("Fallback()[%d] has empty copy: %+v", i, s)
		}
		switch s.Priority {
		case suggest.PriorityHigh, suggest.PriorityMedium, suggest.PriorityLow:
		default:
			t.Errorf("Fallback()[%d].Priority = %q, want a known priority", i, s.Priority)
		}
	}
}

func TestMockProvider_CapturesContext(t *testing.T) {
	mock := suggest.NewMockProvider(suggest.Suggestion{Title: "Do the thing"})

	got, err := mock.Suggest(context.Background(), suggest.StudyContext{
		UserID:            "alice",
		CompletedChapters: 4,
	})
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Do the thing" {
		t.Errorf("Suggest() = %v, want the configured suggestion", got)
	}
	if mock.LastContext == nil || mock.LastContext.UserID != "alice" {
		t.Errorf("LastContext = %+v, want captured request", mock.LastContext)
	}
}
