package suggest_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-progress/internal/suggest"
)

// unreachableRedis returns a client pointed at a closed port with tiny
// timeouts, so cache operations fail fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCachedProvider_DegradesToInnerOnCacheFailure(t *testing.T) {
	want := suggest.Suggestion{Type: "quiz", Title: "Take a quiz", Description: "D", Priority: suggest.PriorityLow}
	inner := suggest.NewMockProvider(want)
	cached := suggest.NewCachedProvider(inner, unreachableRedis(t), time.Minute)

	got, err := cached.Suggest(context.Background(), suggest.StudyContext{UserID: "alice"})
	if err != nil {
		t.Fatalf("Suggest() error = %v, want cache failure absorbed", err)
	}
	if len(got) != 1 || got[0].Title != want.Title {
		t.Errorf("Suggest() = %v, want inner provider's suggestions", got)
	}
	if inner.LastContext == nil {
		t.Error("inner provider never called")
	}
}

func TestCachedProvider_InnerErrorPropagates(t *testing.T) {
	inner := suggest.NewMockProvider()
	inner.Err = context.DeadlineExceeded
	cached := suggest.NewCachedProvider(inner, unreachableRedis(t), time.Minute)

	if _, err := cached.Suggest(context.Background(), suggest.StudyContext{UserID: "alice"}); err == nil {
		t.Error("Suggest() error = nil, want inner provider error")
	}
}
