package realtime_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-progress/internal/realtime"
)

func TestHub_PublishReachesSubscriber(t *testing.T) {
	hub := realtime.NewHub()
	ch, cancel := hub.Subscribe("alice")
	defer cancel()

	hub.Publish(realtime.Event{
		UserID: "alice",
		Type:   realtime.EventAchievementUnlocked,
		Data:   map[string]any{"id": "first_chapter"},
	})

	select {
	case evt := <-ch:
		if evt.Type != realtime.EventAchievementUnlocked {
			t.Errorf("event Type = %q, want %q", evt.Type, realtime.EventAchievementUnlocked)
		}
		if evt.At.IsZero() {
			t.Error("event At not stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHub_EventsAreScopedToUser(t *testing.T) {
	hub := realtime.NewHub()
	aliceCh, cancelAlice := hub.Subscribe("alice")
	defer cancelAlice()
	bobCh, cancelBob := hub.Subscribe("bob")
	defer cancelBob()

	hub.Publish(realtime.Event{UserID: "alice", Type: realtime.EventLevelUp})

	select {
	case <-aliceCh:
	case <-time.After(time.Second):
		t.Fatal("alice never received her event")
	}

	select {
	case evt := <-bobCh:
		t.Errorf("bob received alice's event: %+v", evt)
	default:
	}
}

func TestHub_PublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := realtime.NewHub()
	// Must not panic or block.
	hub.Publish(realtime.Event{UserID: "nobody", Type: realtime.EventLevelUp})
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	hub := realtime.NewHub()
	ch, cancel := hub.Subscribe("alice")

	if got := hub.SubscriberCount("alice"); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	cancel()

	if got := hub.SubscriberCount("alice"); got != 0 {
		t.Errorf("SubscriberCount after cancel = %d, want 0", got)
	}
	if _, open := <-ch; open {
		t.Error("channel still open after cancel")
	}

	// Cancel must be safe to call twice.
	cancel()
}

func TestHub_SlowSubscriberNeverBlocksPublish(t *testing.T) {
	hub := realtime.NewHub()
	_, cancel := hub.Subscribe("alice")
	defer cancel()

	// Far more events than the subscriber buffer holds; Publish must return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(realtime.Event{UserID: "alice", Type: realtime.EventLevelUp})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}
}

func TestHub_MultipleSubscribersEachReceive(t *testing.T) {
	hub := realtime.NewHub()
	ch1, cancel1 := hub.Subscribe("alice")
	defer cancel1()
	ch2, cancel2 := hub.Subscribe("alice")
	defer cancel2()

	hub.Publish(realtime.Event{UserID: "alice", Type: realtime.EventAchievementUnlocked})

	for i, ch := range []<-chan realtime.Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i+1)
		}
	}
}
