package events

import (
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/tally/internal/model"
)

func TestNewNotification(t *testing.T) {
	n := NewNotification(EventTaskAdded, 3, "data")

	if n.Type != EventTaskAdded {
		t.Errorf("Type = %s, want task_added", n.Type)
	}
	if n.SubjectID != 3 {
		t.Errorf("SubjectID = %d, want 3", n.SubjectID)
	}
	if n.ID == "" {
		t.Error("ID should be set")
	}
	if n.Time.IsZero() {
		t.Error("Time should be set")
	}
	if other := NewNotification(EventTaskAdded, 3, "data"); other.ID == n.ID {
		t.Error("notification IDs should be unique")
	}
}

func TestMemoryPublisher_Subscribe(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch := p.Subscribe(EventEventAdded)
	p.Publish(NewNotification(EventEventAdded, 5, nil))

	select {
	case n := <-ch:
		if n.SubjectID != 5 {
			t.Errorf("SubjectID = %d, want 5", n.SubjectID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for notification")
	}
}

func TestMemoryPublisher_FiltersByType(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch := p.Subscribe(EventTaskDeleted)
	p.Publish(NewNotification(EventTaskAdded, 1, nil))

	select {
	case n := <-ch:
		t.Errorf("unexpected notification %s", n.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMemoryPublisher_AllEvents(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	all := p.Subscribe(AllEvents)
	p.Publish(NewNotification(EventTaskAdded, 1, nil))
	p.Publish(NewNotification(EventEventDeleted, 2, nil))

	var got []EventType
	for i := 0; i < 2; i++ {
		select {
		case n := <-all:
			got = append(got, n.Type)
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("timeout after %d notifications", i)
		}
	}
	if got[0] != EventTaskAdded || got[1] != EventEventDeleted {
		t.Errorf("got %v", got)
	}
}

func TestMemoryPublisher_Unsubscribe(t *testing.T) {
	p := NewMemoryPublisher()
	defer p.Close()

	ch := p.Subscribe(EventTaskAdded)
	if p.SubscriberCount(EventTaskAdded) != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", p.SubscriberCount(EventTaskAdded))
	}

	p.Unsubscribe(EventTaskAdded, ch)
	if p.SubscriberCount(EventTaskAdded) != 0 {
		t.Errorf("SubscriberCount = %d, want 0", p.SubscriberCount(EventTaskAdded))
	}

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestMemoryPublisher_Close(t *testing.T) {
	p := NewMemoryPublisher()
	ch := p.Subscribe(EventTaskAdded)

	p.Close()
	p.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}

	// Publishing and subscribing after close must not panic.
	p.Publish(NewNotification(EventTaskAdded, 1, nil))
	if _, ok := <-p.Subscribe(EventTaskAdded); ok {
		t.Error("subscribe after close should return a closed channel")
	}
}

func TestMemoryPublisher_NonBlocking(t *testing.T) {
	p := NewMemoryPublisher(WithBufferSize(1))
	defer p.Close()

	ch := p.Subscribe(EventTaskAdded)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Publish(NewNotification(EventTaskAdded, i, nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if n := <-ch; n.SubjectID != 0 {
		t.Errorf("first buffered SubjectID = %d, want 0", n.SubjectID)
	}
}

func TestMemoryPublisher_Concurrent(t *testing.T) {
	p := NewMemoryPublisher(WithBufferSize(1000))
	defer p.Close()

	ch := p.Subscribe(AllEvents)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				p.Publish(NewNotification(EventEventModified, n*10+j, nil))
			}
		}(i)
	}
	wg.Wait()

	if len(ch) != 100 {
		t.Errorf("received %d notifications, want 100", len(ch))
	}
}

func TestNopPublisher(t *testing.T) {
	p := NewNopPublisher()
	p.Publish(NewNotification(EventTaskAdded, 1, model.Task{ID: 1}))
	ch := p.Subscribe(AllEvents)
	if _, ok := <-ch; ok {
		t.Error("NopPublisher.Subscribe should return a closed channel")
	}
	p.Unsubscribe(AllEvents, ch)
	p.Close()
}
