package memory

import (
	"context"
	"testing"
	"time"
)

func TestSignalBusPublishReachesSubscribers(t *testing.T) {
	b := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1, err := b.Subscribe(ctx, "ch:debate:d1")
	if err != nil {
		t.Fatal(err)
	}
	ch2, err := b.Subscribe(ctx, "ch:debate:d1")
	if err != nil {
		t.Fatal(err)
	}
	other, err := b.Subscribe(ctx, "ch:debate:d2")
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(ctx, "ch:debate:d1", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case msg := <-ch:
			if string(msg) != "hello" {
				t.Fatalf("got %q", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the message")
		}
	}

	select {
	case msg := <-other:
		t.Fatalf("wrong channel received %q", msg)
	default:
	}
}

func TestSignalBusSubscriptionEndsWithContext(t *testing.T) {
	b := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "ch:votes:d1")
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received a message instead of close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not close after cancel")
	}

	// Publishing after the subscriber is gone must not panic or block.
	if err := b.Publish(context.Background(), "ch:votes:d1", []byte("late")); err != nil {
		t.Fatal(err)
	}
}

func TestSignalBusStreamReadResumesAfterLastID(t *testing.T) {
	b := NewSignalBus()
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		if err := b.StreamAppend(ctx, "st:debate:d1", []byte(p)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := b.StreamRead(ctx, "st:debate:d1", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("full read = %d entries, want 3", len(all))
	}

	tail, err := b.StreamRead(ctx, "st:debate:d1", all[0].ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail) != 2 || string(tail[0].Payload) != "b" {
		t.Fatalf("resumed read = %v", tail)
	}

	limited, err := b.StreamRead(ctx, "st:debate:d1", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited read = %d entries, want 2", len(limited))
	}
}
