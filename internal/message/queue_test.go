package message

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arnowe/homewire/internal/device"
)

func rawState(name string) *Message {
	return New(TypeState, device.ProtocolZigbee2MQTT, name, Item{Data: []byte(`{}`)})
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(8)

	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		if err := q.Put(rawState(n)); err != nil {
			t.Fatalf("Put(%q) error = %v", n, err)
		}
	}
	for _, want := range names {
		m, err := q.Get()
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if m.DeviceName != want {
			t.Errorf("Get() = %q, want %q", m.DeviceName, want)
		}
	}
}

func TestQueuePutBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	if err := q.Put(rawState("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	unblocked := make(chan struct{})
	go func() {
		if err := q.Put(rawState("second")); err != nil {
			t.Errorf("blocked Put() error = %v", err)
		}
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("Put() on a full queue returned before space was made")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := q.Get(); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("Put() still blocked after space was made")
	}
}

func TestQueueGetBlocksWhenEmpty(t *testing.T) {
	q := NewQueue(1)

	got := make(chan *Message, 1)
	go func() {
		m, err := q.Get()
		if err != nil {
			t.Errorf("Get() error = %v", err)
			return
		}
		got <- m
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Put(rawState("late")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	select {
	case m := <-got:
		if m.DeviceName != "late" {
			t.Errorf("Get() = %q, want %q", m.DeviceName, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("Get() never unblocked")
	}
}

func TestQueueCloseRejectsPutButDrains(t *testing.T) {
	q := NewQueue(4)
	for _, n := range []string{"a", "b"} {
		if err := q.Put(rawState(n)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	q.Close()
	q.Close() // second close is a no-op

	if err := q.Put(rawState("c")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Put() after close error = %v, want ErrQueueClosed", err)
	}

	for _, want := range []string{"a", "b"} {
		m, err := q.Get()
		if err != nil {
			t.Fatalf("Get() during drain error = %v", err)
		}
		if m.DeviceName != want {
			t.Errorf("Get() = %q, want %q", m.DeviceName, want)
		}
	}
	if _, err := q.Get(); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Get() after drain error = %v, want ErrQueueClosed", err)
	}
}

func TestQueueCloseUnblocksBlockedGet(t *testing.T) {
	q := NewQueue(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := q.Get(); !errors.Is(err, ErrQueueClosed) {
			t.Errorf("Get() error = %v, want ErrQueueClosed", err)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() did not unblock a waiting Get")
	}
}

func TestQueueCloseUnblocksBlockedPut(t *testing.T) {
	q := NewQueue(1)
	if err := q.Put(rawState("full")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := q.Put(rawState("blocked")); !errors.Is(err, ErrQueueClosed) {
			t.Errorf("Put() error = %v, want ErrQueueClosed", err)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() did not unblock a waiting Put")
	}
}
