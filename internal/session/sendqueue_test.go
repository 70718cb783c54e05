package session_test

import (
	"testing"

	"github.com/kestrelnet/dpsession/internal/session"
)

func TestSendQueueEmptyInitially(t *testing.T) {
	t.Parallel()

	q := session.NewSendQueue()
	if !q.Empty() {
		t.Error("new SendQueue reports non-empty")
	}
	if q.PeekFront() != nil {
		t.Error("new SendQueue PeekFront() != nil")
	}
}

func TestSendQueueFIFOOrder(t *testing.T) {
	t.Parallel()

	q := session.NewSendQueue()
	q.Enqueue([]byte("first"), nil)
	q.Enqueue([]byte("second"), nil)

	if got := string(q.PeekFront()); got != "first" {
		t.Fatalf("PeekFront() = %q, want %q", got, "first")
	}

	q.Advance(len("first"))
	if !q.HeadFullyWritten() {
		t.Fatal("HeadFullyWritten() = false after advancing the full frame length")
	}

	q.PopFrontWith(session.SendOK)
	if got := string(q.PeekFront()); got != "second" {
		t.Fatalf("PeekFront() after pop = %q, want %q", got, "second")
	}
}

func TestSendQueuePartialAdvance(t *testing.T) {
	t.Parallel()

	q := session.NewSendQueue()
	q.Enqueue([]byte("0123456789"), nil)

	q.Advance(4)
	if q.HeadFullyWritten() {
		t.Fatal("HeadFullyWritten() = true after a partial write")
	}
	if got := string(q.PeekFront()); got != "456789" {
		t.Errorf("PeekFront() = %q, want %q", got, "456789")
	}
}

func TestSendQueuePopInvokesCallback(t *testing.T) {
	t.Parallel()

	q := session.NewSendQueue()

	var got session.SendResult
	called := false
	q.Enqueue([]byte("x"), func(r session.SendResult) {
		called = true
		got = r
	})

	q.Advance(1)
	q.PopFrontWith(session.SendOK)

	if !called {
		t.Fatal("completion callback was not invoked")
	}
	if got != session.SendOK {
		t.Errorf("callback result = %v, want %v", got, session.SendOK)
	}
}

func TestSendQueuePopOnEmptyIsNoop(t *testing.T) {
	t.Parallel()

	q := session.NewSendQueue()
	q.PopFrontWith(session.SendOK) // must not panic
	q.Advance(10)                  // must not panic

	if !q.Empty() {
		t.Error("Empty() = false after operating on an empty queue")
	}
}

func TestSendQueueCancelAllInvokesEveryCallback(t *testing.T) {
	t.Parallel()

	q := session.NewSendQueue()

	results := make([]session.SendResult, 0, 3)
	for range 3 {
		q.Enqueue([]byte("frame"), func(r session.SendResult) {
			results = append(results, r)
		})
	}

	q.CancelAll(session.SendConnectionLost)

	if !q.Empty() {
		t.Error("Empty() = false after CancelAll")
	}
	if len(results) != 3 {
		t.Fatalf("callbacks invoked = %d, want 3", len(results))
	}
	for i, r := range results {
		if r != session.SendConnectionLost {
			t.Errorf("results[%d] = %v, want %v", i, r, session.SendConnectionLost)
		}
	}
}
