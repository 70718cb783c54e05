package session_test

import (
	"sync"
	"testing"

	"github.com/kestrelnet/dpsession/internal/session"
)

// TestNewHandleAllocator verifies that a freshly allocated handle decodes
// back to the kind it was issued for.
func TestNewHandleAllocator(t *testing.T) {
	t.Parallel()

	alloc := session.NewHandleAllocator()

	h := alloc.Allocate(session.OpKindConnect)
	if h == 0 {
		t.Fatal("Allocate() returned the reserved zero handle")
	}

	kind, ok := session.KindOf(h)
	if !ok {
		t.Fatalf("KindOf(0x%08X): ok = false, want true", h)
	}
	if kind != session.OpKindConnect {
		t.Errorf("KindOf(0x%08X) = %v, want %v", h, kind, session.OpKindConnect)
	}
}

// TestHandleAllocateNeverZero verifies Allocate never returns the reserved
// zero handle across many allocations and kinds.
func TestHandleAllocateNeverZero(t *testing.T) {
	t.Parallel()

	alloc := session.NewHandleAllocator()

	for _, kind := range []session.OpKind{session.OpKindEnum, session.OpKindConnect, session.OpKindSend, session.OpKindPeerInfo} {
		for i := range 1000 {
			h := alloc.Allocate(kind)
			if h == 0 {
				t.Fatalf("kind %v, allocation %d: got zero handle", kind, i)
			}
		}
	}
}

// TestHandleAllocateUniquePerKind verifies that 1000 consecutive
// allocations for a single kind produce entirely unique values.
func TestHandleAllocateUniquePerKind(t *testing.T) {
	t.Parallel()

	alloc := session.NewHandleAllocator()
	seen := make(map[uint32]struct{}, 1000)

	for i := range 1000 {
		h := alloc.Allocate(session.OpKindSend)
		if _, exists := seen[h]; exists {
			t.Fatalf("allocation %d: duplicate handle 0x%08X", i, h)
		}
		seen[h] = struct{}{}
	}

	if len(seen) != 1000 {
		t.Errorf("expected 1000 unique handles, got %d", len(seen))
	}
}

// TestHandleKindTagsDoNotCollide verifies that handles allocated for
// different kinds never collide, even when their sequence numbers match,
// and that KindOf recovers the correct kind for each.
func TestHandleKindTagsDoNotCollide(t *testing.T) {
	t.Parallel()

	alloc := session.NewHandleAllocator()

	enumH := alloc.Allocate(session.OpKindEnum)
	connectH := alloc.Allocate(session.OpKindConnect)
	sendH := alloc.Allocate(session.OpKindSend)
	peerInfoH := alloc.Allocate(session.OpKindPeerInfo)

	handles := []uint32{enumH, connectH, sendH, peerInfoH}
	for i := range handles {
		for j := range handles {
			if i != j && handles[i] == handles[j] {
				t.Fatalf("handles from distinct kinds collided: enum=0x%08X connect=0x%08X send=0x%08X peerinfo=0x%08X", enumH, connectH, sendH, peerInfoH)
			}
		}
	}

	for h, want := range map[uint32]session.OpKind{enumH: session.OpKindEnum, connectH: session.OpKindConnect, sendH: session.OpKindSend, peerInfoH: session.OpKindPeerInfo} {
		kind, ok := session.KindOf(h)
		if !ok {
			t.Errorf("KindOf(0x%08X): ok = false, want true", h)
			continue
		}
		if kind != want {
			t.Errorf("KindOf(0x%08X) = %v, want %v", h, kind, want)
		}
	}
}

// TestHandleKindOfZero verifies the reserved zero handle reports ok=false.
func TestHandleKindOfZero(t *testing.T) {
	t.Parallel()

	if _, ok := session.KindOf(0); ok {
		t.Error("KindOf(0): ok = true, want false")
	}
}

// TestHandleAllocateConcurrency verifies the allocator is safe for
// concurrent use from multiple goroutines and still produces unique
// handles (requires -race to catch data races).
func TestHandleAllocateConcurrency(t *testing.T) {
	t.Parallel()

	alloc := session.NewHandleAllocator()

	const (
		numGoroutines = 10
		numPerRoutine = 200
	)

	results := make([][]uint32, numGoroutines)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := range numGoroutines {
		results[g] = make([]uint32, 0, numPerRoutine)
		go func(idx int) {
			defer wg.Done()
			for range numPerRoutine {
				h := alloc.Allocate(session.OpKindConnect)
				results[idx] = append(results[idx], h)
			}
		}(g)
	}

	wg.Wait()

	seen := make(map[uint32]struct{}, numGoroutines*numPerRoutine)
	for g, handles := range results {
		for i, h := range handles {
			if _, exists := seen[h]; exists {
				t.Errorf("goroutine %d, allocation %d: duplicate handle 0x%08X", g, i, h)
			}
			seen[h] = struct{}{}
		}
	}

	if want := numGoroutines * numPerRoutine; len(seen) != want {
		t.Errorf("expected %d unique handles, got %d", want, len(seen))
	}
}

// TestPlayerIDAllocatorSkipsZero verifies PlayerIDAllocator never issues
// the reserved zero player id over its first 1000 allocations.
func TestPlayerIDAllocatorSkipsZero(t *testing.T) {
	t.Parallel()

	alloc := session.NewPlayerIDAllocator()

	for i := range 1000 {
		id := alloc.Allocate()
		if id == 0 {
			t.Fatalf("allocation %d: got zero player id", i)
		}
	}
}

// TestPlayerIDAllocatorUnique verifies consecutive allocations are unique.
func TestPlayerIDAllocatorUnique(t *testing.T) {
	t.Parallel()

	alloc := session.NewPlayerIDAllocator()
	seen := make(map[uint32]struct{}, 1000)

	for i := range 1000 {
		id := alloc.Allocate()
		if _, exists := seen[id]; exists {
			t.Fatalf("allocation %d: duplicate player id %d", i, id)
		}
		seen[id] = struct{}{}
	}
}
