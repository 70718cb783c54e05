package session

import "sync"

// OpKind identifies the kind of asynchronous operation an async handle
// was issued for.
type OpKind uint8

const (
	OpKindEnum OpKind = iota + 1
	OpKindConnect
	OpKindSend
	OpKindPeerInfo
)

// String returns a human-readable operation kind name.
func (k OpKind) String() string {
	switch k {
	case OpKindEnum:
		return "ENUM"
	case OpKindConnect:
		return "CONNECT"
	case OpKindSend:
		return "SEND"
	case OpKindPeerInfo:
		return "PEERINFO"
	default:
		return "UNKNOWN"
	}
}

// kindTagBits and kindTagShift locate the kind tag within an allocated
// handle: the low 29 bits are a per-kind monotonic sequence number, the
// high 3 bits are the operation kind. Unlike the legacy allocator this
// model is based on, which OR's the same tag bit into every kind's handle,
// each kind here gets a distinct tag so CancelAsyncOperation can recover
// the kind from the handle alone without a side table.
const (
	kindTagShift = 29
	kindTagMask  = uint32(0x7) << kindTagShift
	seqMask      = ^kindTagMask
)

// HandleAllocator issues opaque, monotonically increasing async
// operation handles, one independent counter per OpKind, each stamped
// with a distinct kind tag in its top three bits.
type HandleAllocator struct {
	mu   sync.Mutex
	next [5]uint32 // indexed by OpKind; index 0 unused
}

// NewHandleAllocator returns a HandleAllocator with all counters at
// their initial state. The zero handle is never issued: it signals
// "no handle" to callers (e.g. a SYNC call that completed inline).
func NewHandleAllocator() *HandleAllocator {
	return &HandleAllocator{}
}

// Allocate returns the next handle for the given kind.
func (a *HandleAllocator) Allocate(kind OpKind) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.next[kind]++
	if a.next[kind]&seqMask == 0 {
		// Skip the sequence wrapping to zero so zero stays reserved.
		a.next[kind] = 1
	}
	return (a.next[kind] & seqMask) | (uint32(kind) << kindTagShift)
}

// KindOf recovers the operation kind stamped into a handle. It reports
// ok=false for the reserved zero handle or an unrecognised tag.
func KindOf(handle uint32) (kind OpKind, ok bool) {
	if handle == 0 {
		return 0, false
	}
	kind = OpKind(handle >> kindTagShift)
	switch kind {
	case OpKindEnum, OpKindConnect, OpKindSend, OpKindPeerInfo:
		return kind, true
	default:
		return 0, false
	}
}

// PlayerIDAllocator issues session-wide unique player ids: a monotonic
// counter that wraps but always skips the reserved zero value.
type PlayerIDAllocator struct {
	mu   sync.Mutex
	next uint32
}

// NewPlayerIDAllocator returns a PlayerIDAllocator starting just past
// zero.
func NewPlayerIDAllocator() *PlayerIDAllocator {
	return &PlayerIDAllocator{next: 1}
}

// Allocate returns the next player id.
func (a *PlayerIDAllocator) Allocate() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.next
	a.next++
	if a.next == 0 {
		a.next = 1
	}
	return id
}

// peerIDAllocator issues internal peer ids: monotonic, never reused
// within a session instance.
type peerIDAllocator struct {
	mu   sync.Mutex
	next uint64
}

func newPeerIDAllocator() *peerIDAllocator {
	return &peerIDAllocator{next: 1}
}

func (a *peerIDAllocator) allocate() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	return id
}
