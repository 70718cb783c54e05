package session

import "errors"

// Sentinel errors grouped by kind. Call sites wrap these with
// fmt.Errorf("%s: %w", ...) to add context; callers match with
// errors.Is.
var (
	// ErrInvalidArgument covers a nil required pointer, a zero-size
	// buffer, or an unrecognised flag bit.
	ErrInvalidArgument = errors.New("session: invalid argument")

	// ErrState indicates the operation is not legal in the current
	// session or peer state.
	ErrState = errors.New("session: operation not valid in current state")

	// ErrNotFound indicates a player id, group id, or handle is not
	// present.
	ErrNotFound = errors.New("session: not found")

	// ErrBufferTooSmall indicates a caller-supplied buffer was
	// insufficient.
	ErrBufferTooSmall = errors.New("session: buffer too small")

	// ErrValidationRejected indicates the host rejected a join:
	// mismatched application or instance GUID, bad password, session
	// full, or application veto.
	ErrValidationRejected = errors.New("session: join rejected")

	// ErrConnectionLost indicates a transport failure mid-operation.
	ErrConnectionLost = errors.New("session: connection lost")

	// ErrUserCancel indicates the operation was cancelled via
	// CancelAsyncOperation or Close.
	ErrUserCancel = errors.New("session: cancelled")
)

// JoinErrorCode is the wire-level error code carried in
// CONNECT_HOST_FAIL / CONNECT_PEER_FAIL, surfaced to the joiner's
// CONNECT_COMPLETE event.
type JoinErrorCode uint32

const (
	JoinErrNone JoinErrorCode = iota
	JoinErrApplicationMismatch
	JoinErrInstanceMismatch
	JoinErrBadPassword
	JoinErrSessionFull
	JoinErrHostRejected // generic veto, including a non-success INDICATE_CONNECT return
	JoinErrConnectionLost
	JoinErrPeerMeshFailed
)

// String returns a human-readable join error name.
func (c JoinErrorCode) String() string {
	switch c {
	case JoinErrNone:
		return "NONE"
	case JoinErrApplicationMismatch:
		return "APPLICATION_MISMATCH"
	case JoinErrInstanceMismatch:
		return "INSTANCE_MISMATCH"
	case JoinErrBadPassword:
		return "BAD_PASSWORD"
	case JoinErrSessionFull:
		return "SESSION_FULL"
	case JoinErrHostRejected:
		return "HOST_REJECTED"
	case JoinErrConnectionLost:
		return "CONNECTION_LOST"
	case JoinErrPeerMeshFailed:
		return "PEER_MESH_FAILED"
	default:
		return "UNKNOWN"
	}
}

// DestroyReason qualifies a DESTROY_PLAYER event.
type DestroyReason uint8

const (
	DestroyNormal DestroyReason = iota
	DestroyConnectionLost
)

// String returns a human-readable destroy reason name.
func (r DestroyReason) String() string {
	if r == DestroyConnectionLost {
		return "CONNECTION_LOST"
	}
	return "NORMAL"
}
