package wire_test

import (
	"errors"
	"testing"

	"github.com/kestrelnet/dpsession/internal/wire"
)

func TestPeekFrameLenCompleteFrame(t *testing.T) {
	t.Parallel()

	frame := wire.NewEncoder().PutDWord(1).Frame()

	n, err := wire.PeekFrameLen(frame)
	if err != nil {
		t.Fatalf("PeekFrameLen() error: %v", err)
	}
	if n != len(frame) {
		t.Errorf("PeekFrameLen() = %d, want %d", n, len(frame))
	}
}

func TestPeekFrameLenPartialHeader(t *testing.T) {
	t.Parallel()

	n, err := wire.PeekFrameLen([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("PeekFrameLen() error: %v", err)
	}
	if n != 0 {
		t.Errorf("PeekFrameLen() on a partial header = %d, want 0", n)
	}
}

func TestPeekFrameLenPartialBody(t *testing.T) {
	t.Parallel()

	frame := wire.NewEncoder().PutData([]byte("0123456789")).Frame()
	partial := frame[:len(frame)-3]

	n, err := wire.PeekFrameLen(partial)
	if err != nil {
		t.Fatalf("PeekFrameLen() error: %v", err)
	}
	if n != 0 {
		t.Errorf("PeekFrameLen() on a partial body = %d, want 0", n)
	}
}

func TestPeekFrameLenTwoFramesInOneBuffer(t *testing.T) {
	t.Parallel()

	f1 := wire.NewEncoder().PutDWord(1).Frame()
	f2 := wire.NewEncoder().PutDWord(2).Frame()
	buf := append(append([]byte{}, f1...), f2...)

	n, err := wire.PeekFrameLen(buf)
	if err != nil {
		t.Fatalf("PeekFrameLen() error: %v", err)
	}
	if n != len(f1) {
		t.Fatalf("PeekFrameLen() = %d, want %d (length of first frame only)", n, len(f1))
	}

	d, err := wire.Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode() of the first frame failed: %v", err)
	}
	dw, err := d.DWord(0)
	if err != nil || dw != 1 {
		t.Errorf("first frame DWord(0) = %d, %v, want 1, nil", dw, err)
	}
}

func TestPeekFrameLenExceedsMax(t *testing.T) {
	t.Parallel()

	hdr := []byte{2, 0, 0, 0, 0, 0, 1, 0} // declares a 65536-byte body
	_, err := wire.PeekFrameLen(hdr)
	if !errors.Is(err, wire.ErrFrameTooLarge) {
		t.Errorf("PeekFrameLen() error = %v, want ErrFrameTooLarge", err)
	}
}
