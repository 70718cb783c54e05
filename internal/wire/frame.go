package wire

import "encoding/binary"

// PeekFrameLen inspects buf for a complete outer frame and returns its
// total length in bytes (header + value), or 0 if buf does not yet hold
// a complete frame header. The I/O pump uses this to split a byte stream
// into discrete frames, handing exactly one frame at a time to the
// protocol layer.
func PeekFrameLen(buf []byte) (int, error) {
	if len(buf) < recordHeaderSize {
		return 0, nil
	}
	outerLen := binary.LittleEndian.Uint32(buf[4:8])
	total := recordHeaderSize + int(outerLen)
	if total > MaxFrameSize {
		return 0, ErrFrameTooLarge
	}
	if len(buf) < total {
		return 0, nil
	}
	return total, nil
}
