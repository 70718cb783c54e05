package commands

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// errInvalidGUIDLength indicates a hex-encoded GUID did not decode to
// exactly 16 bytes.
var errInvalidGUIDLength = errors.New("guid must decode to 16 bytes")

// parseGUIDHex decodes a 32-character hex string into a wire.GUID.
func parseGUIDHex(s string) (wire.GUID, error) {
	var g wire.GUID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("parse guid %q: %w", s, err)
	}
	if len(raw) != len(g) {
		return g, fmt.Errorf("guid %q: %w", s, errInvalidGUIDLength)
	}
	copy(g[:], raw)
	return g, nil
}
