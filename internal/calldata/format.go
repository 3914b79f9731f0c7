package calldata

import "buyAlerts/internal/felt"

// Format identifies the execute calldata layout.
type Format int

const (
	// FormatCurrent packs [address, selector, dataLen, data...] per call.
	FormatCurrent Format = iota
	// FormatLegacy is the Cairo 0 layout: all headers first, then one shared blob.
	FormatLegacy
)

const probeIndex = 3

func (f Format) String() string {
	switch f {
	case FormatLegacy:
		return "legacy"
	case FormatCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// DetectFormat inspects index 3: zero selects the legacy layout, anything else
// the current one. The probe ignores the call count, so a current-format
// transaction whose first call has no arguments reads as legacy.
func DetectFormat(flattened []string) (Format, error) {
	if len(flattened) <= probeIndex {
		return 0, decodeErrorf(probeIndex, "format probe out of range (len %d)", len(flattened))
	}
	v, err := felt.Parse(flattened[probeIndex])
	if err != nil {
		return 0, decodeErrorf(probeIndex, "format probe: %v", err)
	}
	if v.IsZero() {
		return FormatLegacy, nil
	}
	return FormatCurrent, nil
}
