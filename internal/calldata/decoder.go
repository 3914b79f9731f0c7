package calldata

import (
	"buyAlerts/internal/felt"
	"buyAlerts/internal/model"
)

const (
	currentHeaderSize = 3
	legacyHeaderSize  = 4
)

type layoutDecoder interface {
	decode(raw []string, callCount int) ([]model.Call, error)
}

// Decode rebuilds the calls of an execute transaction from its flattened
// calldata. Empty calldata carries no calls. It never returns partial
// results: on error the call slice is nil.
func Decode(flattened []string) ([]model.Call, error) {
	if len(flattened) == 0 {
		return []model.Call{}, nil
	}
	callCount, err := readLength(flattened, 0, len(flattened))
	if err != nil {
		return nil, err
	}
	if callCount == 0 {
		return []model.Call{}, nil
	}

	format, err := DetectFormat(flattened)
	if err != nil {
		return nil, err
	}

	var dec layoutDecoder
	switch format {
	case FormatLegacy:
		dec = legacyDecoder{}
	default:
		dec = currentDecoder{}
	}
	return dec.decode(flattened, callCount)
}

// currentDecoder walks back-to-back [address, selector, dataLen, data...]
// entries. The end of the header region grows with every dataLen read.
type currentDecoder struct{}

func (currentDecoder) decode(raw []string, callCount int) ([]model.Call, error) {
	if callCount > (len(raw)-1)/currentHeaderSize {
		return nil, decodeErrorf(0, "call count %d exceeds calldata length %d", callCount, len(raw))
	}

	calls := make([]model.Call, 0, callCount)
	cursor := 1
	maxSize := callCount * currentHeaderSize

	for cursor <= maxSize {
		if cursor+currentHeaderSize > len(raw) {
			return nil, decodeErrorf(cursor, "call header exceeds calldata length %d", len(raw))
		}
		address, err := readFelt(raw, cursor)
		if err != nil {
			return nil, err
		}
		entrypoint, err := readFelt(raw, cursor+1)
		if err != nil {
			return nil, err
		}
		dataLen, err := readLength(raw, cursor+2, len(raw))
		if err != nil {
			return nil, err
		}

		dataStart := cursor + currentHeaderSize
		data, err := slice(raw, dataStart, dataLen, len(raw))
		if err != nil {
			return nil, err
		}

		calls = append(calls, model.Call{
			ContractAddress: address,
			Entrypoint:      entrypoint,
			Calldata:        data,
		})
		maxSize += dataLen
		cursor += currentHeaderSize + dataLen
	}

	if cursor != len(raw) {
		return nil, decodeErrorf(cursor, "%d trailing elements after last call", len(raw)-cursor)
	}
	return calls, nil
}

// legacyDecoder reads callCount fixed-width headers followed by one shared
// calldata blob prefixed with its length.
type legacyDecoder struct{}

func (legacyDecoder) decode(raw []string, callCount int) ([]model.Call, error) {
	if callCount > (len(raw)-2)/legacyHeaderSize {
		return nil, decodeErrorf(0, "call count %d exceeds calldata length %d", callCount, len(raw))
	}

	blobLenIndex := callCount*legacyHeaderSize + 1
	blobLen, err := readLength(raw, blobLenIndex, len(raw))
	if err != nil {
		return nil, err
	}
	blobEnd := blobLenIndex + 1 + blobLen
	if blobEnd > len(raw) {
		return nil, decodeErrorf(blobLenIndex, "calldata blob of %d exceeds calldata length %d", blobLen, len(raw))
	}

	calls := make([]model.Call, 0, callCount)
	for i := 0; i < callCount; i++ {
		header := 1 + i*legacyHeaderSize

		address, err := readFelt(raw, header)
		if err != nil {
			return nil, err
		}
		entrypoint, err := readFelt(raw, header+1)
		if err != nil {
			return nil, err
		}
		dataOffset, err := readLength(raw, header+2, blobLen)
		if err != nil {
			return nil, err
		}
		dataLen, err := readLength(raw, header+3, blobLen)
		if err != nil {
			return nil, err
		}

		data, err := slice(raw, blobLenIndex+dataOffset+1, dataLen, blobEnd)
		if err != nil {
			return nil, err
		}

		calls = append(calls, model.Call{
			ContractAddress: address,
			Entrypoint:      entrypoint,
			Calldata:        data,
		})
	}
	return calls, nil
}

func readFelt(raw []string, index int) (felt.Felt, error) {
	if index < 0 || index >= len(raw) {
		return felt.Felt{}, decodeErrorf(index, "index out of range (len %d)", len(raw))
	}
	v, err := felt.Parse(raw[index])
	if err != nil {
		return felt.Felt{}, decodeErrorf(index, "%v", err)
	}
	return v, nil
}

// readLength reads a length or offset field and checks it against limit.
func readLength(raw []string, index int, limit int) (int, error) {
	v, err := readFelt(raw, index)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() || v.Uint64() > uint64(limit) {
		return 0, decodeErrorf(index, "length %s exceeds bound %d", v.Hex(), limit)
	}
	return int(v.Uint64()), nil
}

// slice copies n values starting at start, failing if they would cross end.
func slice(raw []string, start, n, end int) ([]string, error) {
	if start < 0 || start+n > end || end > len(raw) {
		return nil, decodeErrorf(start, "slice of %d values exceeds bound %d", n, end)
	}
	out := make([]string, n)
	copy(out, raw[start:start+n])
	return out, nil
}
