package indexer

import "fmt"

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// SplitRange splits a block range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
		start = end + 1
	}
}

// PendingRange returns the blocks still to scan after last, up to latest.
// With hasLast false only latest is pending. maxCatchUp > 0 bounds the range
// to its newest blocks; skipped counts the blocks dropped by that bound.
func PendingRange(last uint64, hasLast bool, latest, maxCatchUp uint64) (r BlockRange, skipped uint64, ok bool) {
	if !hasLast {
		return BlockRange{From: latest, To: latest}, 0, true
	}
	if latest <= last {
		return BlockRange{}, 0, false
	}
	r = BlockRange{From: last + 1, To: latest}
	if maxCatchUp > 0 && r.Len() > maxCatchUp {
		skipped = r.Len() - maxCatchUp
		r.From = latest - maxCatchUp + 1
	}
	return r, skipped, true
}
