// Package blocktime extrapolates wall-clock timestamps from block numbers.
package blocktime

// DefaultAvgBlockMs is the average block interval of the reference deployment.
// Always passed explicitly so tests and other chains can override it.
const DefaultAvgBlockMs = 500

// Estimate returns the estimated wall-clock time (unix ms) of targetBlock,
// given one observed (refBlock, refTimestampMs) pair and an average block
// interval. Two records in the same block get the same estimate, so callers
// comparing timestamps must break ties on log index.
func Estimate(refBlock uint64, refTimestampMs int64, targetBlock uint64, avgBlockMs int64) int64 {
	delta := int64(refBlock) - int64(targetBlock)
	return refTimestampMs - delta*avgBlockMs
}
