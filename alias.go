package polaris

import "github.com/polarisdb/polaris/types"

// Type aliases for convenience - re-export from types package.
type (
	RegionID          = types.RegionID
	RegionNames       = types.RegionNames
	PartitionKeyRange = types.PartitionKeyRange
	Range             = types.Range
	Logger            = types.Logger
	MetricsCollector  = types.MetricsCollector
	NotFoundError     = types.NotFoundError
	RangeGoneError    = types.RangeGoneError
)

// Re-export effective-partition-key universe bounds for convenience.
const (
	MinimumEffectiveKey = types.MinimumEffectiveKey
	MaximumEffectiveKey = types.MaximumEffectiveKey
)
