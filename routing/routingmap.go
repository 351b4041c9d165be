package routing

import (
	"fmt"
	"sort"

	"github.com/polarisdb/polaris/types"
)

// RangeInfo pairs a partition key range with the caller-owned metadata
// attached to it. The routing map stores and returns the metadata by range
// id without interpreting it.
type RangeInfo[T any] struct {
	// Range is the partition key range.
	Range types.PartitionKeyRange

	// Info is the caller-supplied per-partition metadata.
	Info T
}

// CollectionRoutingMap is an immutable index over one collection generation's
// partition key ranges, keyed both by range id and by position in the
// effective-partition-key order.
//
// The ordered ranges are contiguous, non-overlapping, and cover the full key
// universe [types.MinimumEffectiveKey, types.MaximumEffectiveKey). Instances
// are never mutated after construction; Combine produces a new instance and
// leaves the receiver untouched.
type CollectionRoutingMap[T any] struct {
	collectionUniqueID string

	// orderedRanges is sorted by MinInclusive and satisfies the coverage
	// invariant.
	orderedRanges []types.PartitionKeyRange

	rangeByID    map[string]types.PartitionKeyRange
	infoByID     map[string]T
	goneRangeIDs map[string]struct{}
}

// NewCollectionRoutingMap builds a routing map from a full partition range
// listing.
//
// The listing must cover the entire key universe with contiguous,
// non-overlapping ranges and unique range ids; otherwise the returned error
// wraps types.ErrMalformedRoutingMap and the caller should re-fetch the
// listing.
//
// Parameters:
//   - pairs: The full (range, metadata) listing; the slice is copied
//   - collectionUniqueID: Identifies the collection generation being built
//
// Returns:
//   - *CollectionRoutingMap[T]: An immutable routing map
//   - error: nil, or a types.ErrMalformedRoutingMap wrap
func NewCollectionRoutingMap[T any](pairs []RangeInfo[T], collectionUniqueID string) (*CollectionRoutingMap[T], error) {
	ordered, rangeByID, infoByID, err := indexRanges(pairs)
	if err != nil {
		return nil, err
	}

	if err := verifyCoverage(ordered, types.FullRange()); err != nil {
		return nil, err
	}

	return &CollectionRoutingMap[T]{
		collectionUniqueID: collectionUniqueID,
		orderedRanges:      ordered,
		rangeByID:          rangeByID,
		infoByID:           infoByID,
		goneRangeIDs:       make(map[string]struct{}),
	}, nil
}

// indexRanges sorts a listing by MinInclusive and builds the id indexes,
// verifying ranges are non-empty, non-overlapping, contiguous, and carry
// unique ids.
func indexRanges[T any](pairs []RangeInfo[T]) ([]types.PartitionKeyRange, map[string]types.PartitionKeyRange, map[string]T, error) {
	if len(pairs) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: empty range listing", types.ErrMalformedRoutingMap)
	}

	sorted := make([]RangeInfo[T], len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Range.MinInclusive < sorted[j].Range.MinInclusive
	})

	ordered := make([]types.PartitionKeyRange, 0, len(sorted))
	rangeByID := make(map[string]types.PartitionKeyRange, len(sorted))
	infoByID := make(map[string]T, len(sorted))

	for i, pair := range sorted {
		r := pair.Range
		if r.MinInclusive >= r.MaxExclusive {
			return nil, nil, nil, fmt.Errorf("%w: empty range %q", types.ErrMalformedRoutingMap, r.ID)
		}
		if _, dup := rangeByID[r.ID]; dup {
			return nil, nil, nil, fmt.Errorf("%w: duplicate range id %q", types.ErrMalformedRoutingMap, r.ID)
		}
		if i > 0 && r.MinInclusive != sorted[i-1].Range.MaxExclusive {
			return nil, nil, nil, fmt.Errorf("%w: ranges %q and %q are not contiguous", types.ErrMalformedRoutingMap, sorted[i-1].Range.ID, r.ID)
		}

		ordered = append(ordered, r)
		rangeByID[r.ID] = r
		infoByID[r.ID] = pair.Info
	}

	return ordered, rangeByID, infoByID, nil
}

// verifyCoverage checks that an already-contiguous ordered run spans exactly
// the given interval.
func verifyCoverage(ordered []types.PartitionKeyRange, span types.Range) error {
	if ordered[0].MinInclusive != span.Min {
		return fmt.Errorf("%w: listing starts at %q, want %q", types.ErrMalformedRoutingMap, ordered[0].MinInclusive, span.Min)
	}
	if last := ordered[len(ordered)-1]; last.MaxExclusive != span.Max {
		return fmt.Errorf("%w: listing ends at %q, want %q", types.ErrMalformedRoutingMap, last.MaxExclusive, span.Max)
	}

	return nil
}

// CollectionUniqueID returns the collection generation this map was built
// for. A changed unique id means the collection was recreated and the whole
// map must be reloaded; Combine never changes it.
func (m *CollectionRoutingMap[T]) CollectionUniqueID() string {
	return m.collectionUniqueID
}

// OrderedRanges returns the partition key ranges in ascending key order.
//
// The returned slice is a copy; the map remains immutable.
func (m *CollectionRoutingMap[T]) OrderedRanges() []types.PartitionKeyRange {
	out := make([]types.PartitionKeyRange, len(m.orderedRanges))
	copy(out, m.orderedRanges)

	return out
}

// RangeByKey returns the unique partition key range containing the given
// effective partition key.
//
// Looking up a key outside the declared key universe is a caller contract
// violation and returns a types.ErrKeyOutOfRange wrap rather than being
// silently clamped.
//
// Parameters:
//   - effectiveKey: The serialized, totally-ordered partition key
//
// Returns:
//   - types.PartitionKeyRange: The range containing the key
//   - error: nil, or a types.ErrKeyOutOfRange wrap
func (m *CollectionRoutingMap[T]) RangeByKey(effectiveKey string) (types.PartitionKeyRange, error) {
	if effectiveKey < types.MinimumEffectiveKey || effectiveKey >= types.MaximumEffectiveKey {
		return types.PartitionKeyRange{}, fmt.Errorf("%w: %q", types.ErrKeyOutOfRange, effectiveKey)
	}

	// First range whose MaxExclusive is above the key. Coverage guarantees
	// it exists and contains the key.
	i := sort.Search(len(m.orderedRanges), func(i int) bool {
		return m.orderedRanges[i].MaxExclusive > effectiveKey
	})

	return m.orderedRanges[i], nil
}

// TryRangeByID returns the range with the given id.
//
// Returns:
//   - types.PartitionKeyRange: The range
//   - bool: false if the id is unknown to this map (including gone ids)
func (m *CollectionRoutingMap[T]) TryRangeByID(rangeID string) (types.PartitionKeyRange, bool) {
	r, ok := m.rangeByID[rangeID]
	return r, ok
}

// RangeByID returns the range with the given id, reporting misses as typed
// errors: a *types.RangeGoneError for ids superseded by a split or merge
// (refresh required), a *types.NotFoundError otherwise (refresh and retry).
//
// Parameters:
//   - rangeID: The partition key range id
//
// Returns:
//   - types.PartitionKeyRange: The range
//   - error: nil, *types.RangeGoneError, or *types.NotFoundError
func (m *CollectionRoutingMap[T]) RangeByID(rangeID string) (types.PartitionKeyRange, error) {
	if r, ok := m.rangeByID[rangeID]; ok {
		return r, nil
	}
	if m.IsGone(rangeID) {
		return types.PartitionKeyRange{}, &types.RangeGoneError{RangeID: rangeID}
	}

	return types.PartitionKeyRange{}, &types.NotFoundError{ResourceAddress: rangeID}
}

// IsGone reports whether the range id existed in a prior generation of this
// map and has since been split or merged away. Callers hitting a gone id
// must refresh their routing metadata; retrying the same id cannot succeed.
func (m *CollectionRoutingMap[T]) IsGone(rangeID string) bool {
	_, gone := m.goneRangeIDs[rangeID]
	return gone
}

// InfoByID returns the caller-supplied metadata for a still-current range id.
//
// Returns:
//   - T: The metadata
//   - bool: false for unknown or gone ids
func (m *CollectionRoutingMap[T]) InfoByID(rangeID string) (T, bool) {
	info, ok := m.infoByID[rangeID]
	return info, ok
}

// OverlappingRanges returns every stored range whose interval intersects the
// query range, in ascending key order.
//
// Parameters:
//   - query: The half-open query interval
//
// Returns:
//   - []types.PartitionKeyRange: The intersecting ranges (nil if none)
func (m *CollectionRoutingMap[T]) OverlappingRanges(query types.Range) []types.PartitionKeyRange {
	if query.IsEmpty() {
		return nil
	}

	// First range whose MaxExclusive is above the query start.
	i := sort.Search(len(m.orderedRanges), func(i int) bool {
		return m.orderedRanges[i].MaxExclusive > query.Min
	})

	var out []types.PartitionKeyRange
	for ; i < len(m.orderedRanges) && m.orderedRanges[i].MinInclusive < query.Max; i++ {
		out = append(out, m.orderedRanges[i])
	}

	return out
}

// OverlappingRangesAll returns every stored range intersecting any of the
// query ranges, in ascending key order with no duplicates even when several
// query ranges overlap the same stored range.
//
// Parameters:
//   - queries: The query intervals
//
// Returns:
//   - []types.PartitionKeyRange: The intersecting ranges (nil if none)
func (m *CollectionRoutingMap[T]) OverlappingRangesAll(queries []types.Range) []types.PartitionKeyRange {
	seen := make(map[string]struct{})
	var out []types.PartitionKeyRange

	for _, query := range queries {
		for _, r := range m.OverlappingRanges(query) {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].MinInclusive < out[j].MinInclusive
	})

	return out
}

// Combine splices a fresher listing for a contiguous sub-interval of the key
// space (the outcome of a partition split or merge, or a refreshed metadata
// fetch for unchanged ranges) into a new routing map.
//
// The new ranges must be mutually contiguous and non-overlapping, and their
// aggregate span must exactly replace a contiguous run of ranges in the
// current map. Otherwise a types.ErrMalformedRoutingMap wrap is returned and
// the caller falls back to a full reload.
//
// On success the replaced range ids that do not reappear in the listing move
// into the gone set, the collection unique id is preserved, and the receiver
// remains valid and unmodified for any reader still holding it.
//
// Parameters:
//   - newer: The fresher (range, metadata) listing
//
// Returns:
//   - *CollectionRoutingMap[T]: The combined map
//   - error: nil, or a types.ErrMalformedRoutingMap wrap
func (m *CollectionRoutingMap[T]) Combine(newer []RangeInfo[T]) (*CollectionRoutingMap[T], error) {
	ordered, newByID, newInfoByID, err := indexRanges(newer)
	if err != nil {
		return nil, err
	}

	span := types.Range{
		Min: ordered[0].MinInclusive,
		Max: ordered[len(ordered)-1].MaxExclusive,
	}

	// Locate the run of current ranges the listing claims to replace.
	lo := sort.Search(len(m.orderedRanges), func(i int) bool {
		return m.orderedRanges[i].MaxExclusive > span.Min
	})
	hi := lo
	for hi < len(m.orderedRanges) && m.orderedRanges[hi].MinInclusive < span.Max {
		hi++
	}

	if lo == hi || m.orderedRanges[lo].MinInclusive != span.Min || m.orderedRanges[hi-1].MaxExclusive != span.Max {
		return nil, fmt.Errorf("%w: listing span [%q, %q) does not align with existing ranges",
			types.ErrMalformedRoutingMap, span.Min, span.Max)
	}

	replacedIDs := make(map[string]struct{}, hi-lo)
	for _, replaced := range m.orderedRanges[lo:hi] {
		replacedIDs[replaced.ID] = struct{}{}
	}
	for id := range newByID {
		if _, exists := m.rangeByID[id]; exists {
			if _, inRun := replacedIDs[id]; !inRun {
				return nil, fmt.Errorf("%w: range id %q already exists outside the replaced span",
					types.ErrMalformedRoutingMap, id)
			}
		}
	}

	combined := make([]types.PartitionKeyRange, 0, len(m.orderedRanges)-(hi-lo)+len(ordered))
	combined = append(combined, m.orderedRanges[:lo]...)
	combined = append(combined, ordered...)
	combined = append(combined, m.orderedRanges[hi:]...)

	rangeByID := make(map[string]types.PartitionKeyRange, len(combined))
	infoByID := make(map[string]T, len(combined))
	goneRangeIDs := make(map[string]struct{}, len(m.goneRangeIDs)+(hi-lo))

	for id := range m.goneRangeIDs {
		goneRangeIDs[id] = struct{}{}
	}
	for id, r := range m.rangeByID {
		rangeByID[id] = r
		infoByID[id] = m.infoByID[id]
	}

	// Replaced ids become gone unless the listing re-declares them (a pure
	// metadata refresh keeps the same ids).
	for _, replaced := range m.orderedRanges[lo:hi] {
		if _, kept := newByID[replaced.ID]; kept {
			continue
		}
		delete(rangeByID, replaced.ID)
		delete(infoByID, replaced.ID)
		goneRangeIDs[replaced.ID] = struct{}{}
	}

	for id, r := range newByID {
		rangeByID[id] = r
		infoByID[id] = newInfoByID[id]
		delete(goneRangeIDs, id)
	}

	return &CollectionRoutingMap[T]{
		collectionUniqueID: m.collectionUniqueID,
		orderedRanges:      combined,
		rangeByID:          rangeByID,
		infoByID:           infoByID,
		goneRangeIDs:       goneRangeIDs,
	}, nil
}
