package types

import (
	"errors"
	"regexp"
	"strconv"
)

// RegionID identifies a replication region within a partition's topology.
//
// Region ids are assigned by the server side and appear in session tokens
// as the key of each per-region progress segment.
type RegionID int32

// String returns the base-10 representation of the RegionID.
func (r RegionID) String() string {
	return strconv.FormatInt(int64(r), 10)
}

// Effective-partition-key universe bounds.
//
// Effective keys are serialized partition keys ordered lexicographically
// over a fixed alphabet. Every valid effective key k satisfies
// MinimumEffectiveKey <= k < MaximumEffectiveKey.
const (
	// MinimumEffectiveKey is the inclusive lower bound of the key universe.
	MinimumEffectiveKey = ""

	// MaximumEffectiveKey is the exclusive upper bound of the key universe.
	MaximumEffectiveKey = "FF"
)

// PartitionKeyRange describes one server-side partition as a half-open
// interval [MinInclusive, MaxExclusive) over the effective-partition-key
// order.
//
// Within one collection generation, range ids are unique and the set of
// ranges is ordered, contiguous, non-overlapping, and covers the full key
// universe.
type PartitionKeyRange struct {
	// ID uniquely identifies the range within a collection generation.
	ID string

	// MinInclusive is the inclusive lower bound of the range.
	MinInclusive string

	// MaxExclusive is the exclusive upper bound of the range.
	MaxExclusive string
}

// Contains reports whether the effective key falls inside the range.
func (p PartitionKeyRange) Contains(effectiveKey string) bool {
	return p.MinInclusive <= effectiveKey && effectiveKey < p.MaxExclusive
}

// Span returns the range's interval as a Range value.
func (p PartitionKeyRange) Span() Range {
	return Range{Min: p.MinInclusive, Max: p.MaxExclusive}
}

// Range is a half-open interval [Min, Max) over the effective-partition-key
// order, used for overlap queries against a routing map.
type Range struct {
	// Min is the inclusive lower bound.
	Min string

	// Max is the exclusive upper bound.
	Max string
}

// FullRange returns the range covering the entire key universe.
func FullRange() Range {
	return Range{Min: MinimumEffectiveKey, Max: MaximumEffectiveKey}
}

// IsEmpty reports whether the range contains no keys.
func (r Range) IsEmpty() bool {
	return r.Min >= r.Max
}

// Contains reports whether the effective key falls inside the range.
func (r Range) Contains(effectiveKey string) bool {
	return r.Min <= effectiveKey && effectiveKey < r.Max
}

// Intersects reports whether two half-open intervals share at least one key.
func (r Range) Intersects(other Range) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}

	return r.Min < other.Max && other.Min < r.Max
}

// regionNameRegex validates region display names for use in metrics labels
// and log fields. Must be Prometheus-compatible: [a-zA-Z_][a-zA-Z0-9_]*
var regionNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RegionNames maps region ids to human-readable display names.
//
// Names are used in log messages instead of raw numeric region ids. Names
// must be 1-32 characters long and Prometheus-compatible: start with a
// letter or underscore, contain only alphanumeric characters and
// underscores.
//
// Example names: "us_east", "us_west", "europe_north", "dc1"
type RegionNames map[RegionID]string

// Validate checks that every region name is valid for use in metrics labels.
//
// Returns:
//   - error: Validation error, or nil if valid
func (n RegionNames) Validate() error {
	for id, name := range n {
		if len(name) == 0 {
			return errors.New("polaris: region " + id.String() + " name cannot be empty")
		}
		if len(name) > 32 {
			return errors.New("polaris: region " + id.String() + " name cannot exceed 32 characters")
		}
		if !regionNameRegex.MatchString(name) {
			return errors.New("polaris: region " + id.String() + " name must be alphanumeric with underscores, starting with letter or underscore")
		}
	}

	return nil
}

// Name returns the display name for the given region id, falling back to
// the numeric form when no name is configured.
func (n RegionNames) Name(id RegionID) string {
	if name, ok := n[id]; ok {
		return name
	}

	return id.String()
}

// Logger is a minimal structured logging interface.
//
// The method set is compatible with zap.SugaredLogger's *w methods via a
// thin adapter; keysAndValues are alternating keys and values.
//
// Implementations MUST be safe for concurrent use.
type Logger interface {
	// Debug logs a message at debug level with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at info level with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at warning level with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at error level with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}

// Sentinel errors for the routing and session error taxonomy.
var (
	// ErrMalformedSessionToken indicates a session token string could not be
	// parsed. Recoverable: callers treat the token as absent.
	ErrMalformedSessionToken = errors.New("polaris: malformed session token")

	// ErrMalformedRoutingMap indicates a partition range listing could not
	// form a valid routing map, or a partial listing could not be combined
	// into the current map. Recoverable: callers trigger a full reload.
	ErrMalformedRoutingMap = errors.New("polaris: malformed routing map")

	// ErrKeyOutOfRange indicates an effective partition key outside the
	// declared key universe was used for a point lookup. This is a caller
	// contract violation, not a routing miss.
	ErrKeyOutOfRange = errors.New("polaris: effective partition key out of range")

	// ErrNotFound indicates the requested resource is unknown to the current
	// routing map. Recoverable: refresh routing metadata and retry once.
	ErrNotFound = errors.New("polaris: resource not found")

	// ErrRangeGone indicates the requested partition key range id existed in
	// a prior collection generation and has been split or merged away.
	// Recoverable, but a refresh is required; retrying the same id cannot
	// succeed.
	ErrRangeGone = errors.New("polaris: partition key range is gone")

	// ErrSessionTokenInconsistent indicates two session tokens with the same
	// configuration version carry different region sets. This is a protocol
	// violation upstream, not a transient condition; it must propagate
	// without local suppression.
	ErrSessionTokenInconsistent = errors.New("polaris: inconsistent regions in session token")
)

// NotFoundError reports that a requested resource is unknown, carrying the
// identifier or address that was requested.
//
// NotFoundError is retryable: the caller should refresh routing metadata and
// retry the request once.
type NotFoundError struct {
	// ResourceAddress identifies what was requested (a range id, an
	// effective key, or a collection resource id).
	ResourceAddress string

	// ActivityID correlates the failure with the lookup or refresh episode
	// that produced it. May be empty for purely local lookups.
	ActivityID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	msg := "polaris: resource not found: " + e.ResourceAddress
	if e.ActivityID != "" {
		msg += " (activity " + e.ActivityID + ")"
	}

	return msg
}

// Unwrap returns ErrNotFound for errors.Is compatibility.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RangeGoneError reports that a partition key range id has been superseded
// by a split or merge and will never come back.
//
// Unlike NotFoundError, retrying the same id is pointless; the caller must
// refresh the routing map and re-resolve by key.
type RangeGoneError struct {
	// RangeID is the superseded partition key range id.
	RangeID string

	// CollectionRID is the owning collection's resource id, when known.
	CollectionRID string
}

// Error implements the error interface.
func (e *RangeGoneError) Error() string {
	msg := "polaris: partition key range " + e.RangeID + " is gone"
	if e.CollectionRID != "" {
		msg += " (collection " + e.CollectionRID + ")"
	}

	return msg
}

// Unwrap returns ErrRangeGone for errors.Is compatibility.
func (e *RangeGoneError) Unwrap() error {
	return ErrRangeGone
}

// SessionConsistencyError reports that two session tokens with equal
// configuration version disagree on their region sets.
//
// This is an unrecoverable protocol violation: the same configuration must
// carry the same region set, so one of the tokens is corrupted or belongs
// to a different partition.
type SessionConsistencyError struct {
	// TokenA and TokenB are the serialized forms of the conflicting tokens.
	TokenA string
	TokenB string
}

// Error implements the error interface.
func (e *SessionConsistencyError) Error() string {
	return "polaris: inconsistent regions in session tokens " + e.TokenA + " and " + e.TokenB
}

// Unwrap returns ErrSessionTokenInconsistent for errors.Is compatibility.
func (e *SessionConsistencyError) Unwrap() error {
	return ErrSessionTokenInconsistent
}
