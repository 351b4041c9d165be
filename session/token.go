package session

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/polarisdb/polaris/types"
)

const (
	segmentSeparator        = "#"
	regionProgressSeparator = "="
)

// Token is a vector session token: one partition's observed write progress
// as (version, globalLSN, per-region localLSN map).
//
// Token is immutable after construction. The zero value is not a valid
// token; construct via Parse, NewToken, or Merge.
type Token struct {
	version          int64
	globalLSN        int64
	localLSNByRegion map[types.RegionID]int64

	// text is the canonical serialized form, computed at construction.
	text string
}

// NewToken creates a token from its components.
//
// The region map is copied; the caller keeps ownership of its argument.
//
// Parameters:
//   - version: The partition's configuration version
//   - globalLSN: The partition-wide write counter
//   - localLSNByRegion: Per-region replication watermarks (may be nil)
//
// Returns:
//   - Token: An immutable token with its canonical serialization cached
func NewToken(version, globalLSN int64, localLSNByRegion map[types.RegionID]int64) Token {
	m := make(map[types.RegionID]int64, len(localLSNByRegion))
	for region, lsn := range localLSNByRegion {
		m[region] = lsn
	}

	return newToken(version, globalLSN, m)
}

// newToken builds a token taking ownership of the supplied map.
func newToken(version, globalLSN int64, localLSNByRegion map[types.RegionID]int64) Token {
	return Token{
		version:          version,
		globalLSN:        globalLSN,
		localLSNByRegion: localLSNByRegion,
		text:             serialize(version, globalLSN, localLSNByRegion),
	}
}

// serialize renders the canonical text form. Region segments are emitted in
// ascending region-id order so serialization is stable.
func serialize(version, globalLSN int64, localLSNByRegion map[types.RegionID]int64) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(version, 10))
	sb.WriteString(segmentSeparator)
	sb.WriteString(strconv.FormatInt(globalLSN, 10))

	if len(localLSNByRegion) == 0 {
		return sb.String()
	}

	regions := make([]types.RegionID, 0, len(localLSNByRegion))
	for region := range localLSNByRegion {
		regions = append(regions, region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })

	for _, region := range regions {
		sb.WriteString(segmentSeparator)
		sb.WriteString(region.String())
		sb.WriteString(regionProgressSeparator)
		sb.WriteString(strconv.FormatInt(localLSNByRegion[region], 10))
	}

	return sb.String()
}

// Parse parses a session token from its textual wire form.
//
// Malformed input is a recoverable condition: the returned error wraps
// types.ErrMalformedSessionToken and the caller should treat the token as
// absent. Parse never panics on malformed input.
//
// Parameters:
//   - text: The wire-format token, e.g. "1#100#1=95#2=97"
//
// Returns:
//   - Token: The parsed token (zero value on failure)
//   - error: nil on success, a types.ErrMalformedSessionToken wrap otherwise
func Parse(text string) (Token, error) {
	if text == "" {
		return Token{}, fmt.Errorf("%w: empty input", types.ErrMalformedSessionToken)
	}

	segments := strings.Split(text, segmentSeparator)
	if len(segments) < 2 {
		return Token{}, fmt.Errorf("%w: expected at least 2 segments in %q", types.ErrMalformedSessionToken, text)
	}

	version, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: invalid version %q", types.ErrMalformedSessionToken, segments[0])
	}

	globalLSN, err := strconv.ParseInt(segments[1], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("%w: invalid global lsn %q", types.ErrMalformedSessionToken, segments[1])
	}

	localLSNByRegion := make(map[types.RegionID]int64, len(segments)-2)
	for _, segment := range segments[2:] {
		regionPart, lsnPart, found := strings.Cut(segment, regionProgressSeparator)
		if !found || strings.Contains(lsnPart, regionProgressSeparator) {
			// Self-produced tokens never contain empty or separator-less
			// segments; in external input they indicate truncation, so the
			// whole token is rejected rather than the segment skipped.
			return Token{}, fmt.Errorf("%w: invalid region segment %q", types.ErrMalformedSessionToken, segment)
		}

		regionID, err := strconv.ParseInt(regionPart, 10, 32)
		if err != nil {
			return Token{}, fmt.Errorf("%w: invalid region id %q", types.ErrMalformedSessionToken, regionPart)
		}

		localLSN, err := strconv.ParseInt(lsnPart, 10, 64)
		if err != nil {
			return Token{}, fmt.Errorf("%w: invalid local lsn %q", types.ErrMalformedSessionToken, lsnPart)
		}

		localLSNByRegion[types.RegionID(regionID)] = localLSN
	}

	return newToken(version, globalLSN, localLSNByRegion), nil
}

// Version returns the partition's configuration version.
func (t Token) Version() int64 {
	return t.version
}

// GlobalLSN returns the partition-wide write counter.
func (t Token) GlobalLSN() int64 {
	return t.globalLSN
}

// LocalLSN returns the replication watermark recorded for the given region.
//
// Returns:
//   - int64: The region's local LSN
//   - bool: false if the token carries no progress for that region
func (t Token) LocalLSN(region types.RegionID) (int64, bool) {
	lsn, ok := t.localLSNByRegion[region]
	return lsn, ok
}

// Regions returns the number of regions the token carries progress for.
func (t Token) Regions() int {
	return len(t.localLSNByRegion)
}

// IsZero reports whether the token is the zero value (no token).
func (t Token) IsZero() bool {
	return t.text == ""
}

// String returns the canonical wire form of the token.
//
// For any token produced by this package, Parse(t.String()) yields a token
// whose String() is identical.
func (t Token) String() string {
	return t.text
}

// Equals reports structural equality: same version, same global LSN, and
// identical region maps (same key set, same value per key).
func (t Token) Equals(other Token) bool {
	if t.version != other.version || t.globalLSN != other.globalLSN {
		return false
	}
	if len(t.localLSNByRegion) != len(other.localLSNByRegion) {
		return false
	}

	for region, lsn := range t.localLSNByRegion {
		otherLSN, ok := other.localLSNByRegion[region]
		if !ok || otherLSN != lsn {
			return false
		}
	}

	return true
}

// Merge combines progress knowledge from two observations of the same
// logical partition into the most advanced consistent token.
//
// The result takes the maximum version and maximum global LSN. Region
// progress follows the higher-version operand: regions present in both
// tokens take the maximum local LSN, regions exclusive to the higher-version
// operand are kept, and regions exclusive to the lower-version operand are
// dropped. The lower-version token reflects an older configuration, so its
// exclusive regions carry no authority once a newer configuration is known.
//
// Two tokens of equal version must carry identical region sets; a mismatch
// is an unrecoverable *types.SessionConsistencyError, never silently
// resolved.
//
// Parameters:
//   - other: A token observed for the same logical partition
//
// Returns:
//   - Token: The merged token
//   - error: nil, or a *types.SessionConsistencyError on region-set mismatch
func (t Token) Merge(other Token) (Token, error) {
	if t.version == other.version && len(t.localLSNByRegion) != len(other.localLSNByRegion) {
		return Token{}, &types.SessionConsistencyError{TokenA: t.text, TokenB: other.text}
	}

	hi, lo := t, other
	if t.version < other.version {
		hi, lo = other, t
	}

	merged := make(map[types.RegionID]int64, len(hi.localLSNByRegion))
	for region, hiLSN := range hi.localLSNByRegion {
		loLSN, ok := lo.localLSNByRegion[region]
		switch {
		case ok:
			merged[region] = max(hiLSN, loLSN)
		case t.version == other.version:
			return Token{}, &types.SessionConsistencyError{TokenA: t.text, TokenB: other.text}
		default:
			merged[region] = hiLSN
		}
	}

	return newToken(max(t.version, other.version), max(t.globalLSN, other.globalLSN), merged), nil
}

// IsValid answers whether candidate represents progress at least as advanced
// as this baseline, for every dimension the baseline cares about. It is used
// to confirm that a replica's token satisfies a required consistency bound.
//
// The check fails (false, nil) when the candidate's version or global LSN is
// behind the baseline's, or when a region present in both tokens has a
// strictly smaller local LSN in the candidate. A region present only in the
// candidate is acceptable when the candidate's version is newer (its
// configuration added a region the baseline predates); at equal version it
// is the same unrecoverable region-set mismatch as in Merge.
//
// Parameters:
//   - candidate: The token to check against this baseline
//
// Returns:
//   - bool: true if candidate is at least as advanced as the baseline
//   - error: nil, or a *types.SessionConsistencyError on region-set mismatch
func (t Token) IsValid(candidate Token) (bool, error) {
	if candidate.version < t.version || candidate.globalLSN < t.globalLSN {
		return false, nil
	}

	if candidate.version == t.version && len(candidate.localLSNByRegion) != len(t.localLSNByRegion) {
		return false, &types.SessionConsistencyError{TokenA: t.text, TokenB: candidate.text}
	}

	for region, candidateLSN := range candidate.localLSNByRegion {
		baselineLSN, ok := t.localLSNByRegion[region]
		if !ok {
			if t.version == candidate.version {
				return false, &types.SessionConsistencyError{TokenA: t.text, TokenB: candidate.text}
			}
			// Candidate's newer configuration added a region the baseline
			// predates; nothing to compare.
			continue
		}

		if candidateLSN < baselineLSN {
			return false, nil
		}
	}

	return true, nil
}
