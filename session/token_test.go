package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarisdb/polaris/types"
)

func TestParseSimpleToken(t *testing.T) {
	token, err := Parse("1#100")
	require.NoError(t, err)

	assert.Equal(t, int64(1), token.Version())
	assert.Equal(t, int64(100), token.GlobalLSN())
	assert.Equal(t, 0, token.Regions())
	assert.Equal(t, "1#100", token.String())
}

func TestParseTokenWithRegionProgress(t *testing.T) {
	token, err := Parse("2#305#1=300#2=295")
	require.NoError(t, err)

	assert.Equal(t, int64(2), token.Version())
	assert.Equal(t, int64(305), token.GlobalLSN())
	assert.Equal(t, 2, token.Regions())

	lsn, ok := token.LocalLSN(1)
	require.True(t, ok)
	assert.Equal(t, int64(300), lsn)

	lsn, ok = token.LocalLSN(2)
	require.True(t, ok)
	assert.Equal(t, int64(295), lsn)

	_, ok = token.LocalLSN(3)
	assert.False(t, ok)
}

func TestParseNegativeValues(t *testing.T) {
	// Sentinel values like -1 appear in tokens from partitions that have
	// not completed their first write.
	token, err := Parse("0#-1")
	require.NoError(t, err)

	assert.Equal(t, int64(0), token.Version())
	assert.Equal(t, int64(-1), token.GlobalLSN())
}

func TestParseRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty string", ""},
		{"single segment", "100"},
		{"non-numeric version", "abc#100"},
		{"non-numeric global lsn", "1#xyz"},
		{"region segment without separator", "1#100#region"},
		{"region segment with extra separator", "1#100#1=2=3"},
		{"non-numeric region id", "1#100#x=5"},
		{"non-numeric local lsn", "1#100#1=y"},
		{"empty region segment", "1#100#"},
		{"region id overflows int32", "1#100#99999999999=5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrMalformedSessionToken)
		})
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	tokens := []Token{
		NewToken(1, 100, nil),
		NewToken(3, 42, map[types.RegionID]int64{1: 40}),
		NewToken(7, 9000, map[types.RegionID]int64{5: 8999, 1: 8000, 3: 8500}),
		NewToken(0, -1, map[types.RegionID]int64{-2: -1}),
	}

	for _, token := range tokens {
		parsed, err := Parse(token.String())
		require.NoError(t, err)

		reparsed, err := Parse(parsed.String())
		require.NoError(t, err)

		assert.Equal(t, token.String(), reparsed.String())
		assert.True(t, token.Equals(parsed))
	}
}

func TestSerializationIsCanonical(t *testing.T) {
	// Region segments are emitted in ascending region id order regardless
	// of the order they were observed in.
	token, err := Parse("2#100#5=90#1=80#3=85")
	require.NoError(t, err)

	assert.Equal(t, "2#100#1=80#3=85#5=90", token.String())
}

func TestEquals(t *testing.T) {
	a := NewToken(1, 100, map[types.RegionID]int64{1: 90, 2: 95})
	b := NewToken(1, 100, map[types.RegionID]int64{2: 95, 1: 90})

	assert.True(t, a.Equals(b))
	assert.True(t, b.Equals(a))

	// Different version
	assert.False(t, a.Equals(NewToken(2, 100, map[types.RegionID]int64{1: 90, 2: 95})))
	// Different global LSN
	assert.False(t, a.Equals(NewToken(1, 101, map[types.RegionID]int64{1: 90, 2: 95})))
	// Different region value
	assert.False(t, a.Equals(NewToken(1, 100, map[types.RegionID]int64{1: 90, 2: 96})))
	// Subset of regions
	assert.False(t, a.Equals(NewToken(1, 100, map[types.RegionID]int64{1: 90})))
	// Different region key set, same size
	assert.False(t, a.Equals(NewToken(1, 100, map[types.RegionID]int64{1: 90, 3: 95})))
}

func TestMergeTakesMaxima(t *testing.T) {
	a := NewToken(1, 100, map[types.RegionID]int64{1: 90, 2: 95})
	b := NewToken(1, 105, map[types.RegionID]int64{1: 92, 2: 80})

	merged, err := a.Merge(b)
	require.NoError(t, err)

	assert.Equal(t, int64(1), merged.Version())
	assert.Equal(t, int64(105), merged.GlobalLSN())

	lsn, _ := merged.LocalLSN(1)
	assert.Equal(t, int64(92), lsn)
	lsn, _ = merged.LocalLSN(2)
	assert.Equal(t, int64(95), lsn)
}

func TestMergeIsCommutative(t *testing.T) {
	a := NewToken(1, 100, map[types.RegionID]int64{1: 90, 2: 95})
	b := NewToken(2, 105, map[types.RegionID]int64{1: 92, 2: 96, 3: 50})

	ab, err := a.Merge(b)
	require.NoError(t, err)
	ba, err := b.Merge(a)
	require.NoError(t, err)

	assert.True(t, ab.Equals(ba))
	assert.Equal(t, ab.String(), ba.String())
}

func TestMergeIsIdempotent(t *testing.T) {
	a := NewToken(3, 100, map[types.RegionID]int64{1: 90, 2: 95})

	merged, err := a.Merge(a)
	require.NoError(t, err)

	assert.True(t, merged.Equals(a))
}

func TestMergeDropsRegionsExclusiveToLowerVersion(t *testing.T) {
	// Region 9 exists only in the lower-version token: its progress
	// reflects a configuration that predates the newer one and carries no
	// authority.
	lower := NewToken(1, 100, map[types.RegionID]int64{1: 90, 9: 500})
	higher := NewToken(2, 100, map[types.RegionID]int64{1: 80})

	merged, err := lower.Merge(higher)
	require.NoError(t, err)

	assert.Equal(t, int64(2), merged.Version())
	assert.Equal(t, 1, merged.Regions())

	_, ok := merged.LocalLSN(9)
	assert.False(t, ok, "stale region progress must not be resurrected")

	lsn, _ := merged.LocalLSN(1)
	assert.Equal(t, int64(90), lsn)
}

func TestMergeKeepsRegionsExclusiveToHigherVersion(t *testing.T) {
	lower := NewToken(1, 100, map[types.RegionID]int64{1: 90})
	higher := NewToken(2, 110, map[types.RegionID]int64{1: 95, 2: 40})

	merged, err := lower.Merge(higher)
	require.NoError(t, err)

	assert.Equal(t, 2, merged.Regions())
	lsn, ok := merged.LocalLSN(2)
	require.True(t, ok)
	assert.Equal(t, int64(40), lsn)
}

func TestMergeMonotonicity(t *testing.T) {
	a := NewToken(2, 150, map[types.RegionID]int64{1: 120, 2: 140})
	b := NewToken(3, 130, map[types.RegionID]int64{1: 100, 2: 145, 4: 10})

	merged, err := a.Merge(b)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, merged.Version(), max(a.Version(), b.Version()))
	assert.GreaterOrEqual(t, merged.GlobalLSN(), max(a.GlobalLSN(), b.GlobalLSN()))

	// Every region of the higher-version operand is at least as advanced.
	for _, region := range []types.RegionID{1, 2, 4} {
		want, _ := b.LocalLSN(region)
		got, ok := merged.LocalLSN(region)
		require.True(t, ok)
		assert.GreaterOrEqual(t, got, want)
	}
}

func TestMergeEqualVersionRegionMismatchIsFatal(t *testing.T) {
	a := NewToken(1, 1, map[types.RegionID]int64{1: 5})
	b := NewToken(1, 1, map[types.RegionID]int64{1: 5, 2: 7})

	_, err := a.Merge(b)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSessionTokenInconsistent)

	var sce *types.SessionConsistencyError
	assert.ErrorAs(t, err, &sce)

	_, err = b.Merge(a)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSessionTokenInconsistent)
}

func TestIsValidMonotonicReadLaw(t *testing.T) {
	baseline := NewToken(2, 150, map[types.RegionID]int64{1: 120, 2: 140})
	others := []Token{
		NewToken(2, 150, map[types.RegionID]int64{1: 125, 2: 130}),
		NewToken(3, 200, map[types.RegionID]int64{1: 180, 2: 190, 3: 10}),
	}

	for _, other := range others {
		merged, err := baseline.Merge(other)
		require.NoError(t, err)

		valid, err := baseline.IsValid(merged)
		require.NoError(t, err)
		assert.True(t, valid, "a merge result must always satisfy its operands' bound")
	}
}

func TestIsValidDetectsRegression(t *testing.T) {
	baseline := NewToken(1, 10, map[types.RegionID]int64{1: 100})
	candidate := NewToken(1, 10, map[types.RegionID]int64{1: 99})

	valid, err := baseline.IsValid(candidate)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIsValidRejectsOlderVersionOrGlobalLSN(t *testing.T) {
	baseline := NewToken(2, 100, map[types.RegionID]int64{1: 90})

	valid, err := baseline.IsValid(NewToken(1, 200, map[types.RegionID]int64{1: 95}))
	require.NoError(t, err)
	assert.False(t, valid)

	valid, err = baseline.IsValid(NewToken(2, 99, map[types.RegionID]int64{1: 95}))
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestIsValidEqualVersionRegionMismatchIsFatal(t *testing.T) {
	baseline := NewToken(1, 1, map[types.RegionID]int64{1: 5})
	candidate := NewToken(1, 1, map[types.RegionID]int64{1: 5, 2: 7})

	_, err := baseline.IsValid(candidate)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSessionTokenInconsistent)
}

func TestIsValidAcceptsRegionAddedByNewerConfiguration(t *testing.T) {
	baseline := NewToken(1, 100, map[types.RegionID]int64{1: 90})
	candidate := NewToken(2, 120, map[types.RegionID]int64{1: 95, 2: 10})

	valid, err := baseline.IsValid(candidate)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestZeroToken(t *testing.T) {
	var token Token

	assert.True(t, token.IsZero())
	assert.Equal(t, "", token.String())

	parsed, err := Parse("0#0")
	require.NoError(t, err)
	assert.False(t, parsed.IsZero())
}
