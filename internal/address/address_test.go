package address

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	got, err := ParseDate("2011-07-01")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, got.Location())

	bad := []string{
		"",
		"2011-7-01",
		"2011/07/01",
		"01.07.2011",
		"2011-07-01T00:00:00Z",
		"2011-13-01",
		"2011-02-30",
		" 2011-07-01",
		"abcd-ef-gh",
	}
	for _, s := range bad {
		_, err := ParseDate(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestColumns_TableShape(t *testing.T) {
	t.Parallel()

	require.Len(t, Columns, 19)

	seen := map[string]bool{}
	optional := 0
	for _, c := range Columns {
		assert.False(t, seen[c.Header], "duplicate header %q", c.Header)
		seen[c.Header] = true
		if c.Optional {
			optional++
		}
	}
	assert.Equal(t, 10, optional)
	assert.Equal(t, HeaderADMCode, Headers()[0])
	assert.Equal(t, HeaderValidSince, Headers()[18])
}

func columnByHeader(t *testing.T, h string) Column {
	t.Helper()
	for _, c := range Columns {
		if c.Header == h {
			return c
		}
	}
	t.Fatalf("no column %q", h)
	return Column{}
}

// An empty optional cell must stay absent; a present zero must not.
func TestColumn_OptionalLaw(t *testing.T) {
	t.Parallel()

	var r Record
	require.NoError(t, columnByHeader(t, HeaderStreet).Apply(&r, ""))
	assert.Nil(t, r.Street)

	require.NoError(t, columnByHeader(t, HeaderStreet).Apply(&r, "Nám. T. G. Masaryka"))
	require.NotNil(t, r.Street)
	assert.Equal(t, "Nám. T. G. Masaryka", *r.Street)

	require.NoError(t, columnByHeader(t, HeaderOrientationNumber).Apply(&r, ""))
	assert.Nil(t, r.OrientationNumber)
	require.NoError(t, columnByHeader(t, HeaderOrientationNumber).Apply(&r, "0"))
	require.NotNil(t, r.OrientationNumber)
	assert.Equal(t, uint32(0), *r.OrientationNumber)

	require.NoError(t, columnByHeader(t, HeaderLocationX).Apply(&r, "-738268.5"))
	require.NotNil(t, r.LocationX)
	assert.InDelta(t, -738268.5, *r.LocationX, 0.1)

	assert.Error(t, columnByHeader(t, HeaderStreetCode).Apply(&r, "abc"))
}

func TestColumn_RequiredTextAcceptsEmpty(t *testing.T) {
	t.Parallel()

	r := Record{Town: "x", TownPart: "x", ObjectType: "x"}
	for _, h := range []string{HeaderTown, HeaderTownPart, HeaderObjectType} {
		require.NoError(t, columnByHeader(t, h).Apply(&r, ""), h)
	}
	assert.Empty(t, r.Town)
	assert.Empty(t, r.TownPart)
	assert.Empty(t, r.ObjectType)
}

func TestColumn_RequiredRejectsEmptyAndGarbage(t *testing.T) {
	t.Parallel()

	var r Record
	assert.ErrorIs(t, columnByHeader(t, HeaderNumber).Apply(&r, ""), ErrEmpty)
	assert.ErrorIs(t, columnByHeader(t, HeaderZipCode).Apply(&r, ""), ErrEmpty)
	assert.ErrorIs(t, columnByHeader(t, HeaderValidSince).Apply(&r, ""), ErrEmpty)
	assert.Error(t, columnByHeader(t, HeaderNumber).Apply(&r, "12a"))
	assert.Error(t, columnByHeader(t, HeaderNumber).Apply(&r, "-1"))
	assert.Error(t, columnByHeader(t, HeaderADMCode).Apply(&r, "4294967296"))
	assert.Error(t, columnByHeader(t, HeaderValidSince).Apply(&r, "1.7.2011"))
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	t.Parallel()

	street := "Nám. T. G. Masaryka"
	recs := []Record{
		{ADMCode: 1, Town: "A", ValidSince: time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ADMCode: 2, Town: "B", Street: &street},
		{ADMCode: 3, Town: "C"},
	}
	reversed := []Record{recs[2], recs[1], recs[0]}

	a, b := FingerprintOf(recs), FingerprintOf(reversed)
	assert.Equal(t, a, b)
	assert.Equal(t, 3, a.Count)

	changed := append([]Record(nil), recs...)
	changed[1].Street = nil
	assert.NotEqual(t, a.Sum, FingerprintOf(changed).Sum)

	var merged Fingerprint
	merged.Merge(FingerprintOf(recs[:1]))
	merged.Merge(FingerprintOf(recs[1:]))
	assert.Equal(t, a, merged)
}

// Absent and empty-string optional values must hash differently.
func TestFingerprint_AbsentVsEmpty(t *testing.T) {
	t.Parallel()

	empty := ""
	a := FingerprintOf([]Record{{ADMCode: 1}})
	b := FingerprintOf([]Record{{ADMCode: 1, Street: &empty}})
	assert.NotEqual(t, a.Sum, b.Sum)
}
