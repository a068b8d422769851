package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruian/internal/address"
	"ruian/internal/archive"
	"ruian/internal/decode"
	"ruian/internal/fixture"
	"ruian/internal/metrics"
	"ruian/internal/parser/csv"
)

func openZip(t *testing.T, entries ...fixture.Entry) *archive.Archive {
	t.Helper()
	data := fixture.Zip(entries...)
	a, err := archive.Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return a
}

func expected(t *testing.T, rows []fixture.Row) []address.Record {
	t.Helper()
	recs, err := csv.ParseAll(context.Background(), strings.NewReader(fixture.Table(nil, rows)), csv.Options{})
	require.NoError(t, err)
	return recs
}

func reversed(es []archive.Entry) []archive.Entry {
	out := Plan(es)
	slices.Reverse(out)
	return out
}

func TestPlan_LargestFirstStable(t *testing.T) {
	t.Parallel()

	in := []archive.Entry{
		{Index: 0, Size: 10},
		{Index: 1, Size: 30},
		{Index: 2, Size: 30},
		{Index: 3, Size: 5},
	}
	got := Plan(in)

	var idx []int
	for _, e := range got {
		idx = append(idx, e.Index)
	}
	assert.Equal(t, []int{1, 2, 0, 3}, idx)
	assert.Equal(t, 0, in[0].Index, "input must not be reordered")
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	rows := fixture.SyntheticRows(1, 250)
	a := openZip(t, fixture.TableEntry("20240531_OB_595209_ADR.csv", rows))

	got, err := Parse(context.Background(), a, Options{})
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	assert.Equal(t, address.FingerprintOf(expected(t, rows)), address.FingerprintOf(got))
}

// A small and a large entry merge into one collection regardless of the order
// the entries are scheduled in.
func TestParse_MultiEntryUnion(t *testing.T) {
	t.Parallel()

	small := fixture.SyntheticRows(1, 10)
	large := fixture.SyntheticRows(11, 1000)
	a := openZip(t,
		fixture.TableEntry("20240531_OB_500011_ADR.csv", small),
		fixture.TableEntry("20240531_OB_554782_ADR.csv", large),
	)
	want := address.FingerprintOf(append(expected(t, small), expected(t, large)...))

	for name, opt := range map[string]Options{
		"largest first":  {Workers: 2},
		"reversed order": {Workers: 2, Order: reversed},
		"single worker":  {Workers: 1},
		"many workers":   {Workers: 16},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(context.Background(), a, opt)
			require.NoError(t, err)
			require.Len(t, got, 1010)
			assert.Equal(t, want, address.FingerprintOf(got))

			seen := make(map[uint32]bool, len(got))
			for _, r := range got {
				assert.False(t, seen[r.ADMCode], "duplicate ADM %d", r.ADMCode)
				seen[r.ADMCode] = true
			}
			for id := uint32(1); id <= 1010; id++ {
				assert.True(t, seen[id], "missing ADM %d", id)
			}
		})
	}
}

func TestParse_FailureInSecondEntryDiscardsEverything(t *testing.T) {
	t.Parallel()

	bad := fixture.SyntheticRows(100, 8)
	bad[4] = bad[4].With(address.HeaderNumber, "12x")
	a := openZip(t,
		fixture.TableEntry("20240531_OB_500011_ADR.csv", fixture.SyntheticRows(1, 50)),
		fixture.TableEntry("20240531_OB_554782_ADR.csv", bad),
		fixture.TableEntry("20240531_OB_568449_ADR.csv", fixture.SyntheticRows(200, 20)),
	)

	got, err := Parse(context.Background(), a, Options{Workers: 2})
	assert.Nil(t, got)

	var pe *Error
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, KindRow, pe.Kind)
	assert.Equal(t, 1, pe.Entry)
	assert.Equal(t, "20240531_OB_554782_ADR.csv", pe.Name)
	assert.True(t, IsKind(err, KindRow))

	var re *csv.RowError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 6, re.Line)
	assert.Equal(t, address.HeaderNumber, re.Column)
	assert.Equal(t, "12x", re.Value)
}

func TestParse_GolcuvJenikov(t *testing.T) {
	t.Parallel()

	a := openZip(t,
		fixture.TableEntry("20240531_OB_500011_ADR.csv", fixture.SyntheticRows(1, 30)),
		fixture.TableEntry("20240531_OB_568449_ADR.csv", append(fixture.SyntheticRows(40, 5), fixture.GolcuvJenikov())),
	)

	got, err := Parse(context.Background(), a, Options{})
	require.NoError(t, err)

	i := slices.IndexFunc(got, func(r address.Record) bool { return r.ADMCode == 9382372 })
	require.GreaterOrEqual(t, i, 0, "address 9382372 not found")
	r := got[i]

	assert.Equal(t, "Golčův Jeníkov", r.Town)
	require.NotNil(t, r.Street)
	assert.Equal(t, "Nám. T. G. Masaryka", *r.Street)
	assert.Equal(t, uint32(110), r.Number)
	assert.Equal(t, uint32(58282), r.ZipCode)
	assert.Nil(t, r.OrientationNumber)
	assert.Nil(t, r.PraguePart)
	assert.Equal(t, time.Date(2011, 7, 1, 0, 0, 0, 0, time.UTC), r.ValidSince)
}

func TestParse_DecodePolicy(t *testing.T) {
	t.Parallel()

	rows := fixture.SyntheticRows(1, 3)
	rows[1] = rows[1].With(address.HeaderTown, "Brno")
	raw := fixture.Encode1250(fixture.Table(nil, rows))
	raw = bytes.Replace(raw, []byte("Brno"), []byte("Br\x90o"), 1)
	entry := fixture.Entry{Name: "20240531_OB_582786_ADR.csv", Data: raw, Method: zip.Deflate}

	t.Run("replace", func(t *testing.T) {
		t.Parallel()

		got, err := Parse(context.Background(), openZip(t, entry), Options{Policy: decode.Replace})
		require.NoError(t, err)
		towns := make([]string, 0, len(got))
		for _, r := range got {
			towns = append(towns, r.Town)
		}
		assert.Contains(t, towns, "Br\uFFFDo")
	})

	t.Run("strict", func(t *testing.T) {
		t.Parallel()

		_, err := Parse(context.Background(), openZip(t, entry), Options{Policy: decode.Strict})
		assert.True(t, IsKind(err, KindDecode), "got %v", err)

		var be *decode.ByteError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, byte(0x90), be.Byte)
	})
}

func TestParse_HeaderErrorIsRowKind(t *testing.T) {
	t.Parallel()

	hdr := slices.DeleteFunc(slices.Clone(fixture.ExportHeaders), func(h string) bool { return h == address.HeaderZipCode })
	data := fixture.Encode1250(fixture.Table(hdr, fixture.SyntheticRows(1, 2)))
	a := openZip(t, fixture.Entry{Name: "a.csv", Data: data, Method: zip.Deflate})

	_, err := Parse(context.Background(), a, Options{})
	assert.True(t, IsKind(err, KindRow), "got %v", err)
	var he *csv.HeaderError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, []string{address.HeaderZipCode}, he.Missing)
}

func TestParse_EmptyEntryYieldsNothing(t *testing.T) {
	t.Parallel()

	a := openZip(t,
		fixture.Entry{Name: "empty.csv", Method: zip.Store},
		fixture.TableEntry("b.csv", []fixture.Row{fixture.GolcuvJenikov()}),
	)
	got, err := Parse(context.Background(), a, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(9382372), got[0].ADMCode)
}

func TestParse_QuoteInsideUnquotedCell(t *testing.T) {
	t.Parallel()

	row := fixture.GolcuvJenikov().With(address.HeaderStreet, `Sídliště "Máj"`)
	a := openZip(t, fixture.TableEntry("a.csv", []fixture.Row{row}))

	got, err := Parse(context.Background(), a, Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Street)
	assert.Equal(t, `Sídliště "Máj"`, *got[0].Street)
}

func TestParse_TrimSpace(t *testing.T) {
	t.Parallel()

	row := fixture.GolcuvJenikov().With(address.HeaderZipCode, " 58282")
	a := openZip(t, fixture.TableEntry("a.csv", []fixture.Row{row}))

	_, err := Parse(context.Background(), a, Options{})
	assert.True(t, IsKind(err, KindRow), "got %v", err)

	got, err := Parse(context.Background(), a, Options{TrimSpace: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(58282), got[0].ZipCode)
}

func TestParse_OptionalColumnsAbsent(t *testing.T) {
	t.Parallel()

	hdr := slices.DeleteFunc(slices.Clone(fixture.ExportHeaders), func(h string) bool {
		return h == address.HeaderPraguePartCode || h == address.HeaderPraguePart
	})
	data := fixture.Encode1250(fixture.Table(hdr, fixture.SyntheticRows(1, 6)))
	a := openZip(t, fixture.Entry{Name: "a.csv", Data: data, Method: zip.Deflate})

	got, err := Parse(context.Background(), a, Options{})
	require.NoError(t, err)
	require.Len(t, got, 6)
	for _, r := range got {
		assert.Nil(t, r.PraguePartCode)
		assert.Nil(t, r.PraguePart)
	}
}

func TestParse_CorruptEntryIsArchiveKind(t *testing.T) {
	t.Parallel()

	payload := fixture.Encode1250(fixture.Table(nil, fixture.SyntheticRows(1, 3)))
	data := fixture.Zip(fixture.Entry{Name: "a.csv", Data: payload, Method: zip.Store})
	at := bytes.Index(data, payload)
	require.GreaterOrEqual(t, at, 0)
	data[at+len(payload)-3] ^= 0x01

	a, err := archive.Open(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	_, err = Parse(context.Background(), a, Options{})
	assert.True(t, IsKind(err, KindArchive), "got %v", err)
	assert.ErrorIs(t, err, archive.ErrChecksum)
}

func TestParse_EmptyArchive(t *testing.T) {
	t.Parallel()

	got, err := Parse(context.Background(), openZip(t, fixture.Entry{Name: "adr/", Method: zip.Store}), Options{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParse_BoundedQueue(t *testing.T) {
	t.Parallel()

	var entries []fixture.Entry
	for i := range 6 {
		entries = append(entries, fixture.TableEntry("e"+string(rune('a'+i))+".csv", fixture.SyntheticRows(i*100+1, 20+i)))
	}
	a := openZip(t, entries...)

	var seen atomic.Int32
	res, err := Run(context.Background(), a, Options{
		Workers:    1,
		QueueDepth: 1,
		OnEntry:    func(EntryStats) { seen.Add(1) },
	})
	require.NoError(t, err)
	assert.Len(t, res.Records, 20+21+22+23+24+25)
	assert.Equal(t, int32(6), seen.Load())
	assert.Equal(t, 6, res.Stats.Entries)
	assert.Equal(t, len(res.Records), res.Stats.Records)
	assert.Positive(t, res.Stats.Bytes)
}

func TestParse_Canceled(t *testing.T) {
	t.Parallel()

	a := openZip(t, fixture.TableEntry("a.csv", fixture.SyntheticRows(1, 10)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := Parse(ctx, a, Options{})
	assert.Nil(t, got)
	assert.True(t, IsKind(err, KindCanceled), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

// Cancelling from OnEntry stops the run between entries.
func TestParse_CanceledMidRun(t *testing.T) {
	t.Parallel()

	var entries []fixture.Entry
	for i := range 8 {
		entries = append(entries, fixture.TableEntry("e"+string(rune('a'+i))+".csv", fixture.SyntheticRows(i*100+1, 50)))
	}
	a := openZip(t, entries...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got, err := Parse(ctx, a, Options{Workers: 1, QueueDepth: 1, OnEntry: func(EntryStats) { cancel() }})
	assert.Nil(t, got)
	assert.True(t, IsKind(err, KindCanceled), "got %v", err)
}

func TestParse_InternsAcrossEntries(t *testing.T) {
	t.Parallel()

	a := openZip(t,
		fixture.TableEntry("a.csv", fixture.SyntheticRows(1, 2)),
		fixture.TableEntry("b.csv", fixture.SyntheticRows(10, 2)),
	)
	// one lane: concurrent first sightings may each store their own copy
	got, err := Parse(context.Background(), a, Options{Workers: 1, InternSize: 128})
	require.NoError(t, err)
	require.Len(t, got, 4)

	var zdar []address.Record
	for _, r := range got {
		if r.Town == "Žďár nad Sázavou" {
			zdar = append(zdar, r)
		}
	}
	require.GreaterOrEqual(t, len(zdar), 2)
	for _, r := range zdar[1:] {
		assert.Same(t, unsafe.StringData(zdar[0].Town), unsafe.StringData(r.Town))
	}
}

func TestParse_InvalidInternSize(t *testing.T) {
	t.Parallel()

	// a negative size is treated as "no interning", not an error
	got, err := Parse(context.Background(), openZip(t, fixture.TableEntry("a.csv", fixture.SyntheticRows(1, 1))), Options{InternSize: -1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// Not parallel: swaps the process-wide metrics backend.
func TestRun_RecordsMetrics(t *testing.T) {
	orig := metrics.Current()
	rec := &metrics.Recorder{}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(orig) })

	a := openZip(t,
		fixture.TableEntry("a.csv", fixture.SyntheticRows(1, 7)),
		fixture.TableEntry("b.csv", fixture.SyntheticRows(100, 5)),
	)
	_, err := Parse(context.Background(), a, Options{Job: "test"})
	require.NoError(t, err)

	assert.Equal(t, 12.0, rec.Sum(metrics.RecordsTotal))
	assert.Equal(t, 2.0, rec.Sum(metrics.EntriesTotal))
	assert.Positive(t, rec.Sum(metrics.BytesTotal))

	steps := rec.Counters()
	i := slices.IndexFunc(steps, func(c metrics.Call) bool { return c.Name == metrics.StepTotal })
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, metrics.Labels{"job": "test", "step": "parse", "status": "success"}, steps[i].Labels)
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindRow, Entry: 3, Name: "a.csv", Err: errors.New("boom")}
	assert.Equal(t, "ruian row error in entry 3 (a.csv): boom", e.Error())

	oe := OpenError(fmt.Errorf("%w: not a zip", archive.ErrFormat))
	assert.Equal(t, KindArchive, oe.Kind)
	assert.Equal(t, -1, oe.Entry)
	assert.True(t, strings.HasPrefix(oe.Error(), "ruian archive error: "), oe.Error())

	assert.Equal(t, KindIO, OpenError(errors.New("read: connection reset")).Kind)
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
