// Package pipeline turns an opened address archive into one collection of
// records.
//
// A single reader goroutine owns the archive and materializes entries one at
// a time in plan order (largest first). Each entry's bytes are handed to one
// worker, which decodes and parses them into a closed batch. A single
// collector appends batches as they arrive, so the result has no defined
// order. The first failure cancels the rest and no partial result is
// returned.
package pipeline

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"ruian/internal/address"
	"ruian/internal/archive"
	"ruian/internal/decode"
	"ruian/internal/intern"
	"ruian/internal/logger"
	"ruian/internal/metrics"
	"ruian/internal/parser/csv"
)

// Options configures a run. The zero value is usable.
type Options struct {
	// Workers is the number of parse lanes; 0 means GOMAXPROCS.
	Workers int

	// QueueDepth bounds how many materialized entries may wait for a worker.
	// 0 means one slot per entry, so the reader never stalls.
	QueueDepth int

	// Policy selects how undefined Windows-1250 bytes are handled.
	Policy decode.Policy

	// TrimSpace trims white space around every cell before it is parsed.
	TrimSpace bool

	// Interner canonicalizes text cells across all entries. When nil and
	// InternSize > 0, a pool of that size is created for the run.
	Interner   csv.Interner
	InternSize int

	// Order replaces Plan when set.
	Order func([]archive.Entry) []archive.Entry

	// OnEntry is called from the collector goroutine after each entry is
	// merged. It must not block for long.
	OnEntry func(EntryStats)

	// Job labels metrics; default "ruian".
	Job string
}

// EntryStats describes one merged entry.
type EntryStats struct {
	Entry   archive.Entry
	Records int
	Took    time.Duration // decode + parse
}

// Stats summarizes a successful run.
type Stats struct {
	Entries int
	Bytes   int64 // decompressed
	Records int
	Took    time.Duration
}

// Result is the outcome of Run.
type Result struct {
	Records []address.Record
	Stats   Stats
}

type job struct {
	entry archive.Entry
	raw   []byte
}

type batch struct {
	entry   archive.Entry
	records []address.Record
	took    time.Duration
}

// approximate bytes per row in the export, for pre-sizing batches
const bytesPerRow = 96

func (o Options) withDefaults() (Options, error) {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Order == nil {
		o.Order = Plan
	}
	if o.Job == "" {
		o.Job = "ruian"
	}
	if o.Interner == nil && o.InternSize > 0 {
		p, err := intern.New(o.InternSize)
		if err != nil {
			return o, err
		}
		o.Interner = p
	}
	return o, nil
}

// Parse runs the pipeline over a and returns every record, or the first
// error as an *Error.
func Parse(ctx context.Context, a *archive.Archive, opt Options) ([]address.Record, error) {
	res, err := Run(ctx, a, opt)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run is Parse with run statistics.
func Run(ctx context.Context, a *archive.Archive, opt Options) (Result, error) {
	start := time.Now()
	log := logger.C(ctx).With().Str("component", "pipeline").Logger()

	opt, err := opt.withDefaults()
	if err != nil {
		return Result{}, &Error{Kind: KindIO, Entry: -1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Kind: KindCanceled, Entry: -1, Err: err}
	}

	plan := opt.Order(a.Entries())
	var total int64
	for _, e := range plan {
		total += e.Size
	}
	log.Info().
		Int("entries", len(plan)).
		Str("size", humanize.Bytes(uint64(max(total, 0)))).
		Int("workers", opt.Workers).
		Str("policy", opt.Policy.String()).
		Msg("parse started")

	depth := opt.QueueDepth
	if depth <= 0 {
		depth = len(plan)
	}
	jobs := make(chan job, depth)
	batches := make(chan batch, opt.Workers)

	g, gctx := errgroup.WithContext(ctx)

	// Reader: the only goroutine touching the archive.
	g.Go(func() error {
		defer close(jobs)
		for _, e := range plan {
			if err := gctx.Err(); err != nil {
				return &Error{Kind: KindCanceled, Entry: e.Index, Name: e.Name, Err: err}
			}
			raw, err := a.ReadAll(e.Index)
			if err != nil {
				metrics.RecordEntry(opt.Job, 0, err)
				return readError(e, err)
			}
			select {
			case jobs <- job{entry: e, raw: raw}:
			case <-gctx.Done():
				return &Error{Kind: KindCanceled, Entry: e.Index, Name: e.Name, Err: gctx.Err()}
			}
		}
		return nil
	})

	var lanes sync.WaitGroup
	for range opt.Workers {
		lanes.Add(1)
		g.Go(func() error {
			defer lanes.Done()
			for j := range jobs {
				t0 := time.Now()
				recs, err := parseEntry(gctx, j, opt)
				metrics.RecordEntry(opt.Job, int64(len(j.raw)), err)
				if err != nil {
					return err
				}
				select {
				case batches <- batch{entry: j.entry, records: recs, took: time.Since(t0)}:
				case <-gctx.Done():
					return &Error{Kind: KindCanceled, Entry: j.entry.Index, Name: j.entry.Name, Err: gctx.Err()}
				}
			}
			return nil
		})
	}
	go func() {
		lanes.Wait()
		close(batches)
	}()

	// Collector: the single mutation point of the result.
	var (
		out   []address.Record
		stats Stats
	)
	for b := range batches {
		out = append(out, b.records...)
		stats.Entries++
		stats.Bytes += b.entry.Size
		stats.Records += len(b.records)
		metrics.RecordRows(opt.Job, "parsed", int64(len(b.records)))

		log.Debug().
			Int("entry", b.entry.Index).
			Str("name", b.entry.Name).
			Str("size", humanize.Bytes(uint64(max(b.entry.Size, 0)))).
			Int("records", len(b.records)).
			Dur("took", b.took).
			Msg("entry merged")
		if opt.OnEntry != nil {
			opt.OnEntry(EntryStats{Entry: b.entry, Records: len(b.records), Took: b.took})
		}
	}

	err = g.Wait()
	stats.Took = time.Since(start)
	metrics.RecordStep(opt.Job, "parse", err, stats.Took)
	if err != nil {
		metrics.RecordRows(opt.Job, "discarded", int64(len(out)))
		log.Error().Err(err).Int("discarded", len(out)).Dur("took", stats.Took).Msg("parse failed")
		return Result{}, err
	}

	if out == nil {
		out = []address.Record{}
	}
	log.Info().
		Int("records", stats.Records).
		Int("entries", stats.Entries).
		Str("bytes", humanize.Bytes(uint64(stats.Bytes))).
		Dur("took", stats.Took).
		Msg("parse finished")
	return Result{Records: out, Stats: stats}, nil
}

// parseEntry decodes and parses one whole entry into a batch.
func parseEntry(ctx context.Context, j job, opt Options) ([]address.Record, error) {
	src := decode.NewReader(bytes.NewReader(j.raw), opt.Policy)
	recs, err := csv.ParseAll(ctx, src, csv.Options{
		LazyQuotes: true,
		TrimSpace:  opt.TrimSpace,
		Interner:   opt.Interner,
		RowsHint:   len(j.raw) / bytesPerRow,
	})
	if err != nil {
		return nil, parseError(j.entry, err)
	}
	return recs, nil
}
