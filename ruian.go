// Package ruian loads the RÚIAN address export: a ZIP archive of
// Windows-1250, semicolon-delimited tables, one per municipality.
//
//	f, _ := os.Open("20240531_OB_ADR_csv.zip")
//	st, _ := f.Stat()
//	recs, err := ruian.Parse(ctx, f, st.Size(), ruian.WithWorkers(8))
//
// Entries are parsed in parallel and merged into a single slice in no
// particular order. Parse returns every record or the first error, never a
// partial result.
package ruian

import (
	"context"
	"io"

	"ruian/internal/address"
	"ruian/internal/archive"
	"ruian/internal/decode"
	"ruian/internal/pipeline"
)

type (
	// Record is one typed address point.
	Record = address.Record
	// Error is the error type returned by Parse.
	Error = pipeline.Error
	// Kind classifies an Error.
	Kind = pipeline.Kind
	// EntryStats describes one merged archive entry.
	EntryStats = pipeline.EntryStats
	// Policy selects how undefined Windows-1250 bytes are handled.
	Policy = decode.Policy
)

const (
	KindIO       = pipeline.KindIO
	KindArchive  = pipeline.KindArchive
	KindDecode   = pipeline.KindDecode
	KindRow      = pipeline.KindRow
	KindCanceled = pipeline.KindCanceled

	Replace = decode.Replace
	Strict  = decode.Strict
)

// Option tunes a Parse call.
type Option func(*pipeline.Options)

// WithWorkers sets the number of parse lanes. Non-positive means GOMAXPROCS.
func WithWorkers(n int) Option { return func(o *pipeline.Options) { o.Workers = n } }

// WithQueueDepth bounds how many decompressed entries may wait for a worker.
func WithQueueDepth(n int) Option { return func(o *pipeline.Options) { o.QueueDepth = n } }

// WithPolicy selects the decoder policy. The default is Replace.
func WithPolicy(p Policy) Option { return func(o *pipeline.Options) { o.Policy = p } }

// WithTrimSpace trims white space around every cell before it is parsed.
func WithTrimSpace() Option { return func(o *pipeline.Options) { o.TrimSpace = true } }

// WithInternSize shares repeated names across records through an LRU of n
// strings.
func WithInternSize(n int) Option { return func(o *pipeline.Options) { o.InternSize = n } }

// WithOnEntry registers a callback run after each entry is merged.
func WithOnEntry(fn func(EntryStats)) Option { return func(o *pipeline.Options) { o.OnEntry = fn } }

// WithJob sets the job label on emitted metrics.
func WithJob(job string) Option { return func(o *pipeline.Options) { o.Job = job } }

func options(opts []Option) pipeline.Options {
	var o pipeline.Options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Parse reads the archive held in r, which is size bytes long.
func Parse(ctx context.Context, r io.ReaderAt, size int64, opts ...Option) ([]Record, error) {
	a, err := archive.Open(r, size)
	if err != nil {
		return nil, pipeline.OpenError(err)
	}
	return pipeline.Parse(ctx, a, options(opts))
}

// ParseSeeker is Parse for sources that can only seek.
func ParseSeeker(ctx context.Context, rs io.ReadSeeker, opts ...Option) ([]Record, error) {
	a, err := archive.OpenSeeker(rs)
	if err != nil {
		return nil, pipeline.OpenError(err)
	}
	return pipeline.Parse(ctx, a, options(opts))
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool { return pipeline.IsKind(err, k) }
