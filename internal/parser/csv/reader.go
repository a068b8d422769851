// Package csv parses the semicolon-delimited RÚIAN address tables into
// typed address.Record values.
//
// The first row is the header. Header names are matched against
// address.Columns exactly (after BOM stripping and trimming), so column order
// in the file does not matter and unknown extra columns are ignored. A
// missing required header fails the whole table before any row is read; a
// missing optional header leaves that field nil. An empty table (no header
// row at all) yields no records.
//
// Rows are atomic: a row either yields a complete Record or a *RowError, and
// the first row error ends the stream. There is no skip-and-continue mode.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"ruian/internal/address"
)

// Interner canonicalizes repeated text cells. *intern.Pool satisfies it.
type Interner interface {
	Intern(s string) string
}

// Options configures a Reader. The zero value reads the RÚIAN export as
// published.
type Options struct {
	// Comma is the field delimiter. When zero, ';' is used.
	Comma rune

	// LazyQuotes relaxes quote handling (encoding/csv LazyQuotes): a bare
	// quote inside an unquoted cell is kept as a literal.
	LazyQuotes bool

	// TrimSpace trims leading/trailing white space from every cell.
	TrimSpace bool

	// Interner, when set, is applied to every text column.
	Interner Interner

	// RowsHint pre-sizes the slice built by ParseAll.
	RowsHint int
}

// HeaderError reports a header row that cannot be bound to address.Columns.
type HeaderError struct {
	Missing   []string
	Duplicate []string
}

func (e *HeaderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns %q", e.Missing))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate columns %q", e.Duplicate))
	}
	return "csv header: " + strings.Join(parts, "; ")
}

// RowError is a row-level failure. Column and Value are empty for structural
// errors (bad quoting, wrong field count).
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("csv line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csv line %d: column %q value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// boundColumn is one address column and its source index in the file.
type boundColumn struct {
	col address.Column
	src int
}

// Reader yields Records from one table. It is a single forward pass and is
// not safe for concurrent use.
type Reader struct {
	cr     *csv.Reader
	cols   []boundColumn
	trim   bool
	intern Interner
	rows   int
	err    error // sticky; io.EOF once drained
}

// NewReader consumes the header row of r and binds it to address.Columns.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.ReuseRecord = true
	// FieldsPerRecord stays 0: the header width becomes the enforced width.

	hdr, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Reader{cr: cr, err: io.EOF}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols, err := bindHeader(hdr)
	if err != nil {
		return nil, err
	}
	return &Reader{cr: cr, cols: cols, trim: opt.TrimSpace, intern: opt.Interner}, nil
}

// bindHeader builds the header-name → column table once per table.
func bindHeader(hdr []string) ([]boundColumn, error) {
	srcIdx := make(map[string]int, len(hdr))
	var herr HeaderError
	for i, h := range StripHeaderBOM(hdr) {
		h = strings.TrimSpace(h)
		if _, dup := srcIdx[h]; dup {
			herr.Duplicate = append(herr.Duplicate, h)
			continue
		}
		srcIdx[h] = i
	}

	cols := make([]boundColumn, 0, len(address.Columns))
	for _, c := range address.Columns {
		si, ok := srcIdx[c.Header]
		if !ok {
			if c.Optional {
				continue
			}
			herr.Missing = append(herr.Missing, c.Header)
			continue
		}
		cols = append(cols, boundColumn{col: c, src: si})
	}
	if len(herr.Missing) > 0 || len(herr.Duplicate) > 0 {
		return nil, &herr
	}
	return cols, nil
}

// Next returns the next Record, or io.EOF after the last row. Once Next has
// returned an error every later call returns the same error.
func (r *Reader) Next() (address.Record, error) {
	if r.err != nil {
		return address.Record{}, r.err
	}

	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
		} else {
			r.err = structuralError(err)
		}
		return address.Record{}, r.err
	}
	line, _ := r.cr.FieldPos(0)

	var out address.Record
	for _, b := range r.cols {
		cell := rec[b.src]
		if r.trim {
			cell = strings.TrimSpace(cell)
		}
		if r.intern != nil && b.col.Kind == address.KindString {
			cell = r.intern.Intern(cell)
		}
		if err := b.col.Apply(&out, cell); err != nil {
			r.err = &RowError{Line: line, Column: b.col.Header, Value: cell, Err: err}
			return address.Record{}, r.err
		}
	}
	r.rows++
	return out, nil
}

// Rows reports how many records Next has returned so far.
func (r *Reader) Rows() int { return r.rows }

// All adapts the Reader to a range-over-func sequence. Iteration stops after
// the first error is yielded; io.EOF is not yielded.
func (r *Reader) All() iter.Seq2[address.Record, error] {
	return func(yield func(address.Record, error) bool) {
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// ParseAll reads one whole table from src. Cancellation is checked between
// rows. On error no records are returned.
func ParseAll(ctx context.Context, src io.Reader, opt Options) ([]address.Record, error) {
	rd, err := NewReader(src, opt)
	if err != nil {
		return nil, err
	}

	out := make([]address.Record, 0, max(opt.RowsHint, 0))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func structuralError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &RowError{Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("csv read: %w", err)
}
