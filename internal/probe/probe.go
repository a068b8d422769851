// Package probe summarizes an address archive without parsing its rows.
//
// For every entry it decompresses a small leading sample, detects the
// delimiter, decodes the header row and compares it with address.Columns.
// Probing is best-effort: a damaged entry is reported, not fatal.
package probe

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"

	"ruian/internal/address"
	"ruian/internal/archive"
	"ruian/internal/decode"
	"ruian/internal/parser/csv"
)

// Options control sampling.
type Options struct {
	// SampleBytes is how much of each entry is decompressed; default 4096.
	SampleBytes int

	// Policy decodes the sample. Strict reports unassigned bytes as an entry
	// error.
	Policy decode.Policy

	// Limit stops after this many entries when > 0.
	Limit int
}

// EntryReport describes one archive entry.
type EntryReport struct {
	Index          int      `json:"index"`
	Name           string   `json:"name"`
	Size           int64    `json:"size"`
	CompressedSize int64    `json:"compressed_size"`
	Method         string   `json:"method"`
	Delimiter      string   `json:"delimiter,omitempty"`
	Headers        []string `json:"headers,omitempty"`
	Missing        []string `json:"missing,omitempty"`
	Absent         []string `json:"absent,omitempty"` // optional columns not present
	Extra          []string `json:"extra,omitempty"`

	// EstRows extrapolates the row count from the sample's line density.
	EstRows int64  `json:"est_rows"`
	Err     string `json:"error,omitempty"`
}

// OK reports whether the entry looks parseable.
func (e EntryReport) OK() bool {
	return e.Err == "" && len(e.Missing) == 0 && e.Delimiter == ";"
}

// Report is the result of Archive.
type Report struct {
	Entries        []EntryReport  `json:"entries"`
	Size           int64          `json:"size"`
	CompressedSize int64          `json:"compressed_size"`
	EstRows        int64          `json:"est_rows"`
	Methods        map[string]int `json:"methods"`
	Problems       int            `json:"problems"`
}

const defaultSample = 4 << 10

// Archive probes the file entries of a in archive order.
func Archive(ctx context.Context, a *archive.Archive, opt Options) (Report, error) {
	if opt.SampleBytes <= 0 {
		opt.SampleBytes = defaultSample
	}

	rep := Report{Methods: map[string]int{}}
	for _, e := range a.Entries() {
		if opt.Limit > 0 && len(rep.Entries) >= opt.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		er := EntryReport{
			Index:          e.Index,
			Name:           e.Name,
			Size:           e.Size,
			CompressedSize: e.CompressedSize,
			Method:         MethodName(e.Method),
		}
		rep.Methods[er.Method]++
		rep.Size += e.Size
		rep.CompressedSize += e.CompressedSize

		if err := sampleEntry(a, e, opt, &er); err != nil {
			er.Err = err.Error()
		}
		if !er.OK() {
			rep.Problems++
		}
		rep.EstRows += er.EstRows
		rep.Entries = append(rep.Entries, er)
	}
	return rep, nil
}

func sampleEntry(a *archive.Archive, e archive.Entry, opt Options, er *EntryReport) error {
	raw, err := a.Head(e.Index, opt.SampleBytes)
	if err != nil {
		return err
	}
	utf, err := decode.Bytes(raw, opt.Policy)
	if err != nil {
		return err
	}
	text := string(utf)

	delim := DetectDelimiter(text)
	er.Delimiter = string(delim)
	hdr, err := readHeader(text, delim)
	if err != nil {
		return err
	}
	er.Headers = hdr
	er.Missing, er.Absent, er.Extra = compareHeaders(hdr)
	er.EstRows = estimateRows(raw, e.Size)
	return nil
}

// readHeader reads the first record of a sample, skipping blank lines.
func readHeader(text string, delim rune) ([]string, error) {
	line, _, _ := strings.Cut(text, "\n")
	r := stdcsv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no header row in sample")
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	rec = csv.StripHeaderBOM(rec)
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec, nil
}

// compareHeaders lists required and optional known columns absent from hdr,
// and hdr names that are not known columns.
func compareHeaders(hdr []string) (missing, absent, extra []string) {
	for _, c := range address.Columns {
		switch {
		case slices.Contains(hdr, c.Header):
		case c.Optional:
			absent = append(absent, c.Header)
		default:
			missing = append(missing, c.Header)
		}
	}
	known := address.Headers()
	for _, h := range hdr {
		if !slices.Contains(known, h) {
			extra = append(extra, h)
		}
	}
	return missing, absent, extra
}

// estimateRows scales the data lines seen in sample to the entry size.
func estimateRows(sample []byte, size int64) int64 {
	lines := int64(bytes.Count(sample, []byte{'\n'}))
	if int64(len(sample)) >= size {
		// whole entry sampled; a final row may lack its newline
		if len(sample) > 0 && sample[len(sample)-1] != '\n' {
			lines++
		}
		return max(lines-1, 0)
	}
	if lines <= 1 {
		return 0
	}
	// skip the header line for the density
	first := int64(bytes.IndexByte(sample, '\n') + 1)
	last := int64(bytes.LastIndexByte(sample, '\n') + 1)
	per := float64(last-first) / float64(lines-1)
	return int64(float64(size-first) / per)
}

var delimiters = []rune{';', ',', '\t', '|'}

// DetectDelimiter picks the candidate occurring most often in the first line
// of sample. Ties and an empty line give ';'.
func DetectDelimiter(sample string) rune {
	line, _, _ := strings.Cut(sample, "\n")
	best, bestN := ';', 0
	for _, d := range delimiters {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// MethodName names a ZIP compression method.
func MethodName(m uint16) string {
	switch m {
	case 0:
		return "store"
	case 8:
		return "deflate"
	case 93:
		return "zstd"
	}
	return fmt.Sprintf("method(%d)", m)
}
