package pipeline

import (
	"context"
	"errors"
	"fmt"

	"ruian/internal/archive"
	"ruian/internal/decode"
	"ruian/internal/parser/csv"
)

// Kind classifies a pipeline failure.
type Kind uint8

const (
	// KindIO is a failure of the underlying byte source.
	KindIO Kind = iota + 1
	// KindArchive is a malformed container or damaged entry.
	KindArchive
	// KindDecode is an undefined Windows-1250 byte under the strict policy.
	KindDecode
	// KindRow is a bad header, row or cell.
	KindRow
	// KindCanceled means the context ended the run.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindArchive:
		return "archive"
	case KindDecode:
		return "decode"
	case KindRow:
		return "row"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is the single error type returned by Parse. Entry is the archive
// index of the failing entry, or -1 when the failure is not tied to one.
// Row-level detail (line, column) is on the wrapped *csv.RowError.
type Error struct {
	Kind  Kind
	Entry int
	Name  string
	Err   error
}

func (e *Error) Error() string {
	if e.Entry < 0 {
		return fmt.Sprintf("ruian %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ruian %s error in entry %d (%s): %v", e.Kind, e.Entry, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// readError tags a failure of archive.ReadAll.
func readError(e archive.Entry, err error) *Error {
	k := KindIO
	switch {
	case isCanceled(err):
		k = KindCanceled
	case archive.IsCorrupt(err):
		k = KindArchive
	}
	return &Error{Kind: k, Entry: e.Index, Name: e.Name, Err: err}
}

// parseError tags a failure while decoding and parsing one entry.
func parseError(e archive.Entry, err error) *Error {
	var (
		be *decode.ByteError
		re *csv.RowError
		he *csv.HeaderError
	)
	k := KindIO
	switch {
	case isCanceled(err):
		k = KindCanceled
	case errors.As(err, &be):
		k = KindDecode
	case errors.As(err, &re), errors.As(err, &he):
		k = KindRow
	}
	return &Error{Kind: k, Entry: e.Index, Name: e.Name, Err: err}
}

// OpenError tags a failure to open the archive container.
func OpenError(err error) *Error {
	k := KindIO
	switch {
	case isCanceled(err):
		k = KindCanceled
	case errors.Is(err, archive.ErrFormat):
		k = KindArchive
	}
	return &Error{Kind: k, Entry: -1, Err: err}
}
