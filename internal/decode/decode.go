// Package decode converts Windows-1250 (Central European) byte streams into
// UTF-8.
//
// Windows-1250 leaves five byte values unassigned (0x81, 0x83, 0x88, 0x90,
// 0x98). What happens to them is the Policy: Replace turns each into U+FFFD,
// Strict stops with a *ByteError at the first one. Everything else maps 1:1,
// so decoding well-formed exports never fails.
package decode

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Policy selects how unassigned bytes are handled.
type Policy uint8

const (
	// Replace substitutes U+FFFD for unassigned bytes. It is the default.
	Replace Policy = iota
	// Strict fails on the first unassigned byte.
	Strict
)

func (p Policy) String() string {
	switch p {
	case Replace:
		return "replace"
	case Strict:
		return "strict"
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// ParsePolicy parses "replace" or "strict" (case-insensitive). The empty
// string yields Replace.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return Replace, nil
	case "strict":
		return Strict, nil
	}
	return Replace, fmt.Errorf("decode: unknown policy %q (want replace|strict)", s)
}

// ByteError reports an unassigned Windows-1250 byte under the Strict policy.
type ByteError struct {
	Offset int64
	Byte   byte
}

func (e *ByteError) Error() string {
	return fmt.Sprintf("decode: byte 0x%02X at offset %d is not assigned in windows-1250", e.Byte, e.Offset)
}

// unassigned marks the byte values with no Windows-1250 character.
var unassigned = [256]bool{0x81: true, 0x83: true, 0x88: true, 0x90: true, 0x98: true}

// NewTransformer returns a fresh Windows-1250 → UTF-8 transformer for p.
// Transformers are stateful; use one per stream.
func NewTransformer(p Policy) transform.Transformer {
	dec := charmap.Windows1250.NewDecoder()
	if p == Strict {
		return transform.Chain(&guard{}, dec)
	}
	// The charmap table passes unassigned bytes through as the matching C1
	// control; fold those into the replacement character.
	return transform.Chain(dec, runes.Map(replaceUnassigned))
}

// NewReader wraps r so that reads yield UTF-8. Decoding is incremental; r is
// never buffered in full.
func NewReader(r io.Reader, p Policy) io.Reader {
	return transform.NewReader(r, NewTransformer(p))
}

// Bytes decodes a fully materialized buffer.
func Bytes(b []byte, p Policy) ([]byte, error) {
	out, _, err := transform.Bytes(NewTransformer(p), b)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func replaceUnassigned(r rune) rune {
	if r >= 0x80 && r <= 0xFF && unassigned[r] {
		return utf8.RuneError
	}
	return r
}

// guard copies bytes unchanged and fails on the first unassigned one.
type guard struct {
	off int64
}

func (g *guard) Reset() { g.off = 0 }

func (g *guard) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
		err = transform.ErrShortDst
	}
	for i := 0; i < n; i++ {
		if unassigned[src[i]] {
			copy(dst, src[:i])
			bad := &ByteError{Offset: g.off + int64(i), Byte: src[i]}
			g.off += int64(i)
			return i, i, bad
		}
	}
	copy(dst, src[:n])
	g.off += int64(n)
	return n, n, err
}
