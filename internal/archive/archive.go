// Package archive enumerates the entries of a ZIP container and materializes
// them one at a time.
//
// Stored and deflated entries are supported as in any ZIP reader; Zstandard
// entries (method 93) are registered as well. An Archive holds a single
// io.ReaderAt and is meant to be driven by one goroutine.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrFormat is wrapped by Open when the input is not a ZIP archive.
	ErrFormat = errors.New("not a zip archive")

	// ErrChecksum is returned by ReadAll when an entry's CRC-32 does not match.
	ErrChecksum = zip.ErrChecksum

	// ErrAlgorithm is returned by ReadAll for an unsupported compression method.
	ErrAlgorithm = zip.ErrAlgorithm

	// ErrRange is returned for an entry index outside [0, Len()).
	ErrRange = errors.New("entry index out of range")
)

// Entry describes one member of the archive.
type Entry struct {
	Index          int
	Name           string
	Size           int64 // declared uncompressed size
	CompressedSize int64
	Method         uint16
	dir            bool
}

// IsDir reports whether the entry is a directory marker.
func (e Entry) IsDir() bool { return e.dir }

// Archive is an opened ZIP container.
type Archive struct {
	zr      *zip.Reader
	entries []Entry
}

// Open reads the central directory of the size-byte archive behind r.
func Open(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("open zip: %w: %v", ErrFormat, err)
		}
		return nil, fmt.Errorf("open zip: %w", err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	entries := make([]Entry, len(zr.File))
	for i, f := range zr.File {
		entries[i] = Entry{
			Index:          i,
			Name:           f.Name,
			Size:           int64(f.UncompressedSize64),
			CompressedSize: int64(f.CompressedSize64),
			Method:         f.Method,
			dir:            f.FileInfo().IsDir(),
		}
	}
	return &Archive{zr: zr, entries: entries}, nil
}

// OpenSeeker opens an archive from a seekable source. The size is taken from
// the end offset. Sources that are not also an io.ReaderAt are wrapped so that
// each ReadAt is a locked Seek+Read.
func OpenSeeker(rs io.ReadSeeker) (*Archive, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end: %w", err)
	}
	if ra, ok := rs.(io.ReaderAt); ok {
		return Open(ra, size)
	}
	return Open(&seekReaderAt{rs: rs}, size)
}

// Len is the number of entries in the central directory, directories
// included.
func (a *Archive) Len() int { return len(a.entries) }

// Entry returns the i'th central-directory entry.
func (a *Archive) Entry(i int) Entry { return a.entries[i] }

// Entries returns the file entries, skipping directory markers.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		if !e.dir {
			out = append(out, e)
		}
	}
	return out
}

// ReadAll decompresses entry i completely. The CRC-32 is verified when the
// stream reaches EOF; a mismatch yields ErrChecksum.
func (a *Archive) ReadAll(i int) ([]byte, error) {
	if i < 0 || i >= len(a.entries) {
		return nil, fmt.Errorf("entry %d: %w", i, ErrRange)
	}
	f := a.zr.File[i]
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size is a hint only; cap the pre-allocation.
	var buf bytes.Buffer
	buf.Grow(int(min(f.UncompressedSize64, 64<<20)) + bytes.MinRead)
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read entry %q: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// Head decompresses at most n leading bytes of entry i. No checksum is
// verified unless the whole entry fits in n.
func (a *Archive) Head(i, n int) ([]byte, error) {
	if i < 0 || i >= len(a.entries) {
		return nil, fmt.Errorf("entry %d: %w", i, ErrRange)
	}
	f := a.zr.File[i]
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, int64(max(n, 0))))
	if err != nil {
		return nil, fmt.Errorf("read entry %q: %w", f.Name, err)
	}
	return b, nil
}

// IsCorrupt reports whether err from ReadAll means the archive content is
// damaged or unsupported, as opposed to the underlying reader failing.
func IsCorrupt(err error) bool {
	var ce flate.CorruptInputError
	return errors.Is(err, ErrChecksum) ||
		errors.Is(err, ErrAlgorithm) ||
		errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &ce) ||
		errors.Is(err, zstd.ErrMagicMismatch) ||
		errors.Is(err, zstd.ErrBlockTooSmall)
}

// seekReaderAt serializes ReadAt over a plain io.ReadSeeker.
type seekReaderAt struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(s.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}
