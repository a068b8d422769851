// Package file implements a local filesystem-backed archive source.
package file

import (
	"context"
	"fmt"
	"os"

	"ruian/internal/datasource"
)

// Local opens an archive from the local disk.
type Local struct{ path string }

// NewLocal returns a Local source bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the file, stats its size and hints the kernel to read it ahead.
// A canceled ctx short-circuits before touching the filesystem. Filesystem
// errors keep their identity (errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (datasource.Blob, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	b, err := wrap(f)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Blob is an opened local archive.
type Blob struct {
	*os.File
	size int64
}

func wrap(f *os.File) (*Blob, error) {
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory", f.Name())
	}
	// Entries are read largest-first, not in file order: ask for the whole
	// file up front instead of sequential read-ahead.
	adviseWillNeed(f)
	return &Blob{File: f, size: st.Size()}, nil
}

// Size is the file size at open time.
func (b *Blob) Size() int64 { return b.size }
