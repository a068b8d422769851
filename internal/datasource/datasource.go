// Package datasource defines where archive bytes come from.
//
// The pipeline needs random access to a ZIP central directory, so a Source
// yields a Blob (io.ReaderAt with a known size) rather than a stream.
package datasource

import (
	"context"
	"io"
)

// Blob is an opened, random-access archive. Close releases it; sources that
// staged a temporary copy remove it on Close.
type Blob interface {
	io.ReaderAt
	io.Closer
	Size() int64
	Name() string
}

// Source opens a Blob.
type Source interface {
	Open(ctx context.Context) (Blob, error)
}
