package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"ruian/internal/datasource"
)

// Remote is a datasource.Source for an archive behind a URL.
type Remote struct {
	client *Client
	url    string
	dir    string // temp dir; "" means os.TempDir()
}

// NewRemote returns a Remote that downloads url with c. The download is
// staged under dir.
func NewRemote(c *Client, url, dir string) *Remote {
	return &Remote{client: c, url: url, dir: dir}
}

// Open downloads the archive to a temporary file. Closing the returned Blob
// removes the file.
func (r *Remote) Open(ctx context.Context) (datasource.Blob, error) {
	resp, err := r.client.Get(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", r.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: %w", r.url, &StatusError{Code: resp.StatusCode})
	}

	f, err := os.CreateTemp(r.dir, "*-"+SafeFilenameFromURL(r.url))
	if err != nil {
		return nil, fmt.Errorf("stage download: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("download %s: %w", r.url, err)
	}
	return &tempBlob{File: f, size: n}, nil
}

// StatusError is a final non-200 response.
type StatusError struct{ Code int }

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

type tempBlob struct {
	*os.File
	size int64
}

func (b *tempBlob) Size() int64 { return b.size }

func (b *tempBlob) Close() error {
	err := b.File.Close()
	if rerr := os.Remove(b.File.Name()); err == nil {
		err = rerr
	}
	return err
}
