package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProgressFunc observes transfer progress. It is called on each write tick
// with the running byte count; it must not block.
type ProgressFunc func(written, total int64)

// Uploader performs the single PUT of file bytes against a presigned write
// URL. There is no chunked or resumable transfer; abandoning an upload means
// the caller stops awaiting it.
type Uploader struct {
	Client *http.Client
}

// Put streams body to url. A non-2xx response is an error.
func (u *Uploader) Put(ctx context.Context, url string, body io.Reader, size int64, mimeType string, progress ProgressFunc) error {
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}

	reader := body
	if progress != nil {
		reader = &progressReader{r: body, total: size, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if mimeType != "" {
		req.Header.Set("Content-Type", mimeType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload rejected: %s", resp.Status)
	}
	return nil
}

type progressReader struct {
	r       io.Reader
	total   int64
	written int64
	fn      ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.fn(p.written, p.total)
	}
	return n, err
}
