// Package ingest implements the client-side upload pipeline: content
// fingerprinting, metadata resolution through a provider chain, and the
// single-PUT transfer against a presigned URL.
package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize is the read granularity for fingerprinting. Memory use
// is bounded by one chunk regardless of file size.
const DefaultChunkSize = 2 << 20 // 2 MiB

// Hasher computes content fingerprints by streaming a file in fixed-size
// chunks. The fingerprint depends only on the bytes, never on the chunk
// size. Each Sum call owns its hashing state, so separate files may be
// hashed concurrently with separate calls; a single call reads its source
// strictly sequentially.
type Hasher struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int
}

// Sum streams r and returns the hex fingerprint. A failed chunk read aborts
// with the I/O error; the caller abandons the upload rather than retrying.
func (h Hasher) Sum(r io.Reader) (string, error) {
	size := h.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	digest := md5.New()
	buf := make([]byte, size)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read chunk: %w", err)
		}
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// SumFile opens path and fingerprints its contents.
func (h Hasher) SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return h.Sum(f)
}
