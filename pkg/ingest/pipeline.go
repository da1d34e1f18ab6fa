package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/echotrails/medialocker/pkg/medialocker/keys"
)

// UploadDescriptor is the transient, client-only state of one upload
// attempt. It is never persisted as-is; the server receives only the
// storage key, the resolved metadata, and the fingerprint.
type UploadDescriptor struct {
	Path        string
	Name        string
	StorageKey  string
	Metadata    Metadata
	Fingerprint string
	CoverFrame  []byte
}

// Pipeline ties the hasher, the metadata resolver, and the key builder into
// the preparation step that runs before any network traffic.
type Pipeline struct {
	Hasher   Hasher
	Resolver *Resolver
	Keys     *keys.Builder
	Bridge   NativeBridge
}

// Prepare fingerprints and resolves path, then derives the storage key for
// the given identity. Hashing is independent of metadata, so both run
// concurrently; each file gets its own hasher state. A hash I/O failure
// abandons the attempt, while metadata degradation does not.
func (p *Pipeline) Prepare(ctx context.Context, owner, operator, path string) (*UploadDescriptor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var (
		wg          sync.WaitGroup
		fingerprint string
		hashErr     error
		md          Metadata
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fingerprint, hashErr = p.Hasher.SumFile(path)
	}()
	go func() {
		defer wg.Done()
		// Degraded resolution still yields usable metadata.
		md, _ = p.Resolver.Resolve(ctx, path)
	}()
	wg.Wait()

	if hashErr != nil {
		return nil, hashErr
	}

	if md.Fingerprint == "" {
		md.Fingerprint = fingerprint
	}

	desc := &UploadDescriptor{
		Path:        path,
		Name:        filepath.Base(path),
		Metadata:    md,
		Fingerprint: fingerprint,
	}

	if videoMime(md.MimeType) && p.Bridge != nil {
		if info, err := p.Bridge.FileInfo(ctx, path); err == nil {
			desc.CoverFrame = info.CoverFrame
		}
	}

	capturedAt := md.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	desc.StorageKey = p.Keys.Key(owner, operator, desc.Name, md.MimeType, capturedAt)

	return desc, nil
}
