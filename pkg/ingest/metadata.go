package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Metadata is the best-effort result of resolving one file. Zero values mean
// "not resolved"; callers must tolerate zero dimensions.
type Metadata struct {
	CapturedAt  time.Time
	Width       int
	Height      int
	MimeType    string
	Size        int64
	Fingerprint string

	// CaptureTimeAuthoritative marks a capture time read from embedded
	// recording tags. Tag times reflect the original recording instant
	// rather than a file-copy timestamp, so they replace file times from
	// earlier providers during the merge.
	CaptureTimeAuthoritative bool
}

// Provider is one capability source in the resolution chain. A provider may
// return a complete result, a partial one, or an error; errors are swallowed
// by the resolver and only logged.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, path string) (Metadata, error)
}

// ErrUnresolved is returned when every provider in the chain failed. The
// accompanying Metadata still carries the wall-clock capture fallback and
// may be used; resolution degradation is not a hard error.
var ErrUnresolved = errors.New("metadata unavailable")

// Resolver runs an ordered provider chain and merges results by precedence:
// for each field the earliest provider with a non-empty value wins, except
// that an authoritative capture time replaces earlier file timestamps.
type Resolver struct {
	providers []Provider
	now       func() time.Time
}

// NewResolver builds a resolver over the given chain, in precedence order.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers, now: time.Now}
}

// NewDefaultResolver builds the standard chain: native bridge (when one is
// available), filesystem stat, image decode, embedded tags.
func NewDefaultResolver(bridge NativeBridge) *Resolver {
	chain := make([]Provider, 0, 4)
	if bridge != nil {
		chain = append(chain, &BridgeProvider{Bridge: bridge})
	}
	chain = append(chain, StatProvider{}, DecodeProvider{}, ExifProvider{})
	return NewResolver(chain...)
}

// Resolve merges the chain's answers for path. When no provider yields a
// capture time the current wall clock is used.
func (r *Resolver) Resolve(ctx context.Context, path string) (Metadata, error) {
	var merged Metadata
	failures := 0

	for _, p := range r.providers {
		result, err := p.Resolve(ctx, path)
		if err != nil {
			failures++
			slog.Debug("metadata provider failed", "provider", p.Name(), "path", path, "error", err)
			continue
		}
		merge(&merged, result)
	}

	if merged.CapturedAt.IsZero() {
		merged.CapturedAt = r.now()
	}

	if failures == len(r.providers) {
		return merged, ErrUnresolved
	}
	return merged, nil
}

// merge fills empty fields from result; a value set by an earlier provider
// is never overwritten by a later one, with the single exception of
// authoritative capture times.
func merge(merged *Metadata, result Metadata) {
	if merged.CapturedAt.IsZero() ||
		(result.CaptureTimeAuthoritative && !merged.CaptureTimeAuthoritative && !result.CapturedAt.IsZero()) {
		if !result.CapturedAt.IsZero() {
			merged.CapturedAt = result.CapturedAt
			merged.CaptureTimeAuthoritative = result.CaptureTimeAuthoritative
		}
	}
	if merged.Width == 0 && result.Width > 0 {
		merged.Width = result.Width
	}
	if merged.Height == 0 && result.Height > 0 {
		merged.Height = result.Height
	}
	if merged.MimeType == "" {
		merged.MimeType = result.MimeType
	}
	if merged.Size == 0 {
		merged.Size = result.Size
	}
	if merged.Fingerprint == "" {
		merged.Fingerprint = result.Fingerprint
	}
}
