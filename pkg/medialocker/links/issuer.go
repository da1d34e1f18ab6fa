// Package links turns storage keys into time-limited access URLs.
//
// Read links are issued either by asking the object-store provider to sign a
// GET (the provider strategy) or by computing a keyed token against a public
// CDN domain (the token strategy, no provider round-trip). Issued read links
// are cached with a TTL strictly shorter than their real validity so a cached
// entry never outlives the credential it represents.
package links

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ProviderSigner is the part of the object-store backend the issuer needs.
type ProviderSigner interface {
	// SignGet returns a read-capable URL for the (possibly styled) key.
	SignGet(ctx context.Context, key string, expires time.Duration) (string, error)

	// SignPut returns a write-capable URL for the key.
	SignPut(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Config holds issuance parameters. Styles name the provider-side
// transformation variants appended to keys as "key!style:<name>".
type Config struct {
	CoverStyle   string
	PreviewStyle string
	AlbumStyle   string

	// CDNDomain plus CDNSecret enable the token strategy for read links.
	CDNDomain string
	CDNSecret string

	// ReadValidity is the real validity window of read links (default 30m).
	ReadValidity time.Duration
	// CacheTTL must be strictly shorter than ReadValidity (default 20m).
	CacheTTL time.Duration
	// UploadValidity is the write-URL window (default 60m). Never cached.
	UploadValidity time.Duration

	// CacheSize bounds the link cache (default 4096 entries).
	CacheSize int
}

const (
	defaultReadValidity   = 30 * time.Minute
	defaultCacheTTL       = 20 * time.Minute
	defaultUploadValidity = 60 * time.Minute
	defaultCacheSize      = 4096
)

// Issuer issues and caches signed access URLs. Credential rotation swaps the
// signer and purges the whole cache in one step; per-entry invalidation is
// not safe across a rotation.
type Issuer struct {
	mu     sync.RWMutex
	signer ProviderSigner
	// gen counts rotations. A sign result is only cached if no rotation
	// happened while it was in flight.
	gen   uint64
	cfg   Config
	cache *expirable.LRU[string, string]
	now   func() time.Time
}

// NewIssuer creates an Issuer. The cache TTL must be strictly shorter than
// the read validity window.
func NewIssuer(signer ProviderSigner, cfg Config) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("provider signer is required")
	}
	if cfg.ReadValidity == 0 {
		cfg.ReadValidity = defaultReadValidity
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.UploadValidity == 0 {
		cfg.UploadValidity = defaultUploadValidity
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.CacheTTL >= cfg.ReadValidity {
		return nil, fmt.Errorf("cache TTL %v must be shorter than read validity %v", cfg.CacheTTL, cfg.ReadValidity)
	}
	if cfg.CDNDomain != "" && cfg.CDNSecret == "" {
		return nil, errors.New("CDN domain configured without a secret")
	}

	return &Issuer{
		signer: signer,
		cfg:    cfg,
		cache:  expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
		now:    time.Now,
	}, nil
}

// FileURL issues a read link for the raw object.
func (i *Issuer) FileURL(ctx context.Context, key string) (string, error) {
	return i.signedURL(ctx, key, "")
}

// CoverURL issues a read link for the cover-styled rendition.
func (i *Issuer) CoverURL(ctx context.Context, key string) (string, error) {
	return i.signedURL(ctx, key, i.cfg.CoverStyle)
}

// PreviewURL issues a read link for the preview-styled rendition.
func (i *Issuer) PreviewURL(ctx context.Context, key string) (string, error) {
	return i.signedURL(ctx, key, i.cfg.PreviewStyle)
}

// AlbumURL issues a read link for the album-styled rendition.
func (i *Issuer) AlbumURL(ctx context.Context, key string) (string, error) {
	return i.signedURL(ctx, key, i.cfg.AlbumStyle)
}

// UploadURL issues a write-capable URL. Upload URLs are single-purpose and
// bypass the cache.
func (i *Issuer) UploadURL(ctx context.Context, key string) (string, error) {
	i.mu.RLock()
	signer := i.signer
	validity := i.cfg.UploadValidity
	i.mu.RUnlock()

	return signer.SignPut(ctx, key, validity)
}

// RotateCredentials installs a signer built from new credentials and purges
// the cache. URLs signed under the old credential must not be served past
// rotation.
func (i *Issuer) RotateCredentials(signer ProviderSigner) error {
	if signer == nil {
		return errors.New("provider signer is required")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.signer = signer
	i.gen++
	i.cache.Purge()
	return nil
}

// signedURL is the keyed-variant primitive all read issuance goes through.
// A concurrent miss on the same key at worst signs twice; signing is
// idempotent so that race is tolerated rather than serialized. A sign that
// straddles a rotation may still return its pre-rotation URL to the caller,
// but the generation check keeps it out of the cache: nothing signed under
// rotated-out credentials survives the purge.
func (i *Issuer) signedURL(ctx context.Context, key, style string) (string, error) {
	cacheKey := key
	if style != "" {
		cacheKey = key + "!" + style
	}

	i.mu.RLock()
	if url, ok := i.cache.Get(cacheKey); ok {
		i.mu.RUnlock()
		return url, nil
	}
	signer := i.signer
	gen := i.gen
	i.mu.RUnlock()

	url, err := i.issue(ctx, signer, styledKey(key, style))
	if err != nil {
		return "", err
	}

	i.mu.RLock()
	if i.gen == gen {
		i.cache.Add(cacheKey, url)
	}
	i.mu.RUnlock()
	return url, nil
}

func (i *Issuer) issue(ctx context.Context, signer ProviderSigner, key string) (string, error) {
	if i.cfg.CDNDomain != "" {
		return i.tokenURL(key), nil
	}
	return signer.SignGet(ctx, key, i.cfg.ReadValidity)
}

// styledKey appends the provider-side transformation suffix.
func styledKey(key, style string) string {
	if style == "" {
		return key
	}
	return fmt.Sprintf("%s!style:%s", key, style)
}
