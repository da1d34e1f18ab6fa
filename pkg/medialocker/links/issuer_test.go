package links

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echotrails/medialocker/pkg/medialocker/storage/memory"
)

func newTestIssuer(t *testing.T, cfg Config) (*Issuer, *memory.Backend) {
	t.Helper()
	backend := memory.New()
	issuer, err := NewIssuer(backend, cfg)
	require.NoError(t, err)
	return issuer, backend
}

func TestNewIssuerValidation(t *testing.T) {
	backend := memory.New()

	_, err := NewIssuer(nil, Config{})
	assert.Error(t, err)

	_, err = NewIssuer(backend, Config{ReadValidity: 10 * time.Minute, CacheTTL: 10 * time.Minute})
	assert.Error(t, err, "cache TTL equal to validity must be rejected")

	_, err = NewIssuer(backend, Config{ReadValidity: 10 * time.Minute, CacheTTL: 15 * time.Minute})
	assert.Error(t, err)

	_, err = NewIssuer(backend, Config{CDNDomain: "cdn.example.com"})
	assert.Error(t, err, "CDN domain without a secret must be rejected")
}

func TestReadLinkCacheHit(t *testing.T) {
	issuer, backend := newTestIssuer(t, Config{})
	ctx := context.Background()

	first, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	second, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), backend.SignCalls(), "second issuance must come from the cache")
}

func TestReadLinkCacheExpiry(t *testing.T) {
	issuer, backend := newTestIssuer(t, Config{
		ReadValidity: time.Second,
		CacheTTL:     50 * time.Millisecond,
	})
	ctx := context.Background()

	first, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)

	second, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "expired entry must trigger a fresh issuance")
	assert.Equal(t, int64(2), backend.SignCalls())
}

func TestStyledVariantsCachedSeparately(t *testing.T) {
	issuer, backend := newTestIssuer(t, Config{CoverStyle: "cover", PreviewStyle: "preview", AlbumStyle: "album"})
	ctx := context.Background()

	file, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	cover, err := issuer.CoverURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	preview, err := issuer.PreviewURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	album, err := issuer.AlbumURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, file, cover)
	assert.NotEqual(t, cover, preview)
	assert.NotEqual(t, preview, album)
	assert.Contains(t, cover, "!style:cover")
	assert.Contains(t, preview, "!style:preview")
	assert.Contains(t, album, "!style:album")
	assert.Equal(t, int64(4), backend.SignCalls())

	// Repeating any variant hits its own cache entry.
	again, err := issuer.CoverURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, cover, again)
	assert.Equal(t, int64(4), backend.SignCalls())
}

func TestUploadURLNeverCached(t *testing.T) {
	issuer, backend := newTestIssuer(t, Config{})
	ctx := context.Background()

	first, err := issuer.UploadURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	second, err := issuer.UploadURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int64(2), backend.SignCalls())
	assert.True(t, strings.HasPrefix(first, "memory://put/"))
}

func TestRotateCredentialsPurgesCache(t *testing.T) {
	issuer, oldBackend := newTestIssuer(t, Config{})
	ctx := context.Background()

	cached, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	newBackend := memory.New()
	require.NoError(t, issuer.RotateCredentials(newBackend))

	fresh, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)

	assert.NotEqual(t, cached, fresh, "a URL signed before rotation must not be served after it")
	assert.Equal(t, int64(1), oldBackend.SignCalls())
	assert.Equal(t, int64(1), newBackend.SignCalls(), "post-rotation issuance goes to the new signer")

	assert.Error(t, issuer.RotateCredentials(nil))
}

// gatedSigner blocks inside SignGet until released, so a rotation can be
// interleaved with an in-flight signing call.
type gatedSigner struct {
	entered chan struct{}
	release chan struct{}
	prefix  string
}

func (s *gatedSigner) SignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.prefix + key, nil
}

func (s *gatedSigner) SignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	return s.prefix + key, nil
}

func TestRotationDiscardsInFlightSignatures(t *testing.T) {
	old := &gatedSigner{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		prefix:  "memory://old-credential/",
	}
	issuer, err := NewIssuer(old, Config{})
	require.NoError(t, err)
	ctx := context.Background()

	inFlight := make(chan string, 1)
	go func() {
		url, err := issuer.FileURL(ctx, "media/alice/a.jpg")
		if err != nil {
			inFlight <- "error: " + err.Error()
			return
		}
		inFlight <- url
	}()

	// Rotate while the first signing call is blocked inside the signer.
	<-old.entered
	newBackend := memory.New()
	require.NoError(t, issuer.RotateCredentials(newBackend))
	close(old.release)

	// The straddling call may still hand its pre-rotation URL to its own
	// caller; that result must not land in the cache.
	stale := <-inFlight
	assert.Equal(t, "memory://old-credential/media/alice/a.jpg", stale)

	fresh, err := issuer.FileURL(ctx, "media/alice/a.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, stale, fresh, "old-credential URL must not be served after rotation")
	assert.True(t, strings.HasPrefix(fresh, "memory://get/"))
	assert.Equal(t, int64(1), newBackend.SignCalls())
}

func TestTokenURL(t *testing.T) {
	issuer, backend := newTestIssuer(t, Config{
		CDNDomain: "cdn.example.com",
		CDNSecret: "s3cret",
	})
	ctx := context.Background()

	link, err := issuer.FileURL(ctx, "media/alice/my photo.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://cdn.example.com/media/alice/my%20photo.jpg?"))
	assert.Equal(t, int64(0), backend.SignCalls(), "token links never hit the provider")

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	require.NoError(t, err)

	path := "/media/alice/my photo.jpg"
	assert.True(t, ValidateToken([]byte("s3cret"), path, token, expires, time.Now().Unix()))
	assert.False(t, ValidateToken([]byte("wrong"), path, token, expires, time.Now().Unix()))
	assert.False(t, ValidateToken([]byte("s3cret"), path, token, expires, expires+1),
		"expired tokens must fail validation")
	assert.False(t, ValidateToken([]byte("s3cret"), "/media/alice/other.jpg", token, expires, time.Now().Unix()))
}
