package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	result Metadata
	err    error
}

func (p fakeProvider) Name() string { return p.name }

func (p fakeProvider) Resolve(ctx context.Context, path string) (Metadata, error) {
	return p.result, p.err
}

func TestResolverEarlierProviderWins(t *testing.T) {
	fileTime := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	r := NewResolver(
		fakeProvider{name: "first", result: Metadata{Width: 800, Height: 600, CapturedAt: fileTime}},
		fakeProvider{name: "second", result: Metadata{Width: 100, Height: 100, MimeType: "image/jpeg"}},
	)

	md, err := r.Resolve(context.Background(), "photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, 800, md.Width)
	assert.Equal(t, 600, md.Height)
	assert.Equal(t, "image/jpeg", md.MimeType, "fields missing earlier are filled by later providers")
	assert.Equal(t, fileTime, md.CapturedAt)
}

func TestResolverAuthoritativeCaptureTimeOverrides(t *testing.T) {
	copyTime := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	shotTime := time.Date(2019, 3, 14, 15, 9, 26, 0, time.UTC)

	r := NewResolver(
		fakeProvider{name: "stat", result: Metadata{CapturedAt: copyTime, Size: 42}},
		fakeProvider{name: "tags", result: Metadata{CapturedAt: shotTime, CaptureTimeAuthoritative: true}},
	)

	md, err := r.Resolve(context.Background(), "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, shotTime, md.CapturedAt, "recording tag time replaces the file timestamp")
	assert.True(t, md.CaptureTimeAuthoritative)
	assert.Equal(t, int64(42), md.Size)
}

func TestResolverProviderErrorsAreSwallowed(t *testing.T) {
	r := NewResolver(
		fakeProvider{name: "broken", err: errors.New("no exif block")},
		fakeProvider{name: "stat", result: Metadata{Size: 7, MimeType: "image/png"}},
	)

	md, err := r.Resolve(context.Background(), "photo.png")
	require.NoError(t, err)
	assert.Equal(t, int64(7), md.Size)
	assert.Equal(t, "image/png", md.MimeType)
}

func TestResolverWallClockFallback(t *testing.T) {
	before := time.Now()
	r := NewResolver(
		fakeProvider{name: "partial", result: Metadata{Width: 10, Height: 10}},
	)

	md, err := r.Resolve(context.Background(), "photo.jpg")
	require.NoError(t, err)
	assert.False(t, md.CapturedAt.Before(before))
	assert.False(t, md.CapturedAt.After(time.Now()))
}

func TestResolverAllFailed(t *testing.T) {
	r := NewResolver(
		fakeProvider{name: "a", err: errors.New("nope")},
		fakeProvider{name: "b", err: errors.New("also nope")},
	)

	md, err := r.Resolve(context.Background(), "opaque.bin")
	assert.ErrorIs(t, err, ErrUnresolved)
	assert.False(t, md.CapturedAt.IsZero(), "degraded result still carries the fallback capture time")
}
