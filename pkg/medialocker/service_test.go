package medialocker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echotrails/medialocker/pkg/medialocker"
	"github.com/echotrails/medialocker/pkg/medialocker/links"
	memoryrepo "github.com/echotrails/medialocker/pkg/medialocker/repo/memory"
	memorystorage "github.com/echotrails/medialocker/pkg/medialocker/storage/memory"
)

func newTestService(t *testing.T, opts ...medialocker.Option) medialocker.Service {
	t.Helper()

	issuer, err := links.NewIssuer(memorystorage.New(), links.Config{
		CoverStyle:   "cover",
		PreviewStyle: "preview",
	})
	require.NoError(t, err)

	base := []medialocker.Option{
		medialocker.WithRepository(memoryrepo.New()),
		medialocker.WithLinkIssuer(issuer),
	}
	svc, err := medialocker.New(append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func ingest(t *testing.T, svc medialocker.Service, req medialocker.IngestAssetRequest) *medialocker.IngestResult {
	t.Helper()
	if req.Owner == "" {
		req.Owner = "alice"
	}
	if req.MimeType == "" {
		req.MimeType = "image/jpeg"
	}
	result, err := svc.IngestAsset(context.Background(), req)
	require.NoError(t, err)
	return result
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := medialocker.New()
	assert.Error(t, err)

	_, err = medialocker.New(medialocker.WithRepository(memoryrepo.New()))
	assert.Error(t, err)
}

func TestIngestAsset(t *testing.T) {
	svc := newTestService(t)

	result := ingest(t, svc, medialocker.IngestAssetRequest{
		Operator:   "phone",
		StorageKey: "media/alice/phone/2025-07-10/a.jpg",
		Name:       "a.jpg",
		Size:       1024,
		Width:      800,
		Height:     600,
	})

	assert.False(t, result.IsDuplicate)
	assert.NotEmpty(t, result.Asset.ID)
	assert.Equal(t, "alice", result.Asset.Owner)
	assert.Equal(t, "phone", result.Asset.Operator)
	assert.NotEmpty(t, result.Asset.URL, "read link is attached on ingest")
	assert.NotEmpty(t, result.Asset.Cover)
}

func TestIngestAssetValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.IngestAsset(ctx, medialocker.IngestAssetRequest{StorageKey: "k", Name: "n"})
	assert.ErrorIs(t, err, medialocker.ErrUnauthorized)

	_, err = svc.IngestAsset(ctx, medialocker.IngestAssetRequest{Owner: "alice", Name: "n"})
	assert.ErrorIs(t, err, medialocker.ErrValidation)

	_, err = svc.IngestAsset(ctx, medialocker.IngestAssetRequest{Owner: "alice", StorageKey: "k"})
	assert.ErrorIs(t, err, medialocker.ErrValidation)
}

func TestDuplicateDetectionIsAdvisory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey:  "media/alice/first.jpg",
		Name:        "first.jpg",
		Fingerprint: "abc123",
	})
	require.False(t, first.IsDuplicate)

	second := ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey:  "media/alice/second.jpg",
		Name:        "second.jpg",
		Fingerprint: "abc123",
	})

	assert.True(t, second.IsDuplicate)
	require.NotNil(t, second.Existing)
	assert.Equal(t, first.Asset.ID, second.Existing.ID, "the earlier asset is the one reported")

	// Both records exist; the duplicate signal never blocks the save.
	check, err := svc.CheckDuplicate(ctx, "alice", "abc123")
	require.NoError(t, err)
	assert.True(t, check.IsDuplicate)

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestDuplicateScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ingest(t, svc, medialocker.IngestAssetRequest{
		Owner:       "alice",
		StorageKey:  "media/alice/a.jpg",
		Name:        "a.jpg",
		Fingerprint: "shared",
	})

	check, err := svc.CheckDuplicate(ctx, "bob", "shared")
	require.NoError(t, err)
	assert.False(t, check.IsDuplicate, "fingerprints never match across owners")
}

func TestListMarksRepeats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey:  "media/alice/a.jpg",
		Name:        "a.jpg",
		Fingerprint: "same",
		CapturedAt:  time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
	})
	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey:  "media/alice/b.jpg",
		Name:        "b.jpg",
		Fingerprint: "same",
		CapturedAt:  time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC),
	})

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.False(t, views[0].IsRepeat, "first occurrence in the page is not a repeat")
	assert.True(t, views[1].IsRepeat)
}

func TestDeleteAndRestoreFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result := ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/a.jpg",
		Name:       "a.jpg",
	})
	id := result.Asset.ID

	deleted, err := svc.DeleteAssets(ctx, medialocker.DeleteAssetsRequest{
		Owner: "alice", Operator: "phone", IDs: []uuid.UUID{id},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted.Updated)

	// Gone from the default listing, present in the recycle bin.
	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, views)

	binned, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{DeletedOnly: true})
	require.NoError(t, err)
	require.Len(t, binned, 1)
	assert.NotNil(t, binned[0].DeletedAt)

	// Deleting again touches nothing.
	deleted, err = svc.DeleteAssets(ctx, medialocker.DeleteAssetsRequest{
		Owner: "alice", IDs: []uuid.UUID{id},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted.Updated)

	restored, err := svc.RestoreAssets(ctx, medialocker.RestoreAssetsRequest{
		Owner: "alice", Operator: "phone", IDs: []uuid.UUID{id},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Updated)

	views, err = svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.NotNil(t, views[0].DeletedAt, "restore keeps the deletion timestamp as an audit marker")
	assert.False(t, views[0].Deleted)

	// Restoring a live asset resolves nothing.
	_, err = svc.RestoreAssets(ctx, medialocker.RestoreAssetsRequest{
		Owner: "alice", IDs: []uuid.UUID{id},
	})
	assert.ErrorIs(t, err, medialocker.ErrAssetNotFound)
}

func TestBulkAlbumUnion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/a.jpg", Name: "a.jpg", AlbumIDs: []string{"c1"},
	})
	b := ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/b.jpg", Name: "b.jpg",
	})

	result, err := svc.AddToAlbums(ctx, medialocker.AddToAlbumsRequest{
		Owner:    "alice",
		Operator: "phone",
		IDs:      []uuid.UUID{a.Asset.ID, b.Asset.ID},
		AlbumIDs: []string{"c1", "c2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{AlbumID: "c2"})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	for _, v := range views {
		assert.ElementsMatch(t, []string{"c1", "c2"}, v.AlbumIDs, "album ids are unioned, never duplicated")
	}
}

func TestMutationsScopedToOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result := ingest(t, svc, medialocker.IngestAssetRequest{
		Owner: "alice", StorageKey: "media/alice/a.jpg", Name: "a.jpg",
	})

	err := svc.UpdateDescription(ctx, medialocker.UpdateDescriptionRequest{
		Owner: "bob", ID: result.Asset.ID, Description: "mine now",
	})
	assert.ErrorIs(t, err, medialocker.ErrAssetNotFound)

	_, err = svc.DeleteAssets(ctx, medialocker.DeleteAssetsRequest{
		Owner: "bob", IDs: []uuid.UUID{result.Asset.ID},
	})
	assert.ErrorIs(t, err, medialocker.ErrAssetNotFound)
}

func TestToggleLike(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result := ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/a.jpg", Name: "a.jpg",
	})

	liked, err := svc.ToggleLike(ctx, "alice", "phone", result.Asset.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{LikedOnly: true})
	require.NoError(t, err)
	assert.Len(t, views, 1)

	liked, err = svc.ToggleLike(ctx, "alice", "phone", result.Asset.ID)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestUpdateDescriptionStampsOperator(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result := ingest(t, svc, medialocker.IngestAssetRequest{
		Operator: "phone", StorageKey: "media/alice/a.jpg", Name: "a.jpg",
	})

	err := svc.UpdateDescription(ctx, medialocker.UpdateDescriptionRequest{
		Owner: "alice", Operator: "tablet", ID: result.Asset.ID, Description: "sunset",
	})
	require.NoError(t, err)

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "sunset", views[0].Description)
	assert.Equal(t, "tablet", views[0].UpdatedBy)
}

func TestSummarizeAssets(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/a.jpg", Name: "a.jpg", Size: 2048,
	})
	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/b.jpg", Name: "b.jpg", Size: 1024,
	})

	// Summaries ignore paging and cover the whole filtered set.
	summary, err := svc.SummarizeAssets(ctx, "alice", medialocker.ListFilters{Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, int64(3072), summary.TotalSize)
	assert.Equal(t, "3KB", summary.TotalHuman)
}

func TestListCategoryTitles(t *testing.T) {
	now := time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, medialocker.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/today.jpg", Name: "today.jpg",
		CapturedAt: now.Add(-2 * time.Hour),
	})
	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/yesterday.jpg", Name: "yesterday.jpg",
		CapturedAt: now.Add(-24 * time.Hour),
	})
	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/spring.jpg", Name: "spring.jpg",
		CapturedAt: time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
	})
	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/old.jpg", Name: "old.jpg",
		CapturedAt: time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC),
	})

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	require.Len(t, views, 4)

	// Newest first.
	assert.Equal(t, "Today", views[0].Category)
	assert.Equal(t, "Yesterday", views[1].Category)
	assert.Equal(t, "Mar 02", views[2].Category)
	assert.Equal(t, "2023-12-31", views[3].Category)
}

func TestListCategoryTitlesAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Nov 2, 2025 is a 25-hour day there; the day after it must still read
	// as yesterday.
	now := time.Date(2025, 11, 3, 9, 0, 0, 0, loc)
	svc := newTestService(t, medialocker.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	ingest(t, svc, medialocker.IngestAssetRequest{
		StorageKey: "media/alice/fallback.jpg", Name: "fallback.jpg",
		CapturedAt: time.Date(2025, 11, 2, 9, 0, 0, 0, loc),
	})

	views, err := svc.ListAssets(ctx, "alice", medialocker.ListFilters{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Yesterday", views[0].Category)
}

func TestUploadURL(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	url, err := svc.UploadURL(ctx, "alice", "media/alice/a.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	_, err = svc.UploadURL(ctx, "", "media/alice/a.jpg")
	assert.ErrorIs(t, err, medialocker.ErrUnauthorized)

	_, err = svc.UploadURL(ctx, "alice", "")
	assert.ErrorIs(t, err, medialocker.ErrValidation)
}
