package medialocker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Service is the ingestion and query surface of the media locker. Every
// operation is scoped to the owner carried in the request.
type Service interface {
	// IngestAsset persists a new asset record and runs the advisory
	// duplicate lookup. The record is saved regardless of the outcome.
	IngestAsset(ctx context.Context, req IngestAssetRequest) (*IngestResult, error)

	// CheckDuplicate looks up the earliest non-deleted asset with the
	// given fingerprint for this owner.
	CheckDuplicate(ctx context.Context, owner, fingerprint string) (*DuplicateCheck, error)

	// UploadURL issues a write-capable signed URL for a storage key.
	UploadURL(ctx context.Context, owner, key string) (string, error)

	// ListAssets returns a page of assets with read links attached.
	ListAssets(ctx context.Context, owner string, filters ListFilters) ([]*AssetView, error)

	// SummarizeAssets aggregates count and size totals for a filter.
	SummarizeAssets(ctx context.Context, owner string, filters ListFilters) (*ListSummary, error)

	UpdateDescription(ctx context.Context, req UpdateDescriptionRequest) error
	ToggleLike(ctx context.Context, owner, operator string, id uuid.UUID) (bool, error)
	SetAlbums(ctx context.Context, req SetAlbumsRequest) error
	AddToAlbums(ctx context.Context, req AddToAlbumsRequest) (*BulkResult, error)
	DeleteAssets(ctx context.Context, req DeleteAssetsRequest) (*BulkResult, error)
	RestoreAssets(ctx context.Context, req RestoreAssetsRequest) (*BulkResult, error)
}

// Repository abstracts persistence of MediaAsset records.
type Repository interface {
	CreateAsset(ctx context.Context, asset *MediaAsset) error
	GetAsset(ctx context.Context, owner string, id uuid.UUID) (*MediaAsset, error)

	// GetAssets resolves an owner-scoped subset; unknown ids are skipped.
	GetAssets(ctx context.Context, owner string, ids []uuid.UUID) ([]*MediaAsset, error)

	UpdateAsset(ctx context.Context, asset *MediaAsset) error
	ListAssets(ctx context.Context, owner string, filters ListFilters) ([]*MediaAsset, error)

	// FindByFingerprint returns the earliest-uploaded non-deleted asset
	// with the fingerprint, or (nil, nil) when there is none.
	FindByFingerprint(ctx context.Context, owner, fingerprint string) (*MediaAsset, error)
}

// LinkIssuer converts storage keys into time-limited access URLs.
// Implemented by the links package.
type LinkIssuer interface {
	FileURL(ctx context.Context, key string) (string, error)
	CoverURL(ctx context.Context, key string) (string, error)
	PreviewURL(ctx context.Context, key string) (string, error)
	UploadURL(ctx context.Context, key string) (string, error)
}

// Option configures the service
type Option func(*service)

// WithRepository sets the asset repository
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithLinkIssuer sets the link issuer used to attach read links
func WithLinkIssuer(issuer LinkIssuer) Option {
	return func(s *service) {
		s.links = issuer
	}
}

// WithClock overrides the time source (used in tests)
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new media locker service. A repository and a link issuer
// are required.
func New(opts ...Option) (Service, error) {
	s := &service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo == nil {
		return nil, errors.New("repository is required")
	}
	if s.links == nil {
		return nil, errors.New("link issuer is required")
	}
	return s, nil
}
