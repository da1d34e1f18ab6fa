package medialocker

import (
	"time"

	"github.com/google/uuid"
)

// MediaAsset is the persisted record for one uploaded photo or video.
//
// The storage key is unique per asset. Fingerprint is advisory: it is used
// for duplicate detection within one owner's non-deleted assets, never as a
// uniqueness constraint, because an owner may intentionally keep duplicates.
type MediaAsset struct {
	ID          uuid.UUID  `json:"id"`
	Owner       string     `json:"owner"`
	Operator    string     `json:"operator,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
	StorageKey  string     `json:"key"`
	Name        string     `json:"name"`
	MimeType    string     `json:"type"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Size        int64      `json:"size"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	CapturedAt  time.Time  `json:"captured_at"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	Deleted     bool       `json:"deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	Liked       bool       `json:"liked"`
	AlbumIDs    []string   `json:"album_ids,omitempty"`
	Description string     `json:"description,omitempty"`
}

// IsVideo reports whether the asset's declared container type is a video type.
func (a *MediaAsset) IsVideo() bool {
	return len(a.MimeType) >= 6 && a.MimeType[:6] == "video/"
}

// AssetView is a MediaAsset enriched with freshly issued read links.
// Links are computed at response time and never persisted.
type AssetView struct {
	MediaAsset

	URL      string `json:"url,omitempty"`
	Cover    string `json:"cover,omitempty"`
	Preview  string `json:"preview,omitempty"`
	Category string `json:"category,omitempty"`
	IsRepeat bool   `json:"is_repeat,omitempty"`
}

// ListFilters defines filtering and paging for asset listings. All listings
// are additionally scoped to the requesting owner by the service.
type ListFilters struct {
	LikedOnly   bool
	AlbumID     string
	DeletedOnly bool
	TypePrefix  string // e.g. "image" or "video"; empty defaults to "image"
	Page        int
	PageSize    int
}

// DuplicateCheck is the advisory result of a fingerprint lookup.
type DuplicateCheck struct {
	IsDuplicate bool        `json:"isDuplicate"`
	Existing    *MediaAsset `json:"existingAsset,omitempty"`
}

// IngestResult is returned after persisting a new asset. The duplicate
// signal is informational only; the asset is saved regardless.
type IngestResult struct {
	Asset       *AssetView  `json:"asset"`
	IsDuplicate bool        `json:"isDuplicate"`
	Existing    *MediaAsset `json:"existingAsset,omitempty"`
}

// ListSummary aggregates count and byte totals for a filtered listing.
type ListSummary struct {
	Count       int    `json:"count"`
	TotalSize   int64  `json:"total_size"`
	TotalHuman  string `json:"total_human"`
	AverageSize string `json:"average_human,omitempty"`
}

// BulkResult reports how many records a bulk mutation actually touched.
// Ids that did not resolve under the owner are skipped, not failed.
type BulkResult struct {
	Updated int `json:"updated"`
}
