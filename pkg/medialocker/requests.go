package medialocker

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs. Owner and Operator come from the authenticated caller, not
// from the request body.

// IngestAssetRequest contains everything needed to persist a new asset.
// The object bytes must already be written to the storage key by the caller.
type IngestAssetRequest struct {
	Owner       string
	Operator    string
	StorageKey  string
	Name        string
	MimeType    string
	Size        int64
	Width       int
	Height      int
	Fingerprint string // optional; empty means unresolved
	CapturedAt  time.Time
	AlbumIDs    []string
	Liked       bool
}

// UpdateDescriptionRequest replaces an asset's free-text description.
type UpdateDescriptionRequest struct {
	Owner       string
	Operator    string
	ID          uuid.UUID
	Description string
}

// SetAlbumsRequest replaces one asset's collection membership.
type SetAlbumsRequest struct {
	Owner    string
	Operator string
	ID       uuid.UUID
	AlbumIDs []string
}

// AddToAlbumsRequest unions album ids into each resolved asset's
// membership. Already-present ids are not duplicated.
type AddToAlbumsRequest struct {
	Owner    string
	Operator string
	IDs      []uuid.UUID
	AlbumIDs []string
}

// DeleteAssetsRequest soft-deletes the resolved subset of the given ids.
type DeleteAssetsRequest struct {
	Owner    string
	Operator string
	IDs      []uuid.UUID
}

// RestoreAssetsRequest clears the soft-delete flag on the resolved subset.
type RestoreAssetsRequest struct {
	Owner    string
	Operator string
	IDs      []uuid.UUID
}
