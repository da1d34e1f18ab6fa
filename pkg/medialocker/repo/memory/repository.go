// Package memory provides an in-memory implementation of
// medialocker.Repository for tests and zero-configuration runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/echotrails/medialocker/pkg/medialocker"
)

// Repository implements medialocker.Repository using in-memory storage
type Repository struct {
	mu     sync.RWMutex
	assets map[uuid.UUID]*medialocker.MediaAsset
}

// New creates a new in-memory repository
func New() medialocker.Repository {
	return &Repository{
		assets: make(map[uuid.UUID]*medialocker.MediaAsset),
	}
}

func (r *Repository) CreateAsset(ctx context.Context, asset *medialocker.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Copy to avoid external modifications
	assetCopy := cloneAsset(asset)
	r.assets[asset.ID] = assetCopy
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, owner string, id uuid.UUID) (*medialocker.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists || asset.Owner != owner {
		return nil, medialocker.ErrAssetNotFound
	}
	return cloneAsset(asset), nil
}

func (r *Repository) GetAssets(ctx context.Context, owner string, ids []uuid.UUID) ([]*medialocker.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*medialocker.MediaAsset, 0, len(ids))
	for _, id := range ids {
		asset, exists := r.assets[id]
		if !exists || asset.Owner != owner {
			continue
		}
		result = append(result, cloneAsset(asset))
	}
	return result, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *medialocker.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.assets[asset.ID]
	if !exists || current.Owner != asset.Owner {
		return medialocker.ErrAssetNotFound
	}
	r.assets[asset.ID] = cloneAsset(asset)
	return nil
}

func (r *Repository) ListAssets(ctx context.Context, owner string, f medialocker.ListFilters) ([]*medialocker.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typePrefix := f.TypePrefix
	if typePrefix == "" {
		typePrefix = "image"
	}

	var result []*medialocker.MediaAsset
	for _, asset := range r.assets {
		if asset.Owner != owner {
			continue
		}
		if asset.Deleted != f.DeletedOnly {
			continue
		}
		if f.LikedOnly && !asset.Liked {
			continue
		}
		if f.AlbumID != "" && !contains(asset.AlbumIDs, f.AlbumID) {
			continue
		}
		if !strings.HasPrefix(asset.MimeType, typePrefix+"/") {
			continue
		}
		result = append(result, cloneAsset(asset))
	}

	// Sort by capture time descending, newest first
	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt.After(result[j].CapturedAt)
	})

	return paginate(result, f.Page, f.PageSize), nil
}

func (r *Repository) FindByFingerprint(ctx context.Context, owner, fingerprint string) (*medialocker.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var earliest *medialocker.MediaAsset
	for _, asset := range r.assets {
		if asset.Owner != owner || asset.Deleted || asset.Fingerprint != fingerprint {
			continue
		}
		if earliest == nil || asset.UploadedAt.Before(earliest.UploadedAt) {
			earliest = asset
		}
	}
	if earliest == nil {
		return nil, nil
	}
	return cloneAsset(earliest), nil
}

func cloneAsset(asset *medialocker.MediaAsset) *medialocker.MediaAsset {
	assetCopy := *asset
	if asset.AlbumIDs != nil {
		assetCopy.AlbumIDs = append([]string(nil), asset.AlbumIDs...)
	}
	if asset.DeletedAt != nil {
		deletedAt := *asset.DeletedAt
		assetCopy.DeletedAt = &deletedAt
	}
	return &assetCopy
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func paginate(assets []*medialocker.MediaAsset, page, pageSize int) []*medialocker.MediaAsset {
	if pageSize <= 0 {
		return assets
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(assets) {
		return nil
	}
	end := start + pageSize
	if end > len(assets) {
		end = len(assets)
	}
	return assets[start:end]
}
