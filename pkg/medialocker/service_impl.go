package medialocker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type service struct {
	repo  Repository
	links LinkIssuer
	now   func() time.Time
}

func (s *service) IngestAsset(ctx context.Context, req IngestAssetRequest) (*IngestResult, error) {
	if req.Owner == "" {
		return nil, ErrUnauthorized
	}
	if req.StorageKey == "" || req.Name == "" {
		return nil, fmt.Errorf("%w: key and name are required", ErrValidation)
	}

	now := s.now()
	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	asset := &MediaAsset{
		ID:          uuid.New(),
		Owner:       req.Owner,
		Operator:    req.Operator,
		UpdatedBy:   req.Operator,
		StorageKey:  req.StorageKey,
		Name:        req.Name,
		MimeType:    req.MimeType,
		Width:       req.Width,
		Height:      req.Height,
		Size:        req.Size,
		Fingerprint: req.Fingerprint,
		CapturedAt:  capturedAt,
		UploadedAt:  now,
		Liked:       req.Liked,
		AlbumIDs:    req.AlbumIDs,
	}

	// Advisory duplicate lookup, before the write so the pre-existing
	// asset (not the one being saved) is the one reported.
	var existing *MediaAsset
	if req.Fingerprint != "" {
		found, err := s.repo.FindByFingerprint(ctx, req.Owner, req.Fingerprint)
		if err != nil {
			// Fail open: a broken lookup must not block ingestion.
			slog.Warn("duplicate lookup failed", "owner", req.Owner, "error", err)
		} else {
			existing = found
		}
	}

	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: asset.ID, Op: "ingest", Err: err}
	}

	return &IngestResult{
		Asset:       s.view(ctx, asset),
		IsDuplicate: existing != nil,
		Existing:    existing,
	}, nil
}

func (s *service) CheckDuplicate(ctx context.Context, owner, fingerprint string) (*DuplicateCheck, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: fingerprint is required", ErrValidation)
	}

	existing, err := s.repo.FindByFingerprint(ctx, owner, fingerprint)
	if err != nil {
		slog.Warn("duplicate lookup failed", "owner", owner, "error", err)
		return &DuplicateCheck{IsDuplicate: false}, nil
	}

	return &DuplicateCheck{
		IsDuplicate: existing != nil,
		Existing:    existing,
	}, nil
}

func (s *service) UploadURL(ctx context.Context, owner, key string) (string, error) {
	if owner == "" {
		return "", ErrUnauthorized
	}
	if key == "" {
		return "", fmt.Errorf("%w: key is required", ErrValidation)
	}

	url, err := s.links.UploadURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return url, nil
}

func (s *service) ListAssets(ctx context.Context, owner string, filters ListFilters) ([]*AssetView, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}

	assets, err := s.repo.ListAssets(ctx, owner, filters)
	if err != nil {
		return nil, err
	}

	views := make([]*AssetView, 0, len(assets))
	seen := make(map[string]bool)
	for _, asset := range assets {
		v := s.view(ctx, asset)
		if asset.Fingerprint != "" {
			if seen[asset.Fingerprint] {
				v.IsRepeat = true
			}
			seen[asset.Fingerprint] = true
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *service) SummarizeAssets(ctx context.Context, owner string, filters ListFilters) (*ListSummary, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}

	// Summaries cover the whole filtered set, not one page.
	filters.Page = 0
	filters.PageSize = 0

	assets, err := s.repo.ListAssets(ctx, owner, filters)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, asset := range assets {
		total += asset.Size
	}

	summary := &ListSummary{
		Count:      len(assets),
		TotalSize:  total,
		TotalHuman: formatSize(total),
	}
	if len(assets) > 0 {
		summary.AverageSize = formatSize(total / int64(len(assets)))
	}
	return summary, nil
}

func (s *service) UpdateDescription(ctx context.Context, req UpdateDescriptionRequest) error {
	if req.Owner == "" {
		return ErrUnauthorized
	}

	asset, err := s.repo.GetAsset(ctx, req.Owner, req.ID)
	if err != nil {
		return err
	}

	asset.Description = req.Description
	asset.UpdatedBy = req.Operator
	return s.repo.UpdateAsset(ctx, asset)
}

func (s *service) ToggleLike(ctx context.Context, owner, operator string, id uuid.UUID) (bool, error) {
	if owner == "" {
		return false, ErrUnauthorized
	}

	asset, err := s.repo.GetAsset(ctx, owner, id)
	if err != nil {
		return false, err
	}

	asset.Liked = !asset.Liked
	asset.UpdatedBy = operator
	if err := s.repo.UpdateAsset(ctx, asset); err != nil {
		return false, err
	}
	return asset.Liked, nil
}

func (s *service) SetAlbums(ctx context.Context, req SetAlbumsRequest) error {
	if req.Owner == "" {
		return ErrUnauthorized
	}
	if req.AlbumIDs == nil {
		return fmt.Errorf("%w: album ids are required", ErrValidation)
	}

	asset, err := s.repo.GetAsset(ctx, req.Owner, req.ID)
	if err != nil {
		return err
	}

	asset.AlbumIDs = req.AlbumIDs
	asset.UpdatedBy = req.Operator
	return s.repo.UpdateAsset(ctx, asset)
}

func (s *service) AddToAlbums(ctx context.Context, req AddToAlbumsRequest) (*BulkResult, error) {
	if req.Owner == "" {
		return nil, ErrUnauthorized
	}
	if len(req.IDs) == 0 || req.AlbumIDs == nil {
		return nil, fmt.Errorf("%w: ids and album ids are required", ErrValidation)
	}

	assets, err := s.repo.GetAssets(ctx, req.Owner, req.IDs)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, ErrAssetNotFound
	}

	updated := 0
	for _, asset := range assets {
		changed := false
		for _, albumID := range req.AlbumIDs {
			if !slices.Contains(asset.AlbumIDs, albumID) {
				asset.AlbumIDs = append(asset.AlbumIDs, albumID)
				changed = true
			}
		}
		if !changed {
			continue
		}
		asset.UpdatedBy = req.Operator
		if err := s.repo.UpdateAsset(ctx, asset); err != nil {
			slog.Warn("bulk album update skipped asset", "asset_id", asset.ID, "error", err)
			continue
		}
		updated++
	}
	return &BulkResult{Updated: updated}, nil
}

func (s *service) DeleteAssets(ctx context.Context, req DeleteAssetsRequest) (*BulkResult, error) {
	if req.Owner == "" {
		return nil, ErrUnauthorized
	}
	if len(req.IDs) == 0 {
		return nil, fmt.Errorf("%w: ids are required", ErrValidation)
	}

	assets, err := s.repo.GetAssets(ctx, req.Owner, req.IDs)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, ErrAssetNotFound
	}

	now := s.now()
	updated := 0
	for _, asset := range assets {
		if asset.Deleted {
			continue
		}
		asset.Deleted = true
		asset.DeletedAt = &now
		asset.UpdatedBy = req.Operator
		if err := s.repo.UpdateAsset(ctx, asset); err != nil {
			slog.Warn("bulk delete skipped asset", "asset_id", asset.ID, "error", err)
			continue
		}
		updated++
	}
	return &BulkResult{Updated: updated}, nil
}

func (s *service) RestoreAssets(ctx context.Context, req RestoreAssetsRequest) (*BulkResult, error) {
	if req.Owner == "" {
		return nil, ErrUnauthorized
	}
	if len(req.IDs) == 0 {
		return nil, fmt.Errorf("%w: ids are required", ErrValidation)
	}

	assets, err := s.repo.GetAssets(ctx, req.Owner, req.IDs)
	if err != nil {
		return nil, err
	}

	updated := 0
	for _, asset := range assets {
		if !asset.Deleted {
			continue
		}
		// DeletedAt stays set as an audit marker of the earlier delete.
		asset.Deleted = false
		asset.UpdatedBy = req.Operator
		if err := s.repo.UpdateAsset(ctx, asset); err != nil {
			slog.Warn("bulk restore skipped asset", "asset_id", asset.ID, "error", err)
			continue
		}
		updated++
	}
	if updated == 0 {
		return nil, ErrAssetNotFound
	}
	return &BulkResult{Updated: updated}, nil
}

// view attaches read links and the date category to an asset. Link failures
// degrade the view rather than failing the whole listing.
func (s *service) view(ctx context.Context, asset *MediaAsset) *AssetView {
	v := &AssetView{MediaAsset: *asset, Category: dateTitle(s.now(), asset.CapturedAt)}

	var err error
	if v.URL, err = s.links.FileURL(ctx, asset.StorageKey); err != nil {
		slog.Warn("file link issuance failed", "key", asset.StorageKey, "error", err)
	}
	if v.Cover, err = s.links.CoverURL(ctx, asset.StorageKey); err != nil {
		slog.Warn("cover link issuance failed", "key", asset.StorageKey, "error", err)
	}
	if v.Preview, err = s.links.PreviewURL(ctx, asset.StorageKey); err != nil {
		slog.Warn("preview link issuance failed", "key", asset.StorageKey, "error", err)
	}
	return v
}

// dateTitle groups assets by capture day the way the gallery displays them.
func dateTitle(now, captured time.Time) string {
	y, m, d := captured.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	capDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	nowDay := time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())
	// Calendar-day comparison; DST makes some days 23 or 25 hours long.
	switch {
	case nowDay.Equal(capDay):
		return "Today"
	case nowDay.AddDate(0, 0, -1).Equal(capDay):
		return "Yesterday"
	}
	if y == ny {
		return captured.Format("Jan 02")
	}
	return captured.Format("2006-01-02")
}

// formatSize renders a byte count with a binary unit suffix.
func formatSize(size int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	value := float64(size)
	idx := 0
	for value > 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%dB", size)
	}
	return strings.TrimSuffix(fmt.Sprintf("%.2f", value), ".00") + units[idx]
}
