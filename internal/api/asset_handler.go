// Package api exposes the media locker over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/echotrails/medialocker/pkg/medialocker"
)

// AssetHandler handles the ingestion and asset management endpoints.
type AssetHandler struct {
	service medialocker.Service
}

func NewAssetHandler(service medialocker.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

// Routes returns the router for asset endpoints. Callers must have passed
// the token verifier and IdentityMiddleware already.
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/upload-token", h.UploadToken)
	r.Post("/add-info", h.AddInfo)
	r.Get("/list", h.List)
	r.Get("/list-info", h.ListInfo)
	r.Get("/check-duplicate", h.CheckDuplicate)
	r.Put("/description", h.UpdateDescription)
	r.Put("/like", h.ToggleLike)
	r.Put("/albums", h.SetAlbums)
	r.Put("/albums/bulk", h.AddToAlbums)
	r.Delete("/", h.Delete)
	r.Delete("/bulk", h.DeleteBulk)
	r.Put("/restore", h.Restore)
	return r
}

// AddInfoRequest is the body of POST /add-info. The object bytes must
// already be uploaded to Key via the upload-token URL.
type AddInfoRequest struct {
	Key           string                 `json:"key"`
	Name          string                 `json:"name"`
	Type          string                 `json:"type"`
	Size          int64                  `json:"size"`
	Width         int                    `json:"width,omitempty"`
	Height        int                    `json:"height,omitempty"`
	LastModified  int64                  `json:"lastModified"` // epoch millis
	Tags          map[string]interface{} `json:"tags,omitempty"`
	CollectionIDs []string               `json:"collectionIds,omitempty"`
	LikedMode     bool                   `json:"likedMode,omitempty"`
	Fingerprint   string                 `json:"fingerprint,omitempty"`
}

type idRequest struct {
	ID string `json:"id"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// UploadToken issues a write-capable signed URL for a storage key.
func (h *AssetHandler) UploadToken(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	key := r.URL.Query().Get("key")
	if key == "" {
		badRequest(w, r, "key is required")
		return
	}

	url, err := h.service.UploadURL(r.Context(), id.Owner, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"url": url})
}

// AddInfo persists the record for an already-uploaded object.
func (h *AssetHandler) AddInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req AddInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	width := req.Width
	if width == 0 {
		width = intFromTags(req.Tags, "Image Width")
	}
	height := req.Height
	if height == 0 {
		height = intFromTags(req.Tags, "Image Height")
	}

	var capturedAt time.Time
	if req.LastModified > 0 {
		capturedAt = time.UnixMilli(req.LastModified)
	}

	result, err := h.service.IngestAsset(r.Context(), medialocker.IngestAssetRequest{
		Owner:       id.Owner,
		Operator:    id.Operator,
		StorageKey:  req.Key,
		Name:        req.Name,
		MimeType:    req.Type,
		Size:        req.Size,
		Width:       width,
		Height:      height,
		Fingerprint: req.Fingerprint,
		CapturedAt:  capturedAt,
		AlbumIDs:    req.CollectionIDs,
		Liked:       req.LikedMode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	slog.Info("asset ingested", "owner", id.Owner, "key", req.Key, "duplicate", result.IsDuplicate)
	render.JSON(w, r, result)
}

// List returns a page of assets with read links attached.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	views, err := h.service.ListAssets(r.Context(), id.Owner, filtersFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"data": views})
}

// ListInfo returns count and size aggregates for the current filter.
func (h *AssetHandler) ListInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	summary, err := h.service.SummarizeAssets(r.Context(), id.Owner, filtersFromQuery(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// CheckDuplicate reports the advisory duplicate signal for a fingerprint.
func (h *AssetHandler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())
	fingerprint := r.URL.Query().Get("fingerprint")
	if fingerprint == "" {
		badRequest(w, r, "fingerprint is required")
		return
	}

	check, err := h.service.CheckDuplicate(r.Context(), id.Owner, fingerprint)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, check)
}

// UpdateDescription replaces one asset's description.
func (h *AssetHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	assetID, err := uuid.Parse(req.ID)
	if err != nil {
		badRequest(w, r, "invalid asset id")
		return
	}

	if err := h.service.UpdateDescription(r.Context(), medialocker.UpdateDescriptionRequest{
		Owner:       id.Owner,
		Operator:    id.Operator,
		ID:          assetID,
		Description: req.Description,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "updated"})
}

// ToggleLike flips the liked flag and returns the new state.
func (h *AssetHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	assetID, err := uuid.Parse(req.ID)
	if err != nil {
		badRequest(w, r, "invalid asset id")
		return
	}

	liked, err := h.service.ToggleLike(r.Context(), id.Owner, id.Operator, assetID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"liked": liked})
}

// SetAlbums replaces one asset's collection membership.
func (h *AssetHandler) SetAlbums(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req struct {
		ID       string   `json:"id"`
		AlbumIDs []string `json:"albumIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	assetID, err := uuid.Parse(req.ID)
	if err != nil {
		badRequest(w, r, "invalid asset id")
		return
	}

	if err := h.service.SetAlbums(r.Context(), medialocker.SetAlbumsRequest{
		Owner:    id.Owner,
		Operator: id.Operator,
		ID:       assetID,
		AlbumIDs: req.AlbumIDs,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "updated"})
}

// AddToAlbums unions album ids into each resolved asset.
func (h *AssetHandler) AddToAlbums(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req struct {
		IDs      []string `json:"ids"`
		AlbumIDs []string `json:"albumIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	result, err := h.service.AddToAlbums(r.Context(), medialocker.AddToAlbumsRequest{
		Owner:    id.Owner,
		Operator: id.Operator,
		IDs:      ids,
		AlbumIDs: req.AlbumIDs,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Delete soft-deletes a single asset.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	assetID, err := uuid.Parse(req.ID)
	if err != nil {
		badRequest(w, r, "invalid asset id")
		return
	}

	if _, err := h.service.DeleteAssets(r.Context(), medialocker.DeleteAssetsRequest{
		Owner:    id.Owner,
		Operator: id.Operator,
		IDs:      []uuid.UUID{assetID},
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "deleted"})
}

// DeleteBulk soft-deletes the resolved subset of the given ids.
func (h *AssetHandler) DeleteBulk(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req idsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	result, err := h.service.DeleteAssets(r.Context(), medialocker.DeleteAssetsRequest{
		Owner:    id.Owner,
		Operator: id.Operator,
		IDs:      ids,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Restore clears the soft-delete flag on the resolved subset.
func (h *AssetHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFromContext(r.Context())

	var req idsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	result, err := h.service.RestoreAssets(r.Context(), medialocker.RestoreAssetsRequest{
		Owner:    id.Owner,
		Operator: id.Operator,
		IDs:      ids,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func filtersFromQuery(r *http.Request) medialocker.ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize == 0 {
		pageSize = 20
	}
	return medialocker.ListFilters{
		LikedOnly:   q.Get("likedMode") == "true",
		AlbumID:     q.Get("collectionId"),
		DeletedOnly: q.Get("deletedOnly") == "true",
		TypePrefix:  q.Get("type"),
		Page:        page,
		PageSize:    pageSize,
	}
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, errors.New("ids are required")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			// Unresolvable ids are skipped, not failed; the bulk
			// operation acts on the subset that parses.
			slog.Warn("skipping invalid asset id", "id", s)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no valid ids")
	}
	return ids, nil
}

func intFromTags(tags map[string]interface{}, key string) int {
	if tags == nil {
		return 0
	}
	switch v := tags[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (h *AssetHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, medialocker.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, medialocker.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, medialocker.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, medialocker.ErrSigning):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": msg})
}
