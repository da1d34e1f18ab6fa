// Package postgres provides a PostgreSQL implementation of
// medialocker.Repository backed by pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/echotrails/medialocker/pkg/medialocker"
)

// DBTX allows using either a connection pool or a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements medialocker.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) medialocker.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) medialocker.Repository {
	return &Repository{db: pool}
}

const assetColumns = `
	id, owner, operator, updated_by, storage_key, name, mime_type,
	width, height, size, fingerprint, captured_at, uploaded_at,
	deleted, deleted_at, liked, album_ids, description`

func (r *Repository) CreateAsset(ctx context.Context, asset *medialocker.MediaAsset) error {
	query := `
		INSERT INTO media_asset (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(ctx, query,
		asset.ID, asset.Owner, asset.Operator, asset.UpdatedBy,
		asset.StorageKey, asset.Name, asset.MimeType,
		asset.Width, asset.Height, asset.Size, nullIfEmpty(asset.Fingerprint),
		asset.CapturedAt, asset.UploadedAt,
		asset.Deleted, asset.DeletedAt, asset.Liked,
		asset.AlbumIDs, asset.Description)
	if err != nil {
		return r.handlePostgresError("create asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, owner string, id uuid.UUID) (*medialocker.MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_asset WHERE id = $1 AND owner = $2`

	asset, err := scanAsset(r.db.QueryRow(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, medialocker.ErrAssetNotFound
		}
		return nil, err
	}
	return asset, nil
}

func (r *Repository) GetAssets(ctx context.Context, owner string, ids []uuid.UUID) ([]*medialocker.MediaAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_asset WHERE owner = $1 AND id = ANY($2)`

	rows, err := r.db.Query(ctx, query, owner, ids)
	if err != nil {
		return nil, r.handlePostgresError("get assets", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *medialocker.MediaAsset) error {
	query := `
		UPDATE media_asset SET
			updated_by = $3, width = $4, height = $5, fingerprint = $6,
			deleted = $7, deleted_at = $8, liked = $9, album_ids = $10,
			description = $11
		WHERE id = $1 AND owner = $2`

	tag, err := r.db.Exec(ctx, query,
		asset.ID, asset.Owner, asset.UpdatedBy,
		asset.Width, asset.Height, nullIfEmpty(asset.Fingerprint),
		asset.Deleted, asset.DeletedAt, asset.Liked, asset.AlbumIDs,
		asset.Description)
	if err != nil {
		return r.handlePostgresError("update asset", err)
	}
	if tag.RowsAffected() == 0 {
		return medialocker.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ListAssets(ctx context.Context, owner string, f medialocker.ListFilters) ([]*medialocker.MediaAsset, error) {
	typePrefix := f.TypePrefix
	if typePrefix == "" {
		typePrefix = "image"
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + assetColumns + ` FROM media_asset WHERE owner = $1 AND deleted = $2 AND mime_type LIKE $3`)
	args := []interface{}{owner, f.DeletedOnly, typePrefix + "/%"}

	if f.LikedOnly {
		sb.WriteString(" AND liked")
	}
	if f.AlbumID != "" {
		args = append(args, f.AlbumID)
		fmt.Fprintf(&sb, " AND $%d = ANY(album_ids)", len(args))
	}

	sb.WriteString(" ORDER BY captured_at DESC")

	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, f.PageSize)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		args = append(args, (page-1)*f.PageSize)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, r.handlePostgresError("list assets", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (r *Repository) FindByFingerprint(ctx context.Context, owner, fingerprint string) (*medialocker.MediaAsset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM media_asset
		WHERE owner = $1 AND fingerprint = $2 AND NOT deleted
		ORDER BY uploaded_at ASC
		LIMIT 1`

	asset, err := scanAsset(r.db.QueryRow(ctx, query, owner, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return asset, nil
}

func scanAsset(row pgx.Row) (*medialocker.MediaAsset, error) {
	var asset medialocker.MediaAsset
	var fingerprint *string
	err := row.Scan(
		&asset.ID, &asset.Owner, &asset.Operator, &asset.UpdatedBy,
		&asset.StorageKey, &asset.Name, &asset.MimeType,
		&asset.Width, &asset.Height, &asset.Size, &fingerprint,
		&asset.CapturedAt, &asset.UploadedAt,
		&asset.Deleted, &asset.DeletedAt, &asset.Liked,
		&asset.AlbumIDs, &asset.Description)
	if err != nil {
		return nil, err
	}
	if fingerprint != nil {
		asset.Fingerprint = *fingerprint
	}
	return &asset, nil
}

func collectAssets(rows pgx.Rows) ([]*medialocker.MediaAsset, error) {
	var result []*medialocker.MediaAsset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("storage key already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
