// Package catalog is the PostgreSQL-backed store for tenants, folders,
// origin servers, and asset records.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamvault/mediagate/internal/db"
)

// ErrNotFound is returned when a tenant, folder, or asset row does not exist.
var ErrNotFound = errors.New("catalog: not found")

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("service", "catalog")),
	}
}

// FolderForTenant returns the folder identified by folderID, verifying that it
// belongs to the tenant with the given login.
func (s *Store) FolderForTenant(ctx context.Context, tenantLogin, folderID string) (Folder, error) {
	pgID, err := db.ParseUUID(folderID)
	if err != nil {
		return Folder{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
		SELECT f.id, f.tenant_id, t.login, f.name, f.capacity_mb, f.used_mb
		FROM folders f
		JOIN tenants t ON t.id = f.tenant_id
		WHERE f.id = $1 AND t.login = $2`,
		pgID, strings.TrimSpace(tenantLogin))
	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Folder{}, ErrNotFound
		}
		return Folder{}, fmt.Errorf("query folder: %w", err)
	}
	return folder, nil
}

// OriginForTenant returns the origin server assigned to the tenant.
// ErrNotFound covers both an unknown tenant and a tenant with no assignment.
func (s *Store) OriginForTenant(ctx context.Context, tenantLogin string) (OriginServer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT o.id, o.address, o.admin_user, o.admin_password, o.ssh_port
		FROM tenants t
		JOIN origin_servers o ON o.id = t.origin_server_id
		WHERE t.login = $1`,
		strings.TrimSpace(tenantLogin))
	var (
		id     pgtype.UUID
		origin OriginServer
	)
	if err := row.Scan(&id, &origin.Address, &origin.AdminUser, &origin.AdminPassword, &origin.SSHPort); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OriginServer{}, ErrNotFound
		}
		return OriginServer{}, fmt.Errorf("query origin: %w", err)
	}
	origin.ID = db.UUIDToString(id)
	return origin, nil
}

// GetOriginServer returns an origin server by its identifier.
func (s *Store) GetOriginServer(ctx context.Context, serverID string) (OriginServer, error) {
	pgID, err := db.ParseUUID(serverID)
	if err != nil {
		return OriginServer{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, address, admin_user, admin_password, ssh_port
		FROM origin_servers WHERE id = $1`, pgID)
	var (
		id     pgtype.UUID
		origin OriginServer
	)
	if err := row.Scan(&id, &origin.Address, &origin.AdminUser, &origin.AdminPassword, &origin.SSHPort); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return OriginServer{}, ErrNotFound
		}
		return OriginServer{}, fmt.Errorf("query origin server: %w", err)
	}
	origin.ID = db.UUIDToString(id)
	return origin, nil
}

// ListAssets returns the assets whose relative path lies under folderPath,
// in insertion order.
func (s *Store) ListAssets(ctx context.Context, folderPath string) ([]Asset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, folder_id, rel_path, filename, duration_seconds, size_bytes, position, created_at
		FROM assets
		WHERE rel_path LIKE $1
		ORDER BY created_at, position`,
		"%"+folderPath+"%")
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var items []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		items = append(items, asset)
	}
	return items, rows.Err()
}

// GetAsset returns a single asset row by id.
func (s *Store) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	pgID, err := db.ParseUUID(assetID)
	if err != nil {
		return Asset{}, ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, folder_id, rel_path, filename, duration_seconds, size_bytes, position, created_at
		FROM assets WHERE id = $1`, pgID)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, fmt.Errorf("query asset: %w", err)
	}
	return asset, nil
}

// InsertAsset records a newly ingested asset and returns the stored row.
func (s *Store) InsertAsset(ctx context.Context, params InsertAssetParams) (Asset, error) {
	folderID, err := db.ParseUUID(params.FolderID)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid folder id: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO assets (folder_id, rel_path, filename, duration_seconds, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, folder_id, rel_path, filename, duration_seconds, size_bytes, position, created_at`,
		folderID, params.RelPath, params.Filename, params.DurationSeconds, params.SizeBytes)
	asset, err := scanAsset(row)
	if err != nil {
		return Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

// DeleteAsset removes an asset row.
func (s *Store) DeleteAsset(ctx context.Context, assetID string) error {
	pgID, err := db.ParseUUID(assetID)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM assets WHERE id = $1`, pgID)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TryReserve atomically adds mb to the folder's usage if the result stays
// within capacity. The conditional UPDATE makes the check-then-act sequence a
// single statement, so concurrent reservations against one folder can never
// over-commit. On denial it reports the current availability.
func (s *Store) TryReserve(ctx context.Context, folderID string, mb int64) (bool, int64, error) {
	pgID, err := db.ParseUUID(folderID)
	if err != nil {
		return false, 0, ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE folders SET used_mb = used_mb + $2
		WHERE id = $1 AND used_mb + $2 <= capacity_mb`,
		pgID, mb)
	if err != nil {
		return false, 0, fmt.Errorf("reserve space: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, 0, nil
	}

	var available int64
	err = s.pool.QueryRow(ctx, `
		SELECT GREATEST(capacity_mb - used_mb, 0) FROM folders WHERE id = $1`, pgID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, fmt.Errorf("query availability: %w", err)
	}
	return false, available, nil
}

// ReleaseSpace subtracts mb from the folder's usage, clamped at zero so
// external bookkeeping drift can never drive usage negative.
func (s *Store) ReleaseSpace(ctx context.Context, folderID string, mb int64) error {
	pgID, err := db.ParseUUID(folderID)
	if err != nil {
		return ErrNotFound
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE folders SET used_mb = GREATEST(used_mb - $2, 0) WHERE id = $1`,
		pgID, mb)
	if err != nil {
		return fmt.Errorf("release space: %w", err)
	}
	return nil
}

func scanFolder(row pgx.Row) (Folder, error) {
	var (
		id       pgtype.UUID
		tenantID pgtype.UUID
		folder   Folder
	)
	if err := row.Scan(&id, &tenantID, &folder.TenantLogin, &folder.Name, &folder.CapacityMB, &folder.UsedMB); err != nil {
		return Folder{}, err
	}
	folder.ID = db.UUIDToString(id)
	folder.TenantID = db.UUIDToString(tenantID)
	return folder, nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var (
		id        pgtype.UUID
		folderID  pgtype.UUID
		createdAt pgtype.Timestamptz
		asset     Asset
	)
	if err := row.Scan(&id, &folderID, &asset.RelPath, &asset.Filename,
		&asset.DurationSeconds, &asset.SizeBytes, &asset.Position, &createdAt); err != nil {
		return Asset{}, err
	}
	asset.ID = db.UUIDToString(id)
	asset.FolderID = db.UUIDToString(folderID)
	asset.CreatedAt = db.TimeFromPg(createdAt)
	return asset, nil
}
