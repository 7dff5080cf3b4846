// Package ingest implements the asset lifecycle: listing, quota-tracked
// ingestion onto remote origins, and deletion.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/streamvault/mediagate/internal/catalog"
	"github.com/streamvault/mediagate/internal/config"
	"github.com/streamvault/mediagate/internal/origin"
	"github.com/streamvault/mediagate/internal/pathmap"
	"github.com/streamvault/mediagate/internal/quota"
	"github.com/streamvault/mediagate/internal/remotefs"
	"github.com/streamvault/mediagate/internal/staging"
)

var (
	// ErrAccessDenied is returned when a tenant operates on an asset whose
	// path does not belong to it.
	ErrAccessDenied = errors.New("access denied")
	// ErrNoOriginAssigned is returned when ingestion targets a tenant whose
	// origin resolution degraded to the default (no catalog assignment).
	ErrNoOriginAssigned = errors.New("tenant has no assigned origin server")
)

// TransferError wraps a failed ingestion step with the step name and target
// host, never the credential.
type TransferError struct {
	Step string
	Host string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed at %s (host %s): %v", e.Step, e.Host, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Catalog is the store surface the lifecycle needs.
type Catalog interface {
	FolderForTenant(ctx context.Context, tenantLogin, folderID string) (catalog.Folder, error)
	ListAssets(ctx context.Context, folderPath string) ([]catalog.Asset, error)
	GetAsset(ctx context.Context, assetID string) (catalog.Asset, error)
	InsertAsset(ctx context.Context, params catalog.InsertAssetParams) (catalog.Asset, error)
	DeleteAsset(ctx context.Context, assetID string) error
}

// Resolver resolves a tenant's origin; satisfied by origin.Directory.
type Resolver interface {
	Resolve(ctx context.Context, tenantLogin string) origin.Origin
}

// IngestInput describes one staged upload to place onto an origin.
type IngestInput struct {
	TenantLogin     string
	FolderID        string
	Staged          *staging.StagedFile
	DurationSeconds int
	// DeclaredSizeBytes of 0 falls back to the received byte count.
	DeclaredSizeBytes int64
}

// Video is a catalog asset with its materialized playback URL.
type Video struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
	SizeBytes       int64  `json:"size_bytes"`
	Folder          string `json:"folder"`
	Tenant          string `json:"tenant"`
}

type Service struct {
	catalog    Catalog
	ledger     *quota.Ledger
	transport  remotefs.Transport
	resolver   Resolver
	translator *pathmap.Translator
	remoteRoot string
	logger     *slog.Logger
}

func NewService(log *slog.Logger, cat Catalog, ledger *quota.Ledger, transport remotefs.Transport,
	resolver Resolver, translator *pathmap.Translator, storageCfg config.StorageConfig,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		catalog:    cat,
		ledger:     ledger,
		transport:  transport,
		resolver:   resolver,
		translator: translator,
		remoteRoot: storageCfg.RemoteContentRoot,
		logger:     log.With(slog.String("service", "ingest")),
	}
}

// List returns the folder's assets with playback URLs. Read-only.
func (s *Service) List(ctx context.Context, tenantLogin, folderID string) ([]Video, error) {
	folder, err := s.catalog.FolderForTenant(ctx, tenantLogin, folderID)
	if err != nil {
		return nil, err
	}
	folderPath := fmt.Sprintf("/%s/%s/", tenantLogin, folder.Name)
	assets, err := s.catalog.ListAssets(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	resolved := s.resolver.Resolve(ctx, tenantLogin)
	videos := make([]Video, 0, len(assets))
	for _, asset := range assets {
		videos = append(videos, Video{
			ID:              asset.ID,
			Name:            asset.Filename,
			URL:             s.playbackURL(resolved.Host, tenantLogin, folder.Name, asset),
			DurationSeconds: asset.DurationSeconds,
			SizeBytes:       asset.SizeBytes,
			Folder:          folder.Name,
			Tenant:          tenantLogin,
		})
	}
	return videos, nil
}

// playbackURL keeps already-materialized URLs as stored and builds an HLS URL
// for plain relative paths.
func (s *Service) playbackURL(host, tenantLogin, folderName string, asset catalog.Asset) string {
	if strings.HasPrefix(asset.RelPath, "http") {
		return asset.RelPath
	}
	if strings.Contains(asset.RelPath, pathmap.PseudoStreamMarker) {
		return asset.RelPath
	}
	return s.translator.PlaybackURL(host, tenantLogin, folderName, path.Base(asset.RelPath))
}

// Ingest places a staged upload onto the tenant's origin server and records
// the asset only after the transfer succeeds. On any earlier failure the
// quota grant is returned and the staging copy removed; no partial catalog
// state survives.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (catalog.Asset, error) {
	staged := input.Staged
	if staged == nil {
		return catalog.Asset{}, errors.New("staged file is required")
	}
	committed := false
	defer func() {
		if !committed {
			if err := staged.Remove(); err != nil {
				s.logger.Warn("staging cleanup failed", slog.String("path", staged.Path), slog.Any("error", err))
			}
		}
	}()

	folder, err := s.catalog.FolderForTenant(ctx, input.TenantLogin, input.FolderID)
	if err != nil {
		return catalog.Asset{}, err
	}

	resolved := s.resolver.Resolve(ctx, input.TenantLogin)
	if resolved.ServerID == "" {
		return catalog.Asset{}, ErrNoOriginAssigned
	}

	sizeBytes := input.DeclaredSizeBytes
	if sizeBytes <= 0 {
		sizeBytes = staged.SizeBytes
	}

	grant, err := s.ledger.Reserve(ctx, folder.ID, sizeBytes)
	if err != nil {
		return catalog.Asset{}, err
	}
	defer func() {
		if !committed {
			grant.Release(ctx)
		}
	}()

	tenantRoot := path.Join(s.remoteRoot, input.TenantLogin)
	folderDir := path.Join(tenantRoot, folder.Name)
	remotePath := path.Join(folderDir, staged.Name)

	if err := s.transport.EnsureDir(ctx, resolved.ServerID, tenantRoot); err != nil {
		return catalog.Asset{}, &TransferError{Step: "ensure tenant directory", Host: resolved.Host, Err: err}
	}
	if err := s.transport.EnsureDir(ctx, resolved.ServerID, folderDir); err != nil {
		return catalog.Asset{}, &TransferError{Step: "ensure folder directory", Host: resolved.Host, Err: err}
	}
	if err := s.transport.PutFile(ctx, resolved.ServerID, staged.Path, remotePath); err != nil {
		return catalog.Asset{}, &TransferError{Step: "transfer", Host: resolved.Host, Err: err}
	}

	// The asset is durably remote; local staging cleanup failure is not fatal.
	if err := staged.Remove(); err != nil {
		s.logger.Warn("staging cleanup after transfer failed",
			slog.String("path", staged.Path), slog.Any("error", err))
	}

	relPath := fmt.Sprintf("/%s/%s/%s", input.TenantLogin, folder.Name, staged.Name)
	asset, err := s.catalog.InsertAsset(ctx, catalog.InsertAssetParams{
		FolderID:        folder.ID,
		RelPath:         relPath,
		Filename:        staged.Name,
		DurationSeconds: input.DurationSeconds,
		SizeBytes:       sizeBytes,
	})
	if err != nil {
		// Transfer succeeded but the record did not; release the grant so
		// quota matches the catalog. The orphan remote file is logged.
		s.logger.Error("asset record failed after transfer",
			slog.String("remote_path", remotePath), slog.Any("error", err))
		return catalog.Asset{}, fmt.Errorf("record asset: %w", err)
	}

	committed = true
	s.logger.Info("asset ingested",
		slog.String("tenant", input.TenantLogin),
		slog.String("rel_path", relPath),
		slog.Int64("size_bytes", sizeBytes),
	)
	return asset, nil
}

// Delete removes an asset: ownership check, best-effort remote removal, quota
// release, catalog removal. A failed remote delete is a warning; the catalog
// and quota are still reconciled.
func (s *Service) Delete(ctx context.Context, tenantLogin, assetID string) error {
	asset, err := s.catalog.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if !strings.Contains(asset.RelPath, "/"+tenantLogin+"/") {
		return ErrAccessDenied
	}

	resolved := s.resolver.Resolve(ctx, tenantLogin)
	if resolved.ServerID != "" {
		remotePath := path.Join(s.remoteRoot, strings.TrimPrefix(asset.RelPath, "/"))
		if err := s.transport.DeleteFile(ctx, resolved.ServerID, remotePath); err != nil {
			s.logger.Warn("remote delete failed, removing catalog record anyway",
				slog.String("remote_path", remotePath), slog.Any("error", err))
		}
	}

	if err := s.ledger.Release(ctx, asset.FolderID, asset.SizeBytes); err != nil {
		s.logger.Error("quota release on delete failed",
			slog.String("folder_id", asset.FolderID), slog.Any("error", err))
	}

	return s.catalog.DeleteAsset(ctx, assetID)
}
