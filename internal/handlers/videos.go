package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/streamvault/mediagate/internal/auth"
	"github.com/streamvault/mediagate/internal/catalog"
	"github.com/streamvault/mediagate/internal/ingest"
	"github.com/streamvault/mediagate/internal/quota"
	"github.com/streamvault/mediagate/internal/staging"
)

// VideosHandler serves the tenant-facing asset API: list, upload, delete.
type VideosHandler struct {
	service *ingest.Service
	area    *staging.Area
	logger  *slog.Logger
}

func NewVideosHandler(log *slog.Logger, service *ingest.Service, area *staging.Area) *VideosHandler {
	if log == nil {
		log = slog.Default()
	}
	return &VideosHandler{
		service: service,
		area:    area,
		logger:  log.With(slog.String("handler", "videos")),
	}
}

// Register mounts the asset API under /api/videos.
func (h *VideosHandler) Register(e *echo.Echo) {
	group := e.Group("/api/videos")
	group.GET("", h.List)
	group.POST("/upload", h.Upload)
	group.DELETE("/:id", h.Delete)
}

// List returns the folder's videos with playback URLs.
func (h *VideosHandler) List(c echo.Context) error {
	tenant, err := auth.TenantFromContext(c)
	if err != nil {
		return err
	}
	folderID := c.QueryParam("folder_id")
	if folderID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "folder_id is required"})
	}

	videos, err := h.service.List(c.Request().Context(), tenant, folderID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Message: "folder not found"})
		}
		h.logger.Error("list videos failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to list videos"})
	}
	return c.JSON(http.StatusOK, videos)
}

// Upload stages the multipart file, runs the admission check, and ingests the
// asset onto the tenant's origin server.
func (h *VideosHandler) Upload(c echo.Context) error {
	tenant, err := auth.TenantFromContext(c)
	if err != nil {
		return err
	}
	folderID := c.QueryParam("folder_id")
	if folderID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "folder_id is required"})
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "no file uploaded"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "unreadable upload"})
	}
	defer src.Close()

	duration, _ := strconv.Atoi(c.FormValue("duration_seconds"))
	declaredSize, _ := strconv.ParseInt(c.FormValue("size_bytes"), 10, 64)

	staged, err := h.area.Save(fileHeader.Filename, src)
	if err != nil {
		switch {
		case errors.Is(err, staging.ErrUnsupportedMedia):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "unsupported media type"})
		case errors.Is(err, staging.ErrTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "file too large"})
		default:
			h.logger.Error("staging failed", slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "upload failed"})
		}
	}

	asset, err := h.service.Ingest(c.Request().Context(), ingest.IngestInput{
		TenantLogin:       tenant,
		FolderID:          folderID,
		Staged:            staged,
		DurationSeconds:   duration,
		DeclaredSizeBytes: declaredSize,
	})
	if err != nil {
		var exceeded *quota.ExceededError
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{Message: "folder not found"})
		case errors.As(err, &exceeded):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: exceeded.Error()})
		case errors.Is(err, ingest.ErrNoOriginAssigned):
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "no origin server assigned"})
		default:
			h.logger.Error("ingest failed", slog.String("tenant", tenant), slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "upload failed"})
		}
	}

	return c.JSON(http.StatusCreated, ingest.Video{
		ID:              asset.ID,
		Name:            asset.Filename,
		URL:             asset.RelPath,
		DurationSeconds: asset.DurationSeconds,
		SizeBytes:       asset.SizeBytes,
	})
}

// Delete removes an asset after an ownership check; remote removal is
// best-effort, quota and catalog are always reconciled.
func (h *VideosHandler) Delete(c echo.Context) error {
	tenant, err := auth.TenantFromContext(c)
	if err != nil {
		return err
	}
	assetID := c.Param("id")

	if err := h.service.Delete(c.Request().Context(), tenant, assetID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{Message: "video not found"})
		case errors.Is(err, ingest.ErrAccessDenied):
			return c.JSON(http.StatusForbidden, ErrorResponse{Message: "access denied"})
		default:
			h.logger.Error("delete failed", slog.String("asset_id", assetID), slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to delete video"})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}
