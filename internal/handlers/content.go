package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/streamvault/mediagate/internal/fetch"
	"github.com/streamvault/mediagate/internal/origin"
	"github.com/streamvault/mediagate/internal/pathmap"
)

// ContentHandler serves stored media over /content/* with ordered candidate
// fallback and byte-range passthrough. The route is public: playback clients
// (video tags, HLS players) carry no tokens.
type ContentHandler struct {
	directory  *origin.Directory
	translator *pathmap.Translator
	fetcher    *fetch.Fetcher
	logger     *slog.Logger
}

func NewContentHandler(log *slog.Logger, directory *origin.Directory, translator *pathmap.Translator, fetcher *fetch.Fetcher) *ContentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContentHandler{
		directory:  directory,
		translator: translator,
		fetcher:    fetcher,
		logger:     log.With(slog.String("handler", "content")),
	}
}

// Register mounts the content read path.
func (h *ContentHandler) Register(e *echo.Echo) {
	e.GET("/content/*", h.Serve)
	e.HEAD("/content/*", h.Serve)
}

// Serve resolves one logical content path and streams the winning candidate's
// response to the caller.
func (h *ContentHandler) Serve(c echo.Context) error {
	contentPath := "/" + c.Param("*")
	if !pathmap.IsMediaPath(contentPath) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: "file not found"})
	}

	ctx := c.Request().Context()
	tenant := pathmap.TenantFromPath(contentPath)
	resolved := h.directory.Resolve(ctx, tenant)

	result, err := h.fetcher.Fetch(ctx, fetch.Request{
		Method:        c.Request().Method,
		ContentPath:   contentPath,
		RangeHeader:   c.Request().Header.Get("Range"),
		Candidates:    h.translator.Candidates(resolved.Host, contentPath),
		AdminUser:     resolved.AdminUser,
		AdminPassword: resolved.AdminPassword,
		Host:          resolved.Host,
	})
	if err != nil {
		var notFound *fetch.NotFoundError
		if errors.As(err, &notFound) {
			return c.JSON(http.StatusNotFound, NotFoundResponse{
				Message:       "content not found on streaming origin",
				Host:          notFound.Host,
				Path:          contentPath,
				AttemptedURLs: notFound.Attempted,
			})
		}
		h.logger.Error("content read failed", slog.String("path", contentPath), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
	}
	defer result.Body.Close()

	header := c.Response().Header()
	for key, values := range result.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Range")
	if header.Get("Accept-Ranges") == "" {
		header.Set("Accept-Ranges", "bytes")
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", pathmap.ContentType(contentPath))
	}

	c.Response().WriteHeader(result.Status)
	if c.Request().Method == http.MethodHead {
		return nil
	}
	_, err = io.Copy(c.Response(), result.Body)
	return err
}
