// Package staging manages the shared local staging area for uploads.
package staging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/streamvault/mediagate/internal/config"
)

var (
	// ErrUnsupportedMedia rejects uploads outside the container allow-list.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrTooLarge rejects uploads over the configured size limit.
	ErrTooLarge = errors.New("upload exceeds size limit")
)

// allowedExtensions is the upload allow-list: common video containers only.
var allowedExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {},
	".flv": {}, ".webm": {}, ".mkv": {},
}

// Allowed reports whether filename carries an accepted container extension.
func Allowed(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

var (
	unsafeChars  = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	doubleUnders = regexp.MustCompile(`_{2,}`)
)

// SanitizeName strips everything outside [a-zA-Z0-9.-] from a client-supplied
// filename and squeezes runs of underscores.
func SanitizeName(name string) string {
	sanitized := unsafeChars.ReplaceAllString(name, "_")
	return doubleUnders.ReplaceAllString(sanitized, "_")
}

// StagedFile is a temporary local copy of an upload, exclusively owned by one
// request until ingestion completes or aborts.
type StagedFile struct {
	Path      string
	Name      string
	SizeBytes int64
}

// Remove deletes the staging copy. Best-effort: a missing file is not an error.
func (f *StagedFile) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Area is the shared staging directory. Staged filenames carry a millisecond
// timestamp prefix so concurrent uploads of the same name cannot collide.
type Area struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

func NewArea(log *slog.Logger, cfg config.StorageConfig) *Area {
	if log == nil {
		log = slog.Default()
	}
	return &Area{
		dir:      cfg.StagingDir,
		maxBytes: cfg.MaxUploadBytes,
		logger:   log.With(slog.String("service", "staging")),
	}
}

// Save validates the upload's extension and spools the reader into the
// staging directory under a collision-resistant name.
func (a *Area) Save(originalName string, reader io.Reader) (*StagedFile, error) {
	if !Allowed(originalName) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, filepath.Ext(originalName))
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), SanitizeName(originalName))
	path := filepath.Join(a.dir, name)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	limited := &io.LimitedReader{R: reader, N: a.maxBytes + 1}
	written, err := io.Copy(file, limited)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if written > a.maxBytes {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	return &StagedFile{Path: path, Name: name, SizeBytes: written}, nil
}
