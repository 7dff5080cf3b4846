// Package pathmap translates logical content paths into ordered lists of
// physical request candidates for an origin server.
package pathmap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/streamvault/mediagate/internal/config"
)

// Kind distinguishes the two transports a candidate can use.
type Kind int

const (
	// KindRemote is an HTTP request against an origin server.
	KindRemote Kind = iota
	// KindLocal is a direct read from the local content root.
	KindLocal
)

// PseudoStreamMarker is the path prefix that tells the origin's on-demand
// module to serve a progressive-download file as a seekable stream.
const PseudoStreamMarker = "mp4:"

// PlaylistSuffix is the adaptive-bitrate manifest name appended to asset paths.
const PlaylistSuffix = "playlist.m3u8"

// Candidate is one possible physical location for a logical content path.
// Candidates are ephemeral; they exist only for the duration of one read.
type Candidate struct {
	Kind         Kind
	URL          string
	LocalPath    string
	RequiresAuth bool
	// Primary candidates get the long request budget, probes the short one.
	Primary bool
}

var mediaPathPattern = regexp.MustCompile(`(?i)\.(mp4|avi|mov|wmv|flv|webm|mkv|m3u8|ts)$`)

// IsMediaPath reports whether the request path names a servable media file
// or playlist.
func IsMediaPath(path string) bool {
	return mediaPathPattern.MatchString(path)
}

// ContentType returns the response content type for a content path.
func ContentType(path string) string {
	switch {
	case strings.Contains(path, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.Contains(path, ".ts"):
		return "video/mp2t"
	default:
		return "video/mp4"
	}
}

// TenantFromPath extracts the tenant identity (first segment) from a logical
// content path of the form /tenant/folder/filename.
func TenantFromPath(path string) string {
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			return part
		}
	}
	return ""
}

// Translator builds request candidates from origin configuration.
type Translator struct {
	cfg config.OriginConfig
}

func NewTranslator(cfg config.OriginConfig) *Translator {
	return &Translator{cfg: cfg}
}

// Candidates returns the ordered candidate list for contentPath on host,
// most-specific first. The origin's module routing is format-sensitive:
// a mismatched route returns wrong content or 404, so the format-specific
// primary form must be tried before the generic probes.
func (t *Translator) Candidates(host, contentPath string) []Candidate {
	candidates := []Candidate{t.primary(host, contentPath)}
	return append(candidates, t.probes(host, contentPath)...)
}

// primary builds the most specific URL form for the path.
func (t *Translator) primary(host, contentPath string) Candidate {
	vodBase := fmt.Sprintf("http://%s:%d/%s/_definst_", host, t.cfg.StreamingPort, t.cfg.VODApplication)
	isPlaylist := strings.Contains(contentPath, PlaylistSuffix)

	var url string
	switch {
	case strings.Contains(contentPath, ".mp4") && !isPlaylist:
		// Direct MP4: pseudo-streaming form so the player can seek.
		clean := strings.TrimLeft(contentPath, "/")
		url = fmt.Sprintf("%s/%s%s", vodBase, PseudoStreamMarker, clean)
	case isPlaylist:
		stem := strings.TrimSuffix(contentPath, PlaylistSuffix)
		stem = strings.Trim(stem, "/")
		if strings.Contains(stem, ".mp4") {
			base := strings.Replace(stem, ".mp4", "", 1)
			url = fmt.Sprintf("%s/%s%s.mp4/%s", vodBase, PseudoStreamMarker, base, PlaylistSuffix)
		} else {
			// Marker-less stem is a native adaptive-bitrate asset directory.
			url = fmt.Sprintf("%s/%s/%s", vodBase, stem, PlaylistSuffix)
		}
	default:
		url = vodBase + ensureLeadingSlash(contentPath)
	}

	return Candidate{Kind: KindRemote, URL: url, RequiresAuth: true, Primary: true}
}

// probes are the fixed-order alternate module roots tried with the raw path
// after the primary form fails. Streaming-port probes carry admin auth, the
// plain HTTP ones do not.
func (t *Translator) probes(host, contentPath string) []Candidate {
	raw := ensureLeadingSlash(contentPath)
	return []Candidate{
		{Kind: KindRemote, URL: fmt.Sprintf("http://%s:%d/%s%s", host, t.cfg.StreamingPort, t.cfg.VODApplication, raw), RequiresAuth: true},
		{Kind: KindRemote, URL: fmt.Sprintf("http://%s:%d/%s%s", host, t.cfg.StreamingPort, t.cfg.LiveApplication, raw), RequiresAuth: true},
		{Kind: KindRemote, URL: fmt.Sprintf("http://%s:%d/%s%s", host, t.cfg.StreamingPort, t.cfg.BrandApplication, raw), RequiresAuth: true},
		{Kind: KindRemote, URL: fmt.Sprintf("http://%s:%d/content%s", host, t.cfg.HTTPPort, raw)},
		{Kind: KindRemote, URL: fmt.Sprintf("http://%s/content%s", host, raw)},
	}
}

// PlaybackURL materializes the HLS playback URL for a stored asset, used when
// listing a folder's videos.
func (t *Translator) PlaybackURL(host, tenantLogin, folderName, filename string) string {
	contentPath := fmt.Sprintf("/%s/%s/%s/%s", tenantLogin, folderName, filename, PlaylistSuffix)
	return t.primary(host, contentPath).URL
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
