package pathmap

import (
	"strings"
	"testing"

	"github.com/streamvault/mediagate/internal/config"
)

func testTranslator() *Translator {
	return NewTranslator(config.OriginConfig{
		StreamingPort:    1935,
		HTTPPort:         8080,
		VODApplication:   "vod",
		LiveApplication:  "live",
		BrandApplication: "samcast",
	})
}

func TestPrimaryCandidateForms(t *testing.T) {
	tr := testTranslator()
	cases := []struct {
		name string
		path string
		want string
	}{
		{
			name: "direct mp4 uses pseudo-streaming marker",
			path: "/alice/movies/intro.mp4",
			want: "http://origin.example:1935/vod/_definst_/mp4:alice/movies/intro.mp4",
		},
		{
			name: "playlist with mp4 stem keeps marker before suffix",
			path: "/alice/movies/intro.mp4/playlist.m3u8",
			want: "http://origin.example:1935/vod/_definst_/mp4:alice/movies/intro.mp4/playlist.m3u8",
		},
		{
			name: "playlist without mp4 stem is a native abr directory",
			path: "/alice/movies/show/playlist.m3u8",
			want: "http://origin.example:1935/vod/_definst_/alice/movies/show/playlist.m3u8",
		},
		{
			name: "other extensions fall back to the generic vod path",
			path: "/alice/movies/clip.webm",
			want: "http://origin.example:1935/vod/_definst_/alice/movies/clip.webm",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tr.Candidates("origin.example", tc.path)
			if len(got) == 0 {
				t.Fatal("no candidates produced")
			}
			if got[0].URL != tc.want {
				t.Fatalf("primary candidate = %q, want %q", got[0].URL, tc.want)
			}
			if !got[0].Primary || !got[0].RequiresAuth {
				t.Fatalf("primary candidate must be marked primary and authenticated: %+v", got[0])
			}
		})
	}
}

func TestPlaylistWithoutMP4NeverCarriesMarker(t *testing.T) {
	tr := testTranslator()
	got := tr.Candidates("origin.example", "/alice/shows/series/playlist.m3u8")
	if strings.Contains(got[0].URL, PseudoStreamMarker) {
		t.Fatalf("marker-less playlist stem must not use pseudo-streaming form: %q", got[0].URL)
	}
}

func TestProbeOrderAndAuth(t *testing.T) {
	tr := testTranslator()
	got := tr.Candidates("origin.example", "/alice/movies/intro.mp4")
	if len(got) != 6 {
		t.Fatalf("expected primary + 5 probes, got %d candidates", len(got))
	}
	wantProbes := []struct {
		url  string
		auth bool
	}{
		{"http://origin.example:1935/vod/alice/movies/intro.mp4", true},
		{"http://origin.example:1935/live/alice/movies/intro.mp4", true},
		{"http://origin.example:1935/samcast/alice/movies/intro.mp4", true},
		{"http://origin.example:8080/content/alice/movies/intro.mp4", false},
		{"http://origin.example/content/alice/movies/intro.mp4", false},
	}
	for i, want := range wantProbes {
		probe := got[i+1]
		if probe.URL != want.url {
			t.Fatalf("probe %d = %q, want %q", i, probe.URL, want.url)
		}
		if probe.RequiresAuth != want.auth {
			t.Fatalf("probe %d auth = %v, want %v", i, probe.RequiresAuth, want.auth)
		}
		if probe.Primary {
			t.Fatalf("probe %d must not be primary", i)
		}
	}
}

func TestPlaybackURL(t *testing.T) {
	tr := testTranslator()
	got := tr.PlaybackURL("origin.example", "alice", "movies", "intro.mp4")
	want := "http://origin.example:1935/vod/_definst_/mp4:alice/movies/intro.mp4/playlist.m3u8"
	if got != want {
		t.Fatalf("PlaybackURL = %q, want %q", got, want)
	}
}

func TestIsMediaPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/a/b/c.mp4", true},
		{"/a/b/c.MP4", true},
		{"/a/b/c/playlist.m3u8", true},
		{"/a/b/seg001.ts", true},
		{"/a/b/c.txt", false},
		{"/a/b/c", false},
	}
	for _, tc := range cases {
		if got := IsMediaPath(tc.path); got != tc.want {
			t.Errorf("IsMediaPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("/a/b/playlist.m3u8"); got != "application/vnd.apple.mpegurl" {
		t.Fatalf("m3u8 content type = %q", got)
	}
	if got := ContentType("/a/b/seg.ts"); got != "video/mp2t" {
		t.Fatalf("ts content type = %q", got)
	}
	if got := ContentType("/a/b/c.mp4"); got != "video/mp4" {
		t.Fatalf("mp4 content type = %q", got)
	}
}

func TestTenantFromPath(t *testing.T) {
	if got := TenantFromPath("/alice/movies/intro.mp4"); got != "alice" {
		t.Fatalf("TenantFromPath = %q", got)
	}
	if got := TenantFromPath(""); got != "" {
		t.Fatalf("empty path should yield empty tenant, got %q", got)
	}
}
