package staging

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/streamvault/mediagate/internal/config"
)

func newTestArea(t *testing.T, maxBytes int64) *Area {
	t.Helper()
	return NewArea(nil, config.StorageConfig{
		StagingDir:     t.TempDir(),
		MaxUploadBytes: maxBytes,
	})
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"intro.mp4", "intro.mp4"},
		{"my movie (final).mp4", "my_movie_final_.mp4"},
		{"weird///name.mp4", "weird_name.mp4"},
		{"ação especial.mp4", "a_o_especial.mp4"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{"a.mp4", "b.AVI", "c.webm", "d.mkv"} {
		if !Allowed(name) {
			t.Errorf("Allowed(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.txt", "b.exe", "playlist.m3u8", "noext"} {
		if Allowed(name) {
			t.Errorf("Allowed(%q) = true, want false", name)
		}
	}
}

func TestSaveStagesUpload(t *testing.T) {
	area := newTestArea(t, 1<<20)

	staged, err := area.Save("my video.mp4", strings.NewReader("video-bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	defer staged.Remove()

	if staged.SizeBytes != int64(len("video-bytes")) {
		t.Fatalf("SizeBytes = %d", staged.SizeBytes)
	}
	if !strings.HasSuffix(staged.Name, "_my_video.mp4") {
		t.Fatalf("staged name %q must end with sanitized original", staged.Name)
	}
	data, err := os.ReadFile(staged.Path)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("staged content = %q", data)
	}
}

func TestSaveRejectsUnsupportedExtension(t *testing.T) {
	area := newTestArea(t, 1<<20)

	_, err := area.Save("malware.exe", strings.NewReader("nope"))
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("error = %v, want ErrUnsupportedMedia", err)
	}
}

func TestSaveRejectsOversizedUpload(t *testing.T) {
	area := newTestArea(t, 10)

	_, err := area.Save("big.mp4", strings.NewReader(strings.Repeat("x", 11)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("error = %v, want ErrTooLarge", err)
	}
}

func TestRemoveIsBestEffort(t *testing.T) {
	area := newTestArea(t, 1<<20)

	staged, err := area.Save("v.mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := staged.Remove(); err != nil {
		t.Fatalf("first remove failed: %v", err)
	}
	if err := staged.Remove(); err != nil {
		t.Fatalf("remove of missing file must succeed: %v", err)
	}

	var nilFile *StagedFile
	if err := nilFile.Remove(); err != nil {
		t.Fatalf("nil remove must succeed: %v", err)
	}
}
