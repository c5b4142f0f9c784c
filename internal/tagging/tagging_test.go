package tagging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
)

func TestTagFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.ogg")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	err := TagFile(path, &domain.File{Title: "T"}, nil)
	if err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestTagFileSkipsMP4(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// MP4 containers carry metadata embedded by the downloader itself.
	if err := TagFile(path, &domain.File{Title: "T"}, nil); err != nil {
		t.Errorf("Expected nil for mp4, got %v", err)
	}

	// Untouched
	data, _ := os.ReadFile(path)
	if string(data) != "data" {
		t.Error("mp4 file must not be modified")
	}
}

func TestTagFileCaseInsensitiveExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.MP4")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := TagFile(path, &domain.File{Title: "T"}, nil); err != nil {
		t.Errorf("Expected nil for MP4, got %v", err)
	}
}

func TestTagFileMissingFile(t *testing.T) {
	if err := TagFile("/nonexistent/song.mp3", &domain.File{Title: "T"}, nil); err == nil {
		t.Error("Expected error for missing mp3")
	}
	if err := TagFile("/nonexistent/song.flac", &domain.File{Title: "T"}, nil); err == nil {
		t.Error("Expected error for missing flac")
	}
}
