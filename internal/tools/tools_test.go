package tools

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/config"
)

func fakeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatalf("Failed to write fake binary: %v", err)
	}
	return path
}

func TestResolveWithOverrides(t *testing.T) {
	dir := t.TempDir()
	ytdlp := fakeBinary(t, dir, "yt-dlp")
	ffmpeg := fakeBinary(t, dir, "ffmpeg")

	p := NewProvisioner(&config.Config{YtDlpPath: ytdlp, FfmpegPath: ffmpeg})

	paths, err := p.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if paths.YtDlp != ytdlp {
		t.Errorf("Expected yt-dlp at %s, got %s", ytdlp, paths.YtDlp)
	}
	if paths.Ffmpeg != ffmpeg {
		t.Errorf("Expected ffmpeg at %s, got %s", ffmpeg, paths.Ffmpeg)
	}

	// Second resolve is served from cache
	again, err := p.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if again != paths {
		t.Errorf("Expected cached paths %+v, got %+v", paths, again)
	}
}

func TestResolveMissingTools(t *testing.T) {
	dir := t.TempDir()

	p := NewProvisioner(&config.Config{
		YtDlpPath:  filepath.Join(dir, "missing-yt-dlp"),
		FfmpegPath: filepath.Join(dir, "missing-ffmpeg"),
	})

	_, err := p.Resolve()
	if !errors.Is(err, ErrToolsMissing) {
		t.Fatalf("Expected ErrToolsMissing, got %v", err)
	}

	if err := p.EnsureInstalled(); !errors.Is(err, ErrToolsMissing) {
		t.Errorf("Expected ErrToolsMissing from EnsureInstalled, got %v", err)
	}
}

func TestResolveRejectsNonExecutable(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "yt-dlp")
	if err := os.WriteFile(plain, []byte("not a binary"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	ffmpeg := fakeBinary(t, dir, "ffmpeg")

	p := NewProvisioner(&config.Config{YtDlpPath: plain, FfmpegPath: ffmpeg})
	if _, err := p.Resolve(); !errors.Is(err, ErrToolsMissing) {
		t.Errorf("Expected ErrToolsMissing for non-executable override, got %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	ytdlp := fakeBinary(t, dir, "yt-dlp")
	ffmpeg := fakeBinary(t, dir, "ffmpeg")

	p := NewProvisioner(&config.Config{YtDlpPath: ytdlp, FfmpegPath: ffmpeg})
	if _, err := p.Resolve(); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Drop the binary and invalidate; the next resolve must notice.
	if err := os.Remove(ytdlp); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	p.Invalidate()

	if _, err := p.Resolve(); !errors.Is(err, ErrToolsMissing) {
		t.Errorf("Expected ErrToolsMissing after invalidation, got %v", err)
	}
}
