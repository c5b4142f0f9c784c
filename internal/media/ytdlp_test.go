package media

import (
	"context"
	"errors"
	"testing"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/config"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/tools"
)

func TestParsePlaylistDump(t *testing.T) {
	dump := []byte(`{"id":"vid1","title":"First Song","uploader":"Channel A","url":"https://example.com/watch?v=vid1","duration":180.5,"playlist_id":"PL123","playlist":"Road Trip"}
{"id":"vid2","title":"Second Song","uploader":"Channel A","url":"https://example.com/watch?v=vid2","duration":200,"playlist_id":"PL123","playlist":"Road Trip"}

{"id":"vid3","title":"Third Song","channel":"Channel B","url":"https://example.com/watch?v=vid3","duration":90,"playlist_id":"PL123","playlist":"Road Trip"}
`)

	pl, err := parsePlaylistDump(dump)
	if err != nil {
		t.Fatalf("parsePlaylistDump failed: %v", err)
	}

	if pl.ID != "PL123" {
		t.Errorf("Expected playlist id PL123, got %s", pl.ID)
	}
	if pl.Title != "Road Trip" {
		t.Errorf("Expected title 'Road Trip', got %s", pl.Title)
	}
	if len(pl.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(pl.Entries))
	}

	// Order is preserved
	if pl.Entries[0].ID != "vid1" || pl.Entries[1].ID != "vid2" || pl.Entries[2].ID != "vid3" {
		t.Errorf("Entry order wrong: %+v", pl.Entries)
	}
	if pl.Entries[0].Duration != 180 {
		t.Errorf("Expected duration 180, got %d", pl.Entries[0].Duration)
	}

	// Channel falls back when uploader is absent
	if pl.Entries[2].Uploader != "Channel B" {
		t.Errorf("Expected uploader 'Channel B', got %s", pl.Entries[2].Uploader)
	}
}

func TestParsePlaylistDumpEmpty(t *testing.T) {
	if _, err := parsePlaylistDump([]byte("")); err == nil {
		t.Error("Expected error for empty dump")
	}
	if _, err := parsePlaylistDump([]byte("\n\n")); err == nil {
		t.Error("Expected error for blank dump")
	}
}

func TestParsePlaylistDumpMalformed(t *testing.T) {
	dump := []byte(`{"id":"vid1","title":"Good"}
{not json}`)

	if _, err := parsePlaylistDump(dump); err == nil {
		t.Error("Expected error for malformed entry")
	}
}

func TestFetcherSurfacesCancellation(t *testing.T) {
	// Any executable will do; the context is cancelled before the command runs.
	cfg := &config.Config{YtDlpPath: "/bin/sh", FfmpegPath: "/bin/sh"}
	f := NewFetcher(tools.NewProvisioner(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.GetInfo(ctx, "https://example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetInfo: expected context.Canceled, got %v", err)
	}
	if _, err := f.GetPlaylistInfo(ctx, "https://example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("GetPlaylistInfo: expected context.Canceled, got %v", err)
	}
}

func TestRawInfoFallbacks(t *testing.T) {
	raw := rawInfo{
		ID:       "abc",
		Title:    "Title",
		Channel:  "Fallback Channel",
		URL:      "https://example.com/direct",
		Duration: 120.9,
	}

	info := raw.toInfo()
	if info.Uploader != "Fallback Channel" {
		t.Errorf("Expected channel fallback, got %s", info.Uploader)
	}
	if info.URL != "https://example.com/direct" {
		t.Errorf("Expected url fallback, got %s", info.URL)
	}
	if info.Duration != 120 {
		t.Errorf("Expected duration 120, got %d", info.Duration)
	}
}
