// Package media fetches source metadata through yt-dlp.
package media

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/tools"
)

// Info describes a single downloadable item.
type Info struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"webpage_url"`
	Duration  int    `json:"-"`
}

// PlaylistInfo describes a resolved playlist and its ordered entries.
type PlaylistInfo struct {
	ID       string
	Title    string
	Uploader string
	Entries  []Info
}

type Fetcher struct {
	provisioner *tools.Provisioner
}

func NewFetcher(p *tools.Provisioner) *Fetcher {
	return &Fetcher{provisioner: p}
}

// rawInfo mirrors the yt-dlp JSON fields we care about. Duration arrives as
// a float for some extractors.
type rawInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Thumbnail  string  `json:"thumbnail"`
	WebpageURL string  `json:"webpage_url"`
	URL        string  `json:"url"`
	Duration   float64 `json:"duration"`
	PlaylistID string  `json:"playlist_id"`
	Playlist   string  `json:"playlist"`
}

func (r *rawInfo) toInfo() Info {
	uploader := r.Uploader
	if uploader == "" {
		uploader = r.Channel
	}
	url := r.WebpageURL
	if url == "" {
		url = r.URL
	}
	return Info{
		ID:        r.ID,
		Title:     r.Title,
		Uploader:  uploader,
		Thumbnail: r.Thumbnail,
		URL:       url,
		Duration:  int(r.Duration),
	}
}

// GetInfo fetches metadata for a single URL without downloading media.
func (f *Fetcher) GetInfo(ctx context.Context, url string) (*Info, error) {
	paths, err := f.provisioner.Resolve()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, constants.MetadataFetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, paths.YtDlp, "--dump-json", "--no-playlist", url)
	out, err := cmd.Output()
	if err != nil {
		// Surface cancellation as-is so callers can tell it from a tool error.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("metadata fetch for %s timed out", url)
		}
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", url, err)
	}

	var raw rawInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse metadata for %s: %w", url, err)
	}

	info := raw.toInfo()
	return &info, nil
}

// GetPlaylistInfo resolves a playlist URL into its ordered entries. The flat
// playlist dump emits one JSON object per line.
func (f *Fetcher) GetPlaylistInfo(ctx context.Context, url string) (*PlaylistInfo, error) {
	paths, err := f.provisioner.Resolve()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, constants.MetadataFetchTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, paths.YtDlp, "--dump-json", "--flat-playlist", url)
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("playlist resolution for %s timed out", url)
		}
		return nil, fmt.Errorf("failed to resolve playlist %s: %w", url, err)
	}

	return parsePlaylistDump(out)
}

func parsePlaylistDump(out []byte) (*PlaylistInfo, error) {
	pl := &PlaylistInfo{}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw rawInfo
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse playlist entry: %w", err)
		}

		if pl.ID == "" && raw.PlaylistID != "" {
			pl.ID = raw.PlaylistID
		}
		if pl.Title == "" && raw.Playlist != "" {
			pl.Title = raw.Playlist
		}
		if pl.Uploader == "" && raw.Uploader != "" {
			pl.Uploader = raw.Uploader
		}

		pl.Entries = append(pl.Entries, raw.toInfo())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan playlist dump: %w", err)
	}

	if len(pl.Entries) == 0 {
		return nil, fmt.Errorf("playlist resolved to no entries")
	}
	return pl, nil
}
