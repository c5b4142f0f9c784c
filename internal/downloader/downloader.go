// Package downloader executes queued download jobs end to end: it shells out
// to yt-dlp, tracks progress, tags the result and records the produced files.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/dedup"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/events"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/media"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/storage"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/tagging"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/tools"
)

// MetadataSource resolves source metadata ahead of a download.
type MetadataSource interface {
	GetInfo(ctx context.Context, url string) (*media.Info, error)
	GetPlaylistInfo(ctx context.Context, url string) (*media.PlaylistInfo, error)
}

// ToolProvider verifies the external binaries are present and resolves their
// paths.
type ToolProvider interface {
	Resolve() (tools.Paths, error)
	EnsureInstalled() error
}

// itemFunc fetches one media item to disk and records its file row.
type itemFunc func(ctx context.Context, url, title string, info *media.Info, groupType, groupName string, rank int, jobType domain.JobType, onProgress func(int)) (*domain.File, error)

// Downloader runs one job at a time to a terminal state. It owns the success
// paths (completed, partial); the queue marks failures from the returned
// error.
type Downloader struct {
	store        *store.DB
	log          *logger.Logger
	events       events.Broadcaster
	fetcher      MetadataSource
	tools        ToolProvider
	dedup        *dedup.Service
	fetchItem    itemFunc
	downloadsDir string
	audioFormat  string
	timeout      time.Duration
}

func New(db *store.DB, log *logger.Logger, bc events.Broadcaster, fetcher MetadataSource, prov ToolProvider, dd *dedup.Service, downloadsDir, audioFormat string) *Downloader {
	d := &Downloader{
		store:        db,
		log:          log.WithComponent("downloader"),
		events:       bc,
		fetcher:      fetcher,
		tools:        prov,
		dedup:        dd,
		downloadsDir: downloadsDir,
		audioFormat:  audioFormat,
		timeout:      constants.DefaultYtDlpTimeout,
	}
	d.fetchItem = d.downloadItem
	return d
}

// Run processes the job to completion. It returns an error only for outcomes
// the caller should record as failed; completed and partial outcomes are
// persisted here.
func (d *Downloader) Run(ctx context.Context, job *domain.QueueJob) error {
	if err := d.tools.EnsureInstalled(); err != nil {
		return err
	}

	log := d.log.WithJob(job.ID, string(job.Type))
	log.Info("Starting download", "url", job.URL)

	if job.Type.Playlist() {
		return d.runPlaylist(ctx, log, job)
	}
	return d.runSingle(ctx, log, job)
}

func (d *Downloader) fileType(t domain.JobType) string {
	if t.Video() {
		return constants.FileTypeMP4
	}
	return d.audioFormat
}

func (d *Downloader) runSingle(ctx context.Context, log *logger.Logger, job *domain.QueueJob) error {
	info, err := d.fetcher.GetInfo(ctx, job.URL)
	if err != nil {
		return err
	}

	title := job.Options.DisplayTitle
	if title == "" {
		title = info.Title
	}

	file, err := d.fetchItem(ctx, job.URL, title, info, job.Options.GroupType, job.Options.GroupName, job.Options.Rank, job.Type, func(pct int) {
		if err := d.store.UpdateJobProgress(job.ID, pct); err != nil {
			log.Warn("Failed to persist progress", "error", err)
		}
		d.events.EmitStatus(job.ID, domain.JobStatusProcessing, pct)
	})
	if err != nil {
		return err
	}

	if err := d.dedup.AddEntry(file, job.Options.Temporary); err != nil {
		log.Warn("Failed to cache produced file", "error", err)
	}

	if err := d.store.CompleteJob(job.ID, &file.ID); err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}
	d.events.EmitComplete(job.ID, file)
	log.Info("Download complete", "path", file.Path)
	return nil
}

func (d *Downloader) runPlaylist(ctx context.Context, log *logger.Logger, job *domain.QueueJob) error {
	pl, err := d.fetcher.GetPlaylistInfo(ctx, job.URL)
	if err != nil {
		return err
	}

	entries := pl.Entries
	if max := job.Options.MaxItems; max > 0 && len(entries) > max {
		entries = entries[:max]
	}
	total := len(entries)

	groupName := job.Options.GroupName
	if groupName == "" {
		groupName = pl.Title
	}
	groupType := job.Options.GroupType
	if groupType == "" {
		groupType = "playlist"
	}

	fileType := d.fileType(job.Type)
	succeeded := 0
	var firstErr error

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		overall := i * 100 / total
		if err := d.store.UpdateJobProgress(job.ID, overall); err != nil {
			log.Warn("Failed to persist progress", "error", err)
		}
		d.events.EmitStatus(job.ID, domain.JobStatusProcessing, overall)

		rank := i + 1
		file, err := d.playlistItem(ctx, log, job, entry, groupType, groupName, rank, fileType, i, total)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("Playlist item failed", "index", i, "title", entry.Title, "error", err)
			d.events.EmitError(job.ID, fmt.Sprintf("item %d/%d failed: %v", i+1, total, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		succeeded++
		d.events.EmitPlaylistItemComplete(job.ID, i, total, file)
	}

	switch {
	case succeeded == total:
		if err := d.store.CompleteJob(job.ID, nil); err != nil {
			return fmt.Errorf("failed to finalize playlist job: %w", err)
		}
		d.events.EmitStatus(job.ID, domain.JobStatusCompleted, 100)
		log.Info("Playlist complete", "items", total)
		return nil

	case succeeded > 0:
		note := fmt.Sprintf("%d of %d items succeeded", succeeded, total)
		if err := d.store.CompleteJobPartial(job.ID, nil, note); err != nil {
			return fmt.Errorf("failed to finalize playlist job: %w", err)
		}
		d.events.EmitStatus(job.ID, domain.JobStatusPartial, 100)
		log.Warn("Playlist partially complete", "succeeded", succeeded, "total", total)
		return nil

	default:
		return fmt.Errorf("all %d playlist items failed: %w", total, firstErr)
	}
}

func (d *Downloader) playlistItem(ctx context.Context, log *logger.Logger, job *domain.QueueJob, entry media.Info, groupType, groupName string, rank int, fileType string, index, total int) (*domain.File, error) {
	d.events.EmitPlaylistItemProgress(job.ID, index, total, entry.Title, 0)

	hit, err := d.dedup.FindDuplicate(entry.Title, entry.Uploader, fileType)
	if err != nil {
		log.Warn("Cache lookup failed", "title", entry.Title, "error", err)
	}
	if hit != nil {
		log.Debug("Playlist item served from cache", "title", entry.Title, "cache_id", hit.ID)
		return d.dedup.CopyFromCache(hit.ID, groupType, groupName, rank)
	}

	file, err := d.fetchItem(ctx, entry.URL, entry.Title, &entry, groupType, groupName, rank, job.Type, func(pct int) {
		d.events.EmitPlaylistItemProgress(job.ID, index, total, entry.Title, pct)
	})
	if err != nil {
		return nil, err
	}

	if err := d.dedup.AddEntry(file, job.Options.Temporary); err != nil {
		log.Warn("Failed to cache produced file", "error", err)
	}
	return file, nil
}

// downloadItem fetches one media item to disk, tags it and records the file
// row. It is shared by the single and playlist paths.
func (d *Downloader) downloadItem(ctx context.Context, url, title string, info *media.Info, groupType, groupName string, rank int, jobType domain.JobType, onProgress func(int)) (*domain.File, error) {
	destDir := d.downloadsDir
	if groupName != "" {
		destDir = filepath.Join(destDir, storage.Sanitize(groupName))
	}
	if err := storage.EnsureDir(destDir); err != nil {
		return nil, fmt.Errorf("failed to create download folder: %w", err)
	}

	fileType := d.fileType(jobType)
	base := storage.Sanitize(title)
	if base == "" {
		base = info.ID
	}
	finalPath := filepath.Join(destDir, base+"."+fileType)
	template := filepath.Join(destDir, base+".%(ext)s")

	args := d.buildArgs(jobType, template, url)
	if err := d.runYtDlp(ctx, args, onProgress); err != nil {
		return nil, err
	}

	if !storage.FileExists(finalPath) {
		return nil, fmt.Errorf("download finished but %s was not produced", finalPath)
	}
	size, err := storage.FileSize(finalPath)
	if err != nil {
		return nil, err
	}

	thumbnailPath := d.saveThumbnail(ctx, info.Thumbnail, destDir, base)

	file := &domain.File{
		ID:            uuid.New().String(),
		Title:         title,
		Artist:        info.Uploader,
		FileType:      fileType,
		Path:          finalPath,
		ThumbnailPath: thumbnailPath,
		SourceURL:     url,
		GroupType:     groupType,
		GroupName:     groupName,
		FileSize:      size,
		Duration:      info.Duration,
		Rank:          rank,
		CreatedAt:     time.Now(),
	}

	// Tagging is best effort; an untagged file is still a usable download.
	if !jobType.Video() {
		var cover []byte
		if thumbnailPath != "" {
			cover, _ = os.ReadFile(thumbnailPath)
		}
		if err := tagging.TagFile(finalPath, file, cover); err != nil {
			d.log.Warn("Failed to tag file", "path", finalPath, "error", err)
		}
	}

	if err := d.store.CreateFile(file); err != nil {
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}

func (d *Downloader) buildArgs(jobType domain.JobType, template, url string) []string {
	args := []string{"--newline", "--no-playlist", "-o", template}

	if jobType.Video() {
		args = append(args,
			"-f", "bestvideo[height<=720]+bestaudio/best[height<=720]",
			"--merge-output-format", constants.FileTypeMP4,
		)
	} else {
		args = append(args,
			"-x",
			"--audio-format", d.audioFormat,
			"--audio-quality", "0",
		)
	}

	return append(args, url)
}

func (d *Downloader) runYtDlp(ctx context.Context, args []string, onProgress func(int)) error {
	paths, err := d.tools.Resolve()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, paths.YtDlp, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach to yt-dlp output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	newProgressReader(onProgress).consume(stdout)

	if err := cmd.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("download timed out after %s", d.timeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("yt-dlp exited with code %d: %s", exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return fmt.Errorf("yt-dlp failed: %w", err)
	}
	return nil
}

// saveThumbnail fetches the cover image next to the media file. Best effort;
// a missing thumbnail never fails the download.
func (d *Downloader) saveThumbnail(ctx context.Context, thumbURL, destDir, base string) string {
	if thumbURL == "" {
		return ""
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, thumbURL, nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		d.log.Debug("Thumbnail fetch failed", "url", thumbURL, "error", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return ""
	}

	path := filepath.Join(destDir, base+constants.ExtJPG)
	if err := storage.WriteFile(path, data); err != nil {
		d.log.Debug("Failed to write thumbnail", "path", path, "error", err)
		return ""
	}
	return path
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "no output"
	}
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
