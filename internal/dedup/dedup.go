// Package dedup memoizes previously produced files so that repeat requests
// for the same track are served by a local copy instead of a new download.
package dedup

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/storage"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
)

// Service answers "have we already downloaded this?" and manages the
// temporary-entry budget of the cache.
type Service struct {
	store        *store.DB
	log          *logger.Logger
	downloadsDir string
	maxTemporary int
}

func NewService(db *store.DB, log *logger.Logger, downloadsDir string) *Service {
	return &Service{
		store:        db,
		log:          log.WithComponent("dedup"),
		downloadsDir: downloadsDir,
		maxTemporary: constants.MaxTemporaryCacheEntries,
	}
}

// Normalize reduces a title or artist to its lookup form: lowercased, with
// everything except letters and digits removed. Two spellings that differ
// only in punctuation, spacing or case collide on purpose.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FindDuplicate looks up a cache entry for the given title/artist/type. A hit
// whose backing file has vanished from disk is deleted and reported as a miss.
// Every lookup is counted in the daily hit/miss stats.
func (s *Service) FindDuplicate(title, artist, fileType string) (*domain.CacheEntry, error) {
	day := time.Now().Format("2006-01-02")

	entry, err := s.store.FindCacheEntry(Normalize(title), Normalize(artist), fileType)
	if err != nil {
		return nil, fmt.Errorf("failed to query file cache: %w", err)
	}

	if entry != nil && !storage.FileExists(entry.Path) {
		s.log.Warn("Cache entry points at missing file, evicting", "cache_id", entry.ID, "path", entry.Path)
		if err := s.store.DeleteCacheEntry(entry.ID); err != nil {
			return nil, fmt.Errorf("failed to evict stale cache entry: %w", err)
		}
		entry = nil
	}

	if entry == nil {
		if err := s.store.RecordCacheMiss(day); err != nil {
			s.log.Warn("Failed to record cache miss", "error", err)
		}
		return nil, nil
	}

	if err := s.store.TouchCacheEntry(entry.ID); err != nil {
		s.log.Warn("Failed to touch cache entry", "cache_id", entry.ID, "error", err)
	}
	if err := s.store.RecordCacheHit(day); err != nil {
		s.log.Warn("Failed to record cache hit", "error", err)
	}
	return entry, nil
}

// AddEntry records a freshly produced file in the cache. Temporary entries
// count against the cache budget; permanent ones do not.
func (s *Service) AddEntry(file *domain.File, temporary bool) error {
	now := time.Now()
	entry := &domain.CacheEntry{
		ID:            uuid.New().String(),
		Title:         file.Title,
		Artist:        file.Artist,
		NormTitle:     Normalize(file.Title),
		NormArtist:    Normalize(file.Artist),
		FileType:      file.FileType,
		Path:          file.Path,
		ThumbnailPath: file.ThumbnailPath,
		SourceURL:     file.SourceURL,
		GroupType:     file.GroupType,
		GroupName:     file.GroupName,
		FileSize:      file.FileSize,
		Duration:      file.Duration,
		Rank:          file.Rank,
		IsTemporary:   temporary,
		LastUsedAt:    now,
		CreatedAt:     now,
	}

	if err := s.store.CreateCacheEntry(entry); err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}

	if temporary {
		if _, err := s.CleanupTemporary(); err != nil {
			s.log.Warn("Temporary cache cleanup failed", "error", err)
		}
	}
	return nil
}

// CopyFromCache materializes a cache hit as a new file record under the given
// group, copying the cached bytes into the group's folder.
func (s *Service) CopyFromCache(cacheID, groupType, groupName string, rank int) (*domain.File, error) {
	entry, err := s.store.GetCacheEntry(cacheID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("cache entry %s not found", cacheID)
	}

	destDir := s.downloadsDir
	if groupName != "" {
		destDir = filepath.Join(destDir, storage.Sanitize(groupName))
	}
	if err := storage.EnsureDir(destDir); err != nil {
		return nil, fmt.Errorf("failed to create destination folder: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(entry.Path))
	size := entry.FileSize
	if destPath != entry.Path {
		n, err := storage.CopyFile(entry.Path, destPath)
		if err != nil {
			return nil, fmt.Errorf("failed to copy cached file: %w", err)
		}
		size = n
	}

	// Thumbnail copy is best effort.
	thumbnailPath := ""
	if entry.ThumbnailPath != "" && storage.FileExists(entry.ThumbnailPath) {
		thumbnailPath = filepath.Join(destDir, filepath.Base(entry.ThumbnailPath))
		if thumbnailPath != entry.ThumbnailPath {
			if _, err := storage.CopyFile(entry.ThumbnailPath, thumbnailPath); err != nil {
				s.log.Warn("Failed to copy cached thumbnail", "cache_id", cacheID, "error", err)
				thumbnailPath = entry.ThumbnailPath
			}
		}
	}

	file := &domain.File{
		ID:            uuid.New().String(),
		Title:         entry.Title,
		Artist:        entry.Artist,
		FileType:      entry.FileType,
		Path:          destPath,
		ThumbnailPath: thumbnailPath,
		SourceURL:     entry.SourceURL,
		GroupType:     groupType,
		GroupName:     groupName,
		FileSize:      size,
		Duration:      entry.Duration,
		Rank:          rank,
		CreatedAt:     time.Now(),
	}
	if err := s.store.CreateFile(file); err != nil {
		return nil, fmt.Errorf("failed to record copied file: %w", err)
	}

	s.log.Info("Served file from cache", "cache_id", cacheID, "path", destPath)
	return file, nil
}

// CleanupReport summarizes a temporary-cache eviction pass.
type CleanupReport struct {
	Entries    int   `json:"entries"`
	BytesFreed int64 `json:"bytes_freed"`
}

// CleanupTemporary evicts the oldest temporary entries until the count is
// back under the budget. Backing files are removed from disk.
func (s *Service) CleanupTemporary() (*CleanupReport, error) {
	report := &CleanupReport{}

	count, err := s.store.CountTemporaryEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to count temporary entries: %w", err)
	}
	if count <= s.maxTemporary {
		return report, nil
	}

	victims, err := s.store.OldestTemporaryEntries(count - s.maxTemporary)
	if err != nil {
		return nil, fmt.Errorf("failed to list temporary entries: %w", err)
	}

	for _, entry := range victims {
		if err := s.evict(entry, report); err != nil {
			s.log.Warn("Failed to evict temporary entry", "cache_id", entry.ID, "error", err)
		}
	}

	s.log.Info("Evicted temporary cache entries", "entries", report.Entries, "bytes_freed", report.BytesFreed)
	return report, nil
}

// DeleteAllTemporary removes every temporary entry and its backing file.
func (s *Service) DeleteAllTemporary() (*CleanupReport, error) {
	report := &CleanupReport{}

	entries, err := s.store.ListTemporaryEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list temporary entries: %w", err)
	}

	for _, entry := range entries {
		if err := s.evict(entry, report); err != nil {
			s.log.Warn("Failed to delete temporary entry", "cache_id", entry.ID, "error", err)
		}
	}
	return report, nil
}

func (s *Service) evict(entry *domain.CacheEntry, report *CleanupReport) error {
	if storage.FileExists(entry.Path) {
		size, _ := storage.FileSize(entry.Path)
		if err := storage.RemoveFile(entry.Path); err != nil {
			return err
		}
		report.BytesFreed += size
	}
	if entry.ThumbnailPath != "" && storage.FileExists(entry.ThumbnailPath) {
		size, _ := storage.FileSize(entry.ThumbnailPath)
		if err := storage.RemoveFile(entry.ThumbnailPath); err != nil {
			s.log.Warn("Failed to remove cached thumbnail", "cache_id", entry.ID, "error", err)
		} else {
			report.BytesFreed += size
		}
	}

	if err := s.store.DeleteCacheEntry(entry.ID); err != nil {
		return err
	}
	report.Entries++

	storage.DeleteFolderIfEmpty(filepath.Dir(entry.Path))
	return nil
}
