package store

import (
	"database/sql"
	"time"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
)

func (db *DB) CreateCacheEntry(entry *domain.CacheEntry) error {
	query := `INSERT INTO file_cache (id, title, artist, norm_title, norm_artist, file_type,
		file_size, duration, path, thumbnail_path, source_url, group_type, group_name, rank,
		is_temporary, last_used_at, created_at)
		VALUES (:id, :title, :artist, :norm_title, :norm_artist, :file_type,
		:file_size, :duration, :path, :thumbnail_path, :source_url, :group_type, :group_name, :rank,
		:is_temporary, :last_used_at, :created_at)`

	_, err := db.NamedExec(query, entry)
	return err
}

// FindCacheEntry returns the most-recently-used entry matching the normalized
// lookup key, or nil if none matches.
func (db *DB) FindCacheEntry(normTitle, normArtist, fileType string) (*domain.CacheEntry, error) {
	query := `SELECT * FROM file_cache
		WHERE norm_title = ? AND norm_artist = ? AND file_type = ?
		ORDER BY last_used_at DESC LIMIT 1`

	entry := &domain.CacheEntry{}
	err := db.Get(entry, query, normTitle, normArtist, fileType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (db *DB) GetCacheEntry(id string) (*domain.CacheEntry, error) {
	query := `SELECT * FROM file_cache WHERE id = ?`

	entry := &domain.CacheEntry{}
	err := db.Get(entry, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// TouchCacheEntry refreshes last_used_at on a cache hit.
func (db *DB) TouchCacheEntry(id string) error {
	query := `UPDATE file_cache SET last_used_at = ? WHERE id = ?`
	_, err := db.Exec(query, time.Now(), id)
	return err
}

func (db *DB) DeleteCacheEntry(id string) error {
	query := `DELETE FROM file_cache WHERE id = ?`
	_, err := db.Exec(query, id)
	return err
}

func (db *DB) CountTemporaryEntries() (int, error) {
	var count int
	err := db.Get(&count, `SELECT COUNT(*) FROM file_cache WHERE is_temporary = 1`)
	return count, err
}

// OldestTemporaryEntries returns up to n temporary entries ordered by
// last_used_at ascending, oldest first.
func (db *DB) OldestTemporaryEntries(n int) ([]*domain.CacheEntry, error) {
	query := `SELECT * FROM file_cache WHERE is_temporary = 1 ORDER BY last_used_at ASC LIMIT ?`

	var entries []*domain.CacheEntry
	err := db.Select(&entries, query, n)
	return entries, err
}

func (db *DB) ListTemporaryEntries() ([]*domain.CacheEntry, error) {
	query := `SELECT * FROM file_cache WHERE is_temporary = 1 ORDER BY last_used_at ASC`

	var entries []*domain.CacheEntry
	err := db.Select(&entries, query)
	return entries, err
}

// RecordCacheHit increments the hit counter for the given day (YYYY-MM-DD).
func (db *DB) RecordCacheHit(day string) error {
	_, err := db.Exec(`
		INSERT INTO cache_stats (day, hits, misses) VALUES (?, 1, 0)
		ON CONFLICT(day) DO UPDATE SET hits = hits + 1
	`, day)
	return err
}

// RecordCacheMiss increments the miss counter for the given day (YYYY-MM-DD).
func (db *DB) RecordCacheMiss(day string) error {
	_, err := db.Exec(`
		INSERT INTO cache_stats (day, hits, misses) VALUES (?, 0, 1)
		ON CONFLICT(day) DO UPDATE SET misses = misses + 1
	`, day)
	return err
}

func (db *DB) ListCacheStats(limit int) ([]*domain.CacheStat, error) {
	query := `SELECT day, hits, misses FROM cache_stats ORDER BY day DESC LIMIT ?`

	var stats []*domain.CacheStat
	err := db.Select(&stats, query, limit)
	return stats, err
}
