package store

import (
	"database/sql"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
)

func (db *DB) CreateFile(file *domain.File) error {
	query := `INSERT INTO files (id, title, artist, file_type, file_size, duration, path,
		thumbnail_path, source_url, group_type, group_name, rank, downloads, created_at)
		VALUES (:id, :title, :artist, :file_type, :file_size, :duration, :path,
		:thumbnail_path, :source_url, :group_type, :group_name, :rank, :downloads, :created_at)`

	_, err := db.NamedExec(query, file)
	return err
}

func (db *DB) GetFile(id string) (*domain.File, error) {
	query := `SELECT * FROM files WHERE id = ?`

	file := &domain.File{}
	err := db.Get(file, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (db *DB) ListFiles(limit int) ([]*domain.File, error) {
	query := `SELECT * FROM files ORDER BY created_at DESC LIMIT ?`

	var files []*domain.File
	err := db.Select(&files, query, limit)
	return files, err
}

func (db *DB) IncrementFileDownloads(id string) error {
	query := `UPDATE files SET downloads = downloads + 1 WHERE id = ?`
	_, err := db.Exec(query, id)
	return err
}

// GroupSummary describes a recent batch of produced files.
type GroupSummary struct {
	GroupType string `db:"group_type" json:"group_type"`
	GroupName string `db:"group_name" json:"group_name"`
	Count     int    `db:"count" json:"count"`
}

// RecentGroups lists the most recently produced file groups (playlists, chart
// runs) with their file counts.
func (db *DB) RecentGroups(limit int) ([]*GroupSummary, error) {
	query := `SELECT group_type, group_name, COUNT(*) as count
		FROM files
		WHERE group_type != '' AND group_name != ''
		GROUP BY group_type, group_name
		ORDER BY MAX(created_at) DESC
		LIMIT ?`

	var groups []*GroupSummary
	err := db.Select(&groups, query, limit)
	return groups, err
}
