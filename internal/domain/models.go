package domain

import (
	"time"
)

type JobType string

const (
	JobTypeAudio         JobType = "audio"
	JobTypeVideo         JobType = "video"
	JobTypePlaylistAudio JobType = "playlist_audio"
	JobTypePlaylistVideo JobType = "playlist_video"
)

// Valid reports whether t is one of the four recognized download kinds.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeAudio, JobTypeVideo, JobTypePlaylistAudio, JobTypePlaylistVideo:
		return true
	}
	return false
}

// Playlist reports whether t resolves a playlist into multiple items.
func (t JobType) Playlist() bool {
	return t == JobTypePlaylistAudio || t == JobTypePlaylistVideo
}

// Video reports whether t produces a video file.
func (t JobType) Video() bool {
	return t == JobTypeVideo || t == JobTypePlaylistVideo
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusPaused     JobStatus = "paused"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusPartial    JobStatus = "partial"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusPartial || s == JobStatusFailed
}

// QueueJob represents one requested download operation tracked through the queue.
type QueueJob struct {
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	Error     *string    `json:"error,omitempty" db:"error"`
	FileID    *string    `json:"file_id,omitempty" db:"file_id"`
	ID        string     `json:"id" db:"id"`
	URL       string     `json:"url" db:"url"`
	Type      JobType    `json:"type" db:"type"`
	Status    JobStatus  `json:"status" db:"status"`
	Options   JobOptions `json:"options" db:"options"`
	Progress  int        `json:"progress" db:"progress"`
}

// File represents a successfully produced media artifact.
type File struct {
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Artist        string    `json:"artist" db:"artist"`
	FileType      string    `json:"file_type" db:"file_type"`
	Path          string    `json:"path" db:"path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	SourceURL     string    `json:"source_url,omitempty" db:"source_url"`
	GroupType     string    `json:"group_type,omitempty" db:"group_type"`
	GroupName     string    `json:"group_name,omitempty" db:"group_name"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	Duration      int       `json:"duration" db:"duration"`
	Rank          int       `json:"rank,omitempty" db:"rank"`
	Downloads     int       `json:"downloads" db:"downloads"`
}

// CacheEntry is a memoized record of a previously produced file, used for
// deduplication. The lookup key is (NormTitle, NormArtist, FileType).
type CacheEntry struct {
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	LastUsedAt    time.Time `json:"last_used_at" db:"last_used_at"`
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Artist        string    `json:"artist" db:"artist"`
	NormTitle     string    `json:"norm_title" db:"norm_title"`
	NormArtist    string    `json:"norm_artist" db:"norm_artist"`
	FileType      string    `json:"file_type" db:"file_type"`
	Path          string    `json:"path" db:"path"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	SourceURL     string    `json:"source_url,omitempty" db:"source_url"`
	GroupType     string    `json:"group_type,omitempty" db:"group_type"`
	GroupName     string    `json:"group_name,omitempty" db:"group_name"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	Duration      int       `json:"duration" db:"duration"`
	Rank          int       `json:"rank,omitempty" db:"rank"`
	IsTemporary   bool      `json:"is_temporary" db:"is_temporary"`
}

// CacheStat aggregates dedup cache hits and misses per calendar day.
type CacheStat struct {
	Day    string `json:"day" db:"day"`
	Hits   int    `json:"hits" db:"hits"`
	Misses int    `json:"misses" db:"misses"`
}
