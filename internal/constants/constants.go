// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort          = "8080"
	DefaultDBPath        = "personalaudio.db"
	DefaultConcurrency   = 1
	DefaultAudioFormat   = "mp3"
	DefaultYtDlpTimeout  = 30 * time.Minute
	MetadataFetchTimeout = 60 * time.Second
)

// Queue maintenance
const (
	MaxTemporaryCacheEntries = 200
	CompletedRetentionDays   = 7
	FailedRetentionDays      = 30
	RecoveryScheduleDelay    = 3 * time.Second
)

// Sentinel messages
const (
	CancelledByUser = "cancelled by user"
)

// Audio formats
const (
	AudioFormatMP3  = "mp3"
	AudioFormatFLAC = "flac"
)

// File types recorded on File rows and cache entries
const (
	FileTypeMP3  = "mp3"
	FileTypeMP4  = "mp4"
	FileTypeFLAC = "flac"
)

// File extensions
const (
	ExtMP3  = ".mp3"
	ExtMP4  = ".mp4"
	ExtFLAC = ".flac"
	ExtJPG  = ".jpg"
)

// File permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Listing limits
const (
	MaxRecentFiles   = 50
	MaxRecentGroups  = 10
	MaxCacheStatDays = 30
)

// Characters to sanitize from filesystem paths
const InvalidPathChars = "<>:\"/\\|?*"
