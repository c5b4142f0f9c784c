// Package events fans out job state transitions to subscribed observers.
package events

import (
	"time"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
)

// Broadcaster is a pure notification sink. The queue and downloader must
// behave identically whether the sink is the websocket hub or Nop.
type Broadcaster interface {
	EmitStatus(jobID string, status domain.JobStatus, progress int)
	EmitComplete(jobID string, file *domain.File)
	EmitError(jobID string, message string)
	EmitPlaylistItemProgress(jobID string, index, total int, title string, percent int)
	EmitPlaylistItemComplete(jobID string, index, total int, file *domain.File)
}

// Message is the wire format pushed to websocket clients.
type Message struct {
	Timestamp time.Time        `json:"timestamp"`
	File      *domain.File     `json:"file,omitempty"`
	JobID     string           `json:"job_id"`
	Type      string           `json:"type"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message,omitempty"`
	Progress  int              `json:"progress"`
	Index     int              `json:"index,omitempty"`
	Total     int              `json:"total,omitempty"`
}

// Nop discards all events. Used in tests and when realtime updates are
// disabled.
type Nop struct{}

func (Nop) EmitStatus(string, domain.JobStatus, int)                {}
func (Nop) EmitComplete(string, *domain.File)                       {}
func (Nop) EmitError(string, string)                                {}
func (Nop) EmitPlaylistItemProgress(string, int, int, string, int)  {}
func (Nop) EmitPlaylistItemComplete(string, int, int, *domain.File) {}
