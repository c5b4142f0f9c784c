package httpapp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/constants"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/events"
)

type enqueueRequest struct {
	URL     string            `json:"url"`
	Type    domain.JobType    `json:"type"`
	Options domain.JobOptions `json:"options"`
}

func (h *Handler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	job, err := h.Manager.Enqueue(req.URL, req.Type, req.Options)
	if err != nil {
		h.respondError(w, errorStatus(err), err)
		return
	}

	h.respond(w, http.StatusCreated, job)
}

func (h *Handler) QueueSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Manager.Summary()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	jobs, err := h.Manager.List(constants.MaxRecentFiles)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	groups, err := h.Store.RecentGroups(constants.MaxRecentGroups)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}

	h.respond(w, http.StatusOK, map[string]interface{}{
		"stats":  stats,
		"jobs":   jobs,
		"groups": groups,
	})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Manager.GetStatus(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, errorStatus(err), err)
		return
	}
	h.respond(w, http.StatusOK, job)
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Cancel(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, errorStatus(err), err)
		return
	}
	h.respond(w, http.StatusOK, map[string]bool{"cancelled": true})
}

func (h *Handler) PauseJob(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Pause(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, errorStatus(err), err)
		return
	}
	h.respond(w, http.StatusOK, map[string]bool{"paused": true})
}

func (h *Handler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.Resume(chi.URLParam(r, "id")); err != nil {
		h.respondError(w, errorStatus(err), err)
		return
	}
	h.respond(w, http.StatusOK, map[string]bool{"resumed": true})
}

func (h *Handler) PauseAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.Manager.PauseAll()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"paused": n})
}

func (h *Handler) ResumeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.Manager.ResumeAll()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"resumed": n})
}

func (h *Handler) CleanupQueue(w http.ResponseWriter, r *http.Request) {
	days := constants.CompletedRetentionDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, fmt.Errorf("days must be a positive number, got %q", v))
			return
		}
		days = n
	}

	n, err := h.Manager.CleanupOld(days)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.Store.ListFiles(constants.MaxRecentFiles)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, files)
}

func (h *Handler) RecentGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Store.RecentGroups(constants.MaxRecentGroups)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, groups)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.Store.GetFile(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if file == nil {
		h.respondError(w, http.StatusNotFound, fmt.Errorf("file not found"))
		return
	}
	h.respond(w, http.StatusOK, file)
}

// DownloadFile serves the media bytes and counts the download.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, err := h.Store.GetFile(id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	if file == nil {
		h.respondError(w, http.StatusNotFound, fmt.Errorf("file not found"))
		return
	}

	if err := h.Store.IncrementFileDownloads(id); err != nil {
		h.Logger.Warn("Failed to count download", "file_id", id, "error", err)
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(file.Path)))
	http.ServeFile(w, r, file.Path)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.ListCacheStats(constants.MaxCacheStatDays)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, stats)
}

func (h *Handler) CacheCleanup(w http.ResponseWriter, r *http.Request) {
	report, err := h.Dedup.CleanupTemporary()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, report)
}

func (h *Handler) DeleteTemporary(w http.ResponseWriter, r *http.Request) {
	report, err := h.Dedup.DeleteAllTemporary()
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, report)
}

func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.Settings.Get(key)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	key := chi.URLParam(r, "key")
	if err := h.Settings.Set(key, body.Value); err != nil {
		h.respondError(w, http.StatusInternalServerError, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"key": key, "value": body.Value})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := map[string]string{"status": "ok", "tools": "ok", "db": "ok"}

	if err := h.Tools.EnsureInstalled(); err != nil {
		health["status"] = "degraded"
		health["tools"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.Store.Ping(); err != nil {
		health["status"] = "degraded"
		health["db"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	h.respond(w, status, health)
}

// QueueWS subscribes a websocket client to live updates for one job, or for
// all jobs when the id is "all".
func (h *Handler) QueueWS(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		http.Error(w, "realtime updates disabled", http.StatusNotImplemented)
		return
	}

	jobID := chi.URLParam(r, "id")
	if jobID != events.AllJobs {
		if _, err := h.Manager.GetStatus(jobID); err != nil {
			h.respondError(w, errorStatus(err), err)
			return
		}
	}

	if err := events.ServeWS(h.Hub, w, r, jobID); err != nil {
		h.Logger.Warn("Websocket upgrade failed", "job_id", jobID, "error", err)
	}
}
