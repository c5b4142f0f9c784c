// Package httpapp exposes the queue, file library and cache over a JSON API.
package httpapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/dedup"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/events"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/queue"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/store"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/tools"
)

type Handler struct {
	Manager  *queue.Manager
	Store    *store.DB
	Settings *store.SettingsRepo
	Dedup    *dedup.Service
	Tools    *tools.Provisioner
	Hub      *events.Hub
	Logger   *logger.Logger
}

func NewHandler(m *queue.Manager, db *store.DB, sr *store.SettingsRepo, dd *dedup.Service, prov *tools.Provisioner, hub *events.Hub, log *logger.Logger) *Handler {
	return &Handler{
		Manager:  m,
		Store:    db,
		Settings: sr,
		Dedup:    dd,
		Tools:    prov,
		Hub:      hub,
		Logger:   log.WithComponent("http"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/queue", h.EnqueueJob)
		r.Get("/queue", h.QueueSummary)
		r.Post("/queue/pause-all", h.PauseAll)
		r.Post("/queue/resume-all", h.ResumeAll)
		r.Post("/queue/cleanup", h.CleanupQueue)
		r.Get("/queue/{id}", h.GetJob)
		r.Post("/queue/{id}/cancel", h.CancelJob)
		r.Post("/queue/{id}/pause", h.PauseJob)
		r.Post("/queue/{id}/resume", h.ResumeJob)

		r.Get("/files", h.ListFiles)
		r.Get("/files/groups", h.RecentGroups)
		r.Get("/files/{id}", h.GetFile)
		r.Get("/files/{id}/download", h.DownloadFile)

		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/cleanup", h.CacheCleanup)
		r.Delete("/cache/temporary", h.DeleteTemporary)

		r.Get("/settings/{key}", h.GetSetting)
		r.Put("/settings/{key}", h.PutSetting)

		r.Get("/health", h.Health)
	})

	r.Get("/ws/queue/{id}", h.QueueWS)
}

func (h *Handler) respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, err error) {
	h.respond(w, status, map[string]string{"error": err.Error()})
}

// errorStatus maps queue errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrEmptyURL),
		errors.Is(err, queue.ErrInvalidJobType),
		errors.Is(err, queue.ErrInvalidOptions),
		errors.Is(err, queue.ErrJobNotActive):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
