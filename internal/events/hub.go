package events

import (
	"time"

	"github.com/TaehongKim/PersonalAudio-sub000/internal/domain"
	"github.com/TaehongKim/PersonalAudio-sub000/internal/logger"
)

// AllJobs is the subscription key that receives events for every job.
const AllJobs = "all"

// Hub maintains the set of active clients keyed by job id and broadcasts
// messages to them.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.WithComponent("events"),
	}
}

// Run starts the hub's main event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.jobID] == nil {
				h.clients[client.jobID] = make(map[*Client]bool)
			}
			h.clients[client.jobID][client] = true
			h.log.Debug("Client subscribed", "job_id", client.jobID)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.jobID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.jobID)
					}
				}
			}
			h.log.Debug("Client unsubscribed", "job_id", client.jobID)

		case msg := <-h.broadcast:
			h.deliver(msg.JobID, msg)
			if msg.JobID != AllJobs {
				h.deliver(AllJobs, msg)
			}
		}
	}
}

func (h *Hub) deliver(key string, msg Message) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- msg:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func (h *Hub) push(msg Message) {
	msg.Timestamp = time.Now()
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("Broadcast channel full, dropping message", "job_id", msg.JobID, "type", msg.Type)
	}
}

func (h *Hub) EmitStatus(jobID string, status domain.JobStatus, progress int) {
	h.push(Message{JobID: jobID, Type: "status", Status: status, Progress: progress})
}

func (h *Hub) EmitComplete(jobID string, file *domain.File) {
	h.push(Message{JobID: jobID, Type: "complete", Status: domain.JobStatusCompleted, Progress: 100, File: file})
}

func (h *Hub) EmitError(jobID string, message string) {
	h.push(Message{JobID: jobID, Type: "error", Message: message})
}

func (h *Hub) EmitPlaylistItemProgress(jobID string, index, total int, title string, percent int) {
	h.push(Message{JobID: jobID, Type: "item_progress", Index: index, Total: total, Title: title, Progress: percent})
}

func (h *Hub) EmitPlaylistItemComplete(jobID string, index, total int, file *domain.File) {
	h.push(Message{JobID: jobID, Type: "item_complete", Index: index, Total: total, Progress: 100, File: file})
}
