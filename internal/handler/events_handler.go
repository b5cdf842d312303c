package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"go-ocr-inventory/internal/event"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/websocket"
)

// Snapshot is the state sent to a websocket client right after it connects.
type Snapshot interface {
	Inventory() model.Inventory
	Messages() []model.StatusMessage
	Session() model.UploadSession
}

type EventsHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	snapshot Snapshot
}

func NewEventsHandler(hub *websocket.Hub, snapshot Snapshot, allowedOrigins []string) *EventsHandler {
	return &EventsHandler{
		hub:      hub,
		upgrader: websocket.Upgrader(allowedOrigins),
		snapshot: snapshot,
	}
}

func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	initial := []event.Event{
		event.New(event.TypeInventoryReconciled, h.snapshot.Inventory()),
		event.New(event.TypeUploadPhase, h.snapshot.Session()),
	}
	for _, message := range h.snapshot.Messages() {
		initial = append(initial, event.New(event.TypeStatusChanged, message))
	}

	h.hub.ServeWS(h.upgrader, w, r, initial...)
}
