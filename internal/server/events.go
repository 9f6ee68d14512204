package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// appEvent notifies connected viewers about catalog changes so open list
// pages stay consistent without polling.
type appEvent struct {
	Event string `json:"event"` // "created" or "deleted"
	AppID string `json:"app_id"`
}

// eventHub fans app events out to websocket subscribers.
type eventHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newEventHub() *eventHub {
	return &eventHub{conns: make(map[*websocket.Conn]bool)}
}

func (h *eventHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("events: websocket upgrade: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()

	// Subscribers never send payloads; the read loop only detects close.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *eventHub) broadcast(event, appID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(appEvent{Event: event, AppID: appID}); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *eventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.conns, conn)
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
