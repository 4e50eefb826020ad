// Package server provides the HTTP server for the VeinScope imaging system.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/circuito/veinscope/internal/app"
	"github.com/circuito/veinscope/internal/detector"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// DetectionsHandler broadcasts the latest detection set via WebSocket.
type DetectionsHandler struct {
	app     *app.App
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewDetectionsHandler creates a new DetectionsHandler backed by the given
// pipeline and starts its broadcast loop.
func NewDetectionsHandler(a *app.App) *DetectionsHandler {
	h := &DetectionsHandler{
		app:     a,
		clients: make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DetectionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends detection data to all connected clients. Ticks with no
// new frame are skipped so idle pipelines stay quiet.
func (h *DetectionsHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	var lastSeq uint64
	for range ticker.C {
		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		h.mu.RUnlock()

		detections, seq := h.app.LatestDetections()
		if seq == lastSeq {
			continue
		}
		lastSeq = seq

		if detections == nil {
			detections = []detector.Detection{}
		}

		msg, _ := json.Marshal(map[string]any{
			"detections": detections,
			"seq":        seq,
			"timestamp":  time.Now().UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
