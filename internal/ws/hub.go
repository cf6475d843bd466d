// Package ws pushes pipeline snapshots to browser clients over WebSocket.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bakeyeon/sentiment-translator/internal/pipeline"
)

const (
	maxClientsPerSession = 50
	writeDeadline        = 5 * time.Second
)

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	sessionID uuid.UUID
	conn      *websocket.Conn
	errCh     chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	sessionID uuid.UUID
	conn      *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdPublish struct {
	sessionID uuid.UUID
	data      []byte
}

func (cmdPublish) hubCmd() {}

type cmdForget struct {
	sessionID uuid.UUID
}

func (cmdForget) hubCmd() {}

type cmdClientCount struct {
	sessionID uuid.UUID
	replyCh   chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// Hub fans each session's snapshots out to its connected clients. It is an
// actor: all state is owned by the run goroutine and mutated through cmdCh.
//
// The latest snapshot per session is retained so a client that connects
// mid-session immediately sees the current state instead of waiting for the
// next transition. Publish implements pipeline.Sink.
type Hub struct {
	cmdCh   chan hubCmd
	clients map[uuid.UUID]map[*websocket.Conn]*clientWriter
	latest  map[uuid.UUID][]byte
}

func NewHub() *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clients: make(map[uuid.UUID]map[*websocket.Conn]*clientWriter),
		latest:  make(map[uuid.UUID][]byte),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.sessionID, c.conn)
		case cmdPublish:
			h.handlePublish(c)
		case cmdForget:
			delete(h.latest, c.sessionID)
		case cmdClientCount:
			c.replyCh <- len(h.clients[c.sessionID])
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	clients, exists := h.clients[c.sessionID]
	if !exists {
		clients = make(map[*websocket.Conn]*clientWriter)
		h.clients[c.sessionID] = clients
	}

	if len(clients) >= maxClientsPerSession {
		slog.Warn("Rejecting WebSocket client, session is full", "session_id", c.sessionID.String(), "max_clients", maxClientsPerSession)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients per session (%d) reached", maxClientsPerSession)
		return
	}

	cw := newClientWriter(c.conn)
	clients[c.conn] = cw

	// Replay the latest snapshot so the client renders without waiting for
	// the next transition.
	if data, ok := h.latest[c.sessionID]; ok {
		cw.sendCh <- data
	}

	slog.Debug("WebSocket client registered", "session_id", c.sessionID.String(), "total_clients", len(clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(sessionID uuid.UUID, conn *websocket.Conn) {
	clients, exists := h.clients[sessionID]
	if !exists {
		return
	}

	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)

	if len(clients) == 0 {
		delete(h.clients, sessionID)
		slog.Debug("Last WebSocket client disconnected", "session_id", sessionID.String())
	}
}

func (h *Hub) handlePublish(c cmdPublish) {
	h.latest[c.sessionID] = c.data

	clients, exists := h.clients[c.sessionID]
	if !exists {
		return
	}

	var slow []*websocket.Conn
	for conn, cw := range clients {
		select {
		case cw.sendCh <- c.data:
		default:
			// client is not draining its buffer, drop it
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow WebSocket client", "session_id", c.sessionID.String())
		h.handleUnregister(c.sessionID, conn)
	}
}

func (h *Hub) handleStop() {
	for sessionID, clients := range h.clients {
		for _, cw := range clients {
			cw.stop()
		}
		delete(h.clients, sessionID)
	}
}

// --- Public API ---

// Register adds a client connection to a session's fan-out set. The latest
// snapshot, if any, is sent immediately.
func (h *Hub) Register(sessionID uuid.UUID, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- cmdRegister{sessionID: sessionID, conn: conn, errCh: errCh}
	return <-errCh
}

// Unregister removes a client connection and stops its writer.
func (h *Hub) Unregister(sessionID uuid.UUID, conn *websocket.Conn) {
	h.cmdCh <- cmdUnregister{sessionID: sessionID, conn: conn}
}

// Publish broadcasts a pipeline snapshot to every client of the session.
// Implements pipeline.Sink.
func (h *Hub) Publish(sessionID uuid.UUID, snap pipeline.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to marshal pipeline snapshot", "session_id", sessionID.String(), "error", err)
		return
	}
	h.cmdCh <- cmdPublish{sessionID: sessionID, data: data}
}

// Forget drops the retained snapshot of an expired session.
func (h *Hub) Forget(sessionID uuid.UUID) {
	h.cmdCh <- cmdForget{sessionID: sessionID}
}

// ClientCount returns the number of connected clients for a session.
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdClientCount{sessionID: sessionID, replyCh: replyCh}
	return <-replyCh
}

// Stop closes every client connection and terminates the actor.
func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}
