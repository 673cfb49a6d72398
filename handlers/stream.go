// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/models"
)

// Stream message types
const (
	MessageBoard = "board"
)

// StreamConfig holds WebSocket timing and buffer settings
type StreamConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     16,
	}
}

type streamConn struct {
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *streamConn) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// StreamHandler pushes the public board to WebSocket clients whenever the
// synchronizer reconciles a change.
type StreamHandler struct {
	sync     *board.Synchronizer
	config   StreamConfig
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*streamConn]struct{}
	closed bool
	sub    board.Subscription
}

func NewStreamHandler(sync *board.Synchronizer, config StreamConfig) *StreamHandler {
	if config.SendBuffer < 1 {
		config.SendBuffer = 1
	}
	h := &StreamHandler{
		sync:   sync,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks are left to the CORS settings
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*streamConn]struct{}),
	}
	h.sub = sync.Subscribe(h.broadcast)
	return h
}

// Count returns the number of connected clients
func (h *StreamHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func encodeBoard(b models.Board) ([]byte, error) {
	return json.Marshal(models.StreamMessage{Type: MessageBoard, Data: boardView(b, false)})
}

func (h *StreamHandler) broadcast(b models.Board) {
	msg, err := encodeBoard(b)
	if err != nil {
		slog.Error("failed to encode board frame", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- msg:
		default:
			// Slow client; drop it rather than block the synchronizer
			slog.Warn("dropping slow stream client", "remote", c.ws.RemoteAddr().String())
			delete(h.conns, c)
			c.close()
		}
	}
}

// ServeHTTP handles GET /board/stream
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an error response
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &streamConn{ws: ws, send: make(chan []byte, h.config.SendBuffer)}

	if b, err := h.sync.Board(); err == nil {
		if msg, err := encodeBoard(b); err == nil {
			c.send <- msg
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return
	}
	h.conns[c] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()

	slog.Info("stream client connected", "remote", ws.RemoteAddr().String(), "clients", count)

	go h.writePump(c)
	h.readPump(c)
}

func (h *StreamHandler) remove(c *streamConn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards client frames and keeps the read deadline alive
func (h *StreamHandler) readPump(c *streamConn) {
	defer func() {
		h.remove(c)
		c.ws.Close()
		slog.Info("stream client disconnected", "remote", c.ws.RemoteAddr().String())
	}()

	c.ws.SetReadLimit(h.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("stream read error", "error", err)
			}
			return
		}
	}
}

func (h *StreamHandler) writePump(c *streamConn) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close stops broadcasting and disconnects every client
func (h *StreamHandler) Close() {
	h.sub.Cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.conns {
		delete(h.conns, c)
		c.close()
	}
}
