package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 8

	// DefaultTopN is the number of signals pushed with each report
	DefaultTopN = 20
)

// Message types
const (
	TypeReport = "report"
)

// Message is the envelope sent to clients
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ReportPayload is the pushed summary of a report
type ReportPayload struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Total       int                `json:"total"`
	Actionable  int                `json:"actionable"`
	Signals     []contracts.Signal `json:"signals"`
}

// NewReportPayload summarizes a report with its topN signals
func NewReportPayload(report *pipeline.Report, topN int) ReportPayload {
	return ReportPayload{
		ID:          report.ID,
		GeneratedAt: report.GeneratedAt,
		Total:       report.TotalSignals(),
		Actionable:  report.ActionableSignals(),
		Signals:     report.TopSignals(topN),
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts every published report to connected websocket clients.
// New clients receive the last report on connect. Clients that cannot keep
// up are dropped.
// ⭐ SSOT: 실시간 시그널 푸시는 여기서만
type Hub struct {
	upgrader websocket.Upgrader
	topN     int

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
	closed  bool

	logger *logger.Logger
}

// NewHub creates a new websocket hub
func NewHub(topN int, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 대시보드는 별도 origin
			},
		},
		topN:    topN,
		clients: make(map[*client]struct{}),
		logger:  log.Module("stream"),
	}
}

// Publish implements pipeline.Publisher
func (h *Hub) Publish(ctx context.Context, report *pipeline.Report) error {
	data, err := json.Marshal(Message{Type: TypeReport, Payload: NewReportPayload(report, h.topN)})
	if err != nil {
		return fmt.Errorf("marshal report message: %w", err)
	}

	// 전송은 잠금 안에서 수행 (remove 의 close 와 경합 방지)
	var slow []*client
	h.mu.Lock()
	h.last = data
	sent := len(h.clients)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("Client too slow, disconnecting")
		h.remove(c)
	}

	h.logger.WithFields(map[string]interface{}{
		"report_id": report.ID,
		"clients":   sent - len(slow),
	}).Debug("Broadcast report")

	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithFields(map[string]interface{}{
		"remote":  r.RemoteAddr,
		"clients": count,
	}).Info("Websocket client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()

	if ok {
		close(c.send)
	}
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Websocket read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
