package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/evdash/core/logger"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12

	defaultStreamInterval = 100 * time.Millisecond
	minStreamInterval     = 16 * time.Millisecond
	maxStreamInterval     = 10 * time.Second
)

// StreamOptions tunes the websocket stream.
type StreamOptions struct {
	// Interval is the default period between frames; clients may override it
	// with ?interval_ms=.
	Interval time.Duration
	Log      logger.Logger
}

// Envelope is the websocket frame.
type Envelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type streamHandler struct {
	engine   Engine
	interval time.Duration
	log      logger.Logger
}

// NewStreamHandler pushes snapshots over a websocket via GET /api/stream.
func NewStreamHandler(e Engine, opts StreamOptions) http.Handler {
	if opts.Interval <= 0 {
		opts.Interval = defaultStreamInterval
	}
	return &streamHandler{engine: e, interval: opts.Interval, log: logger.OrNop(opts.Log)}
}

func (h *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	interval := h.parseInterval(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("ws upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.drain(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.send(conn); err != nil {
		h.log.Debugf("ws initial write failed: %v", err)
		return
	}
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Debugf("ws ping failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := h.send(conn); err != nil {
				h.log.Debugf("ws write failed: %v", err)
				return
			}
		}
	}
}

// parseInterval reads ?interval_ms= within bounds, falling back to the
// handler default.
func (h *streamHandler) parseInterval(r *http.Request) time.Duration {
	if ms := r.URL.Query().Get("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			d := time.Duration(v) * time.Millisecond
			if d >= minStreamInterval && d <= maxStreamInterval {
				return d
			}
		}
	}
	return h.interval
}

// drain reads until the client goes away so control frames are handled.
func (h *streamHandler) drain(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *streamHandler) send(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Envelope{Type: "state", Data: h.engine.Snapshot()})
}
