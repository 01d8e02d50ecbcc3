// Package handlers provides HTTP request handlers for the portsweep API.
// This file implements the WebSocket endpoint that streams one scan's
// results and progress, followed by its final report.
package handlers

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/metrics"
	"github.com/anstrom/portsweep/internal/scanning"
)

const (
	// WebSocket configuration constants.
	writeWait       = 10 * time.Second                                   // Time allowed to write a message to the peer
	pongWait        = 60 * time.Second                                   // Time to read next pong message from peer
	pingPeriodRatio = 0.9                                                // Ratio of pongWait for pingPeriod
	pingPeriod      = time.Duration(float64(pongWait) * pingPeriodRatio) // Send pings to peer (must be < pongWait)
	maxMessageSize  = 512                                                // Maximum message size allowed from peer
	bufferSize      = 256                                                // Headroom for progress messages per client
)

// WebSocket message types.
const (
	MessageResult   = "result"
	MessageProgress = "progress"
	MessageReport   = "report"
)

// WebSocketMessage represents a WebSocket message structure.
type WebSocketMessage struct {
	Type      string      `json:"type"`
	ScanID    string      `json:"scan_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WebSocketHandler streams scan events to WebSocket clients.
//
// The first client to watch a scan starts a stream that drains the
// session's result and progress channels and fans them out to every client
// of that scan. Results emitted before the stream started are delivered to
// that first client only; later clients see events from the moment they
// join and the same final report.
type WebSocketHandler struct {
	service  scanning.Service
	logger   *logging.Logger
	recorder metrics.HTTPRecorder
	upgrader websocket.Upgrader

	mu      sync.Mutex
	streams map[string]*scanStream
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins
// restricts browser origins; empty or "*" allows any.
func NewWebSocketHandler(
	service scanning.Service,
	logger *logging.Logger,
	recorder metrics.HTTPRecorder,
	allowedOrigins []string,
) *WebSocketHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &WebSocketHandler{
		service:  service,
		logger:   logger.WithComponent("api").WithFields("handler", "websocket"),
		recorder: recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		streams: make(map[string]*scanStream),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// ScanWebSocket streams one scan. The connection is closed normally after
// the report message.
func (h *WebSocketHandler) ScanWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := extractStringFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	session, err := h.service.Get(id)
	if err != nil {
		handleServiceError(w, r, err, "watch", "scan", h.logger)
		return
	}

	logger := h.logger.WithContext(r.Context()).WithScanID(id)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warn("Failed to upgrade WebSocket connection", "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("Error closing WebSocket connection", "error", err)
		}
	}()

	h.recorder.AddWebSocketClients(1)
	defer h.recorder.AddWebSocketClients(-1)
	logger.Info("WebSocket client connected", "remote_addr", r.RemoteAddr)

	readDone := make(chan struct{})
	go h.readPump(conn, readDone, logger)
	h.writePump(conn, session, readDone, logger)
}

// readPump discards client messages and notices when the peer goes away.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, done chan<- struct{}, logger *logging.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(
	conn *websocket.Conn,
	session *scanning.Session,
	readDone <-chan struct{},
	logger *logging.Logger,
) {
	var events <-chan WebSocketMessage
	if session.Report() == nil {
		ch, unsubscribe := h.subscribe(session)
		defer unsubscribe()
		events = ch
	}
	if events == nil {
		// Already finished: the report is all there is
		if err := writeMessage(conn, reportMessage(session)); err == nil {
			closeConn(conn, websocket.CloseNormalClosure, "scan finished")
		}
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				logger.Warn("WebSocket client too slow, dropping")
				closeConn(conn, websocket.CloseTryAgainLater, "client too slow")
				return
			}
			if err := writeMessage(conn, msg); err != nil {
				logger.Debug("WebSocket write failed", "error", err)
				return
			}
			if msg.Type == MessageReport {
				closeConn(conn, websocket.CloseNormalClosure, "scan finished")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("Ping failed, closing connection", "error", err)
				return
			}
		case <-readDone:
			return
		}
	}
}

// subscribe joins the scan's stream, starting it if needed. It returns a
// nil channel if the stream has already delivered its report.
func (h *WebSocketHandler) subscribe(session *scanning.Session) (<-chan WebSocketMessage, func()) {
	h.mu.Lock()
	st, ok := h.streams[session.ID()]
	if !ok {
		st = &scanStream{subscribers: make(map[chan WebSocketMessage]struct{})}
		h.streams[session.ID()] = st
		go h.pump(session, st)
	}
	h.mu.Unlock()

	// Room for one event per port keeps results and the report from ever
	// overflowing; only progress competes for the headroom.
	ch := make(chan WebSocketMessage, session.Total()+bufferSize)
	if !st.add(ch) {
		return nil, func() {}
	}
	return ch, func() { st.remove(ch) }
}

// pump drains the session's channels until the report is sealed.
func (h *WebSocketHandler) pump(session *scanning.Session, st *scanStream) {
	id := session.ID()
	results, progress := session.Results(), session.Progress()

	for results != nil || progress != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			st.broadcast(newMessage(MessageResult, id, res), false)
		case p, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			st.broadcast(newMessage(MessageProgress, id, ProgressResponse{
				Completed: p.Completed,
				Total:     p.Total,
				Open:      p.Open,
				Percent:   p.Percent(),
			}), true)
		}
	}

	<-session.Done()
	st.broadcast(reportMessage(session), false)

	h.mu.Lock()
	delete(h.streams, id)
	h.mu.Unlock()
	st.close()
}

func newMessage(msgType, scanID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		Type:      msgType,
		ScanID:    scanID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func reportMessage(session *scanning.Session) WebSocketMessage {
	return newMessage(MessageReport, session.ID(), session.Report())
}

func writeMessage(conn *websocket.Conn, msg WebSocketMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func closeConn(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

// scanStream fans one session's events out to its subscribers. Subscriber
// channels are closed only here: on close, or when a client falls behind.
type scanStream struct {
	mu          sync.Mutex
	subscribers map[chan WebSocketMessage]struct{}
	closed      bool
}

func (st *scanStream) add(ch chan WebSocketMessage) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return false
	}
	st.subscribers[ch] = struct{}{}
	return true
}

func (st *scanStream) remove(ch chan WebSocketMessage) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.subscribers, ch)
}

// broadcast never blocks. Droppable messages are skipped for a client
// whose buffer is half full; a client that cannot take a result or the
// report is disconnected.
func (st *scanStream) broadcast(msg WebSocketMessage, droppable bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for ch := range st.subscribers {
		if droppable && len(ch) > bufferSize/2 {
			continue
		}
		select {
		case ch <- msg:
		default:
			delete(st.subscribers, ch)
			close(ch)
		}
	}
}

func (st *scanStream) close() {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.closed = true
	for ch := range st.subscribers {
		delete(st.subscribers, ch)
		close(ch)
	}
}
