package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"

	"voxel-royale/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// Client input is sampled at most this often per connection
	wsMessagesPerSecond = 120
	wsMessageBurst      = 30

	wsWriteTimeout = 2 * time.Second
	wsMaxMessage   = 4096
)

// wsFrame is the envelope pushed to clients, msgpack encoded
type wsFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// wsCommand is a client message. Type is "input" or "action".
type wsCommand struct {
	Type    string   `json:"type"`
	Intents []string `json:"intents"`
	Yaw     float64  `json:"yaw"`
	Pitch   float64  `json:"pitch"`
	Action  string   `json:"action"`
	Weapon  string   `json:"weapon"`
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	limiter *rate.Limiter
}

// HubConfig controls who may open a WebSocket.
type HubConfig struct {
	// Origins accepted in addition to localhost and 127.0.0.1
	AllowedOrigins []string
	TrustProxy     bool
}

// WebSocketHub pushes snapshot frames to every connected client and
// forwards their input to the engine.
type WebSocketHub struct {
	engine     EngineInterface
	cfg        HubConfig
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	stopChan   chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	// Open and reserved connections per IP, guarded by mu
	perIP map[string]int
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface, cfg HubConfig) *WebSocketHub {
	h := &WebSocketHub{
		engine:     engine,
		cfg:        cfg,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stopChan:   make(chan struct{}),
		perIP:      make(map[string]int),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16384,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// originAllowed accepts local pages, configured origins and clients that
// send no Origin at all
func (h *WebSocketHub) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.originAllowed(origin) {
		return true
	}
	log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
	RecordConnectionRejected("origin")
	return false
}

// reserve claims a connection slot for ip. The total counts reserved slots
// too, so concurrent upgrades cannot overshoot MaxWSConnectionsTotal.
func (h *WebSocketHub) reserve(ip string) (ok bool, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, n := range h.perIP {
		total += n
	}
	switch {
	case total >= MaxWSConnectionsTotal:
		reason = "ws_total_limit"
	case h.perIP[ip] >= MaxWSConnectionsPerIP:
		reason = "ws_ip_limit"
	default:
		h.perIP[ip]++
		return true, ""
	}
	return false, reason
}

// releaseLocked frees a slot claimed by reserve. Caller holds mu.
func (h *WebSocketHub) releaseLocked(ip string) {
	if h.perIP[ip] <= 1 {
		delete(h.perIP, ip)
		return
	}
	h.perIP[ip]--
}

func (h *WebSocketHub) release(ip string) {
	h.mu.Lock()
	h.releaseLocked(ip)
	h.mu.Unlock()
}

// Run owns all connection writes until Stop is called
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.drop(conn)
			count := h.ClientCount()
			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			for _, conn := range conns {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
					h.drop(conn)
				}
			}
			IncrementWSMessages()

		case <-h.stopChan:
			h.mu.Lock()
			for conn, client := range h.clients {
				h.releaseLocked(client.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// drop removes and closes a connection, releasing its IP slot once
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[conn]; ok {
		h.releaseLocked(client.ip)
		delete(h.clients, conn)
		conn.Close()
	}
}

// Stop closes every connection and ends Run and the broadcast loop
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// encodeFrame packs an event as msgpack using the json field names so
// browser clients see the same keys as the REST API. Snapshot.World is
// tagged json:"-" and stays out of the frame.
func encodeFrame(event string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(wsFrame{Event: event, Data: data}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("❌ Frame encode failed: %v", err)
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the latest snapshot hz times per second.
// A snapshot is sent once even if several broadcast ticks see it.
func (h *WebSocketHub) StartBroadcastLoop(hz int) {
	if hz <= 0 {
		hz = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.Snapshot()
			if snap == nil || snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast("match:snapshot", snap)
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, h.cfg.TrustProxy)

	if ok, reason := h.reserve(ip); !ok {
		log.Printf("⚠️ WebSocket connection from %s rejected: %s", ip, reason)
		RecordConnectionRejected(reason)
		if reason == "ws_total_limit" {
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		} else {
			http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.release(ip)
		return
	}
	conn.SetReadLimit(wsMaxMessage)

	client := &wsClient{
		conn:    conn,
		ip:      ip,
		limiter: rate.NewLimiter(wsMessagesPerSecond, wsMessageBurst),
	}
	select {
	case h.register <- client:
	case <-h.stopChan:
		h.release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

// readLoop applies client commands until the connection fails
func (h *WebSocketHub) readLoop(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c.conn:
		case <-h.stopChan:
		}
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			continue
		}

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		h.apply(c, cmd)
	}
}

func (h *WebSocketHub) apply(c *wsClient, cmd wsCommand) {
	switch cmd.Type {
	case "input":
		if err := applyInput(h.engine, inputRequest{Intents: cmd.Intents, Yaw: cmd.Yaw, Pitch: cmd.Pitch}); err != nil {
			log.Printf("📨 Bad input from %s: %v", c.ip, err)
		}
	case "action":
		if _, err := runAction(h.engine, cmd.Action, cmd.Weapon); err != nil && err != errQueueFull {
			log.Printf("📨 Action %q from %s refused: %v", cmd.Action, c.ip, err)
		}
	}
}

// Compile-time check that the engine satisfies the hub's needs
var _ EngineInterface = (*game.Engine)(nil)
