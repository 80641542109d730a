package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/bet-intel/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (should be restricted in production)
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Client is one WebSocket subscriber. A client with no match
// subscriptions receives every analysis update.
type Client struct {
	MatchIDs []string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *AnalysisHub

	// lastSeen holds a unix-nano timestamp; read by the hub goroutine
	// and written by the read pump, so it goes through atomics.
	lastSeen atomic.Int64
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

func (c *Client) lastSeenAt() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// AnalysisHub fans pipeline analysis updates out to connected clients.
type AnalysisHub struct {
	clients      map[*Client]bool
	matchClients map[string][]*Client
	broadcast    chan services.AnalysisPayload
	register     chan *Client
	unregister   chan *Client
	logger       *logrus.Logger
	mutex        sync.RWMutex
}

// AnalysisMessage is the envelope sent to clients.
type AnalysisMessage struct {
	Type      string      `json:"type"` // "analysis", "connected", "pong"
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	MatchID   string      `json:"match_id,omitempty"`
}

func NewAnalysisHub(logger *logrus.Logger) *AnalysisHub {
	return &AnalysisHub{
		clients:      make(map[*Client]bool),
		matchClients: make(map[string][]*Client),
		broadcast:    make(chan services.AnalysisPayload, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		logger:       logger,
	}
}

// Run drives registration, fan-out and client health checks. Call it in
// its own goroutine.
func (h *AnalysisHub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case payload := <-h.broadcast:
			h.fanOut(payload)

		case <-ticker.C:
			h.pingClients()
		}
	}
}

// BroadcastAnalysis queues an analysis payload for fan-out. Drops the
// payload when the hub is saturated rather than blocking the pipeline.
func (h *AnalysisHub) BroadcastAnalysis(payload services.AnalysisPayload) {
	select {
	case h.broadcast <- payload:
	default:
		h.logger.WithField("match_id", payload.MatchID).Warn("Analysis broadcast queue full, dropping update")
	}
}

func (h *AnalysisHub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	for _, matchID := range client.MatchIDs {
		h.matchClients[matchID] = append(h.matchClients[matchID], client)
	}
	total := len(h.clients)
	h.mutex.Unlock()

	h.logger.WithFields(logrus.Fields{
		"match_ids":     client.MatchIDs,
		"total_clients": total,
	}).Info("Analysis WebSocket client connected")

	welcome := &AnalysisMessage{
		Type:      "connected",
		Data:      map[string]interface{}{"message": "Connected to live analysis stream"},
		Timestamp: time.Now(),
	}
	if !h.sendToClient(client, welcome) {
		h.unregisterClient(client)
	}
}

func (h *AnalysisHub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	for _, matchID := range client.MatchIDs {
		subscribers := h.matchClients[matchID]
		for i, c := range subscribers {
			if c == client {
				h.matchClients[matchID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		if len(h.matchClients[matchID]) == 0 {
			delete(h.matchClients, matchID)
		}
	}

	h.logger.WithField("total_clients", len(h.clients)).Info("Analysis WebSocket client disconnected")
}

// fanOut delivers a payload to its match subscribers plus every
// unfiltered client. Targets are snapshotted under the read lock and
// delivery happens outside it: dropping a saturated client needs the
// write lock, so no lock may be held when sendToClient fails.
func (h *AnalysisHub) fanOut(payload services.AnalysisPayload) {
	message := &AnalysisMessage{
		Type:      "analysis",
		Data:      payload,
		Timestamp: time.Now(),
		MatchID:   payload.MatchID,
	}

	h.mutex.RLock()
	targets := make([]*Client, 0, len(h.matchClients[payload.MatchID]))
	seen := map[*Client]bool{}
	for _, client := range h.matchClients[payload.MatchID] {
		targets = append(targets, client)
		seen[client] = true
	}
	for client := range h.clients {
		if len(client.MatchIDs) == 0 && !seen[client] {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		if !h.sendToClient(client, message) {
			h.unregisterClient(client)
		}
	}
}

// sendToClient queues a message without blocking. Returns false when the
// client's send buffer is full; the caller decides whether to drop the
// client. Never funnels removals through h.unregister: that channel's
// only receiver is the Run goroutine these methods execute on.
func (h *AnalysisHub) sendToClient(client *Client, message *AnalysisMessage) bool {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return true
	}

	select {
	case client.Send <- data:
		client.touch()
		return true
	default:
		return false
	}
}

func (h *AnalysisHub) pingClients() {
	now := time.Now()
	stale := []*Client{}

	h.mutex.RLock()
	for client := range h.clients {
		if now.Sub(client.lastSeenAt()) > 2*time.Minute {
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range stale {
		h.unregisterClient(client)
	}

	if len(stale) > 0 {
		h.logger.WithField("stale_clients", len(stale)).Debug("Removed stale WebSocket clients")
	}
}

// HandleWebSocket upgrades a connection. Match subscriptions come from
// the optional comma-separated match_ids query parameter.
func (h *AnalysisHub) HandleWebSocket(c *gin.Context) {
	matchIDs := []string{}
	if param := c.Query("match_ids"); param != "" {
		for _, id := range strings.Split(param, ",") {
			if id = strings.TrimSpace(id); id != "" {
				matchIDs = append(matchIDs, id)
			}
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade analysis WebSocket connection")
		return
	}

	client := &Client{
		MatchIDs: matchIDs,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      h,
	}
	client.touch()

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// GetConnectionCount returns the number of active connections.
func (h *AnalysisHub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// GetHubStats returns hub statistics for the health endpoint.
func (h *AnalysisHub) GetHubStats() map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	subscriptions := make(map[string]int, len(h.matchClients))
	for matchID, clients := range h.matchClients {
		subscriptions[matchID] = len(clients)
	}

	return map[string]interface{}{
		"total_clients":       len(h.clients),
		"matches_tracked":     len(h.matchClients),
		"match_subscriptions": subscriptions,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("Analysis WebSocket error")
			}
			break
		}

		c.handleIncomingMessage(message)
		c.touch()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write analysis WebSocket message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleIncomingMessage(message []byte) {
	var clientMsg map[string]interface{}
	if err := json.Unmarshal(message, &clientMsg); err != nil {
		c.Hub.logger.WithError(err).Warn("Failed to parse client message")
		return
	}

	msgType, ok := clientMsg["type"].(string)
	if !ok {
		return
	}

	switch msgType {
	case "subscribe_match":
		matchID, ok := clientMsg["match_id"].(string)
		if !ok || matchID == "" {
			return
		}
		c.Hub.mutex.Lock()
		found := false
		for _, id := range c.MatchIDs {
			if id == matchID {
				found = true
				break
			}
		}
		if !found {
			c.MatchIDs = append(c.MatchIDs, matchID)
			c.Hub.matchClients[matchID] = append(c.Hub.matchClients[matchID], c)
		}
		c.Hub.mutex.Unlock()

		c.Hub.logger.WithField("match_id", matchID).Debug("Client subscribed to match")

	case "unsubscribe_match":
		matchID, ok := clientMsg["match_id"].(string)
		if !ok || matchID == "" {
			return
		}
		c.Hub.mutex.Lock()
		for i, id := range c.MatchIDs {
			if id == matchID {
				c.MatchIDs = append(c.MatchIDs[:i], c.MatchIDs[i+1:]...)
				break
			}
		}
		subscribers := c.Hub.matchClients[matchID]
		for i, client := range subscribers {
			if client == c {
				c.Hub.matchClients[matchID] = append(subscribers[:i], subscribers[i+1:]...)
				break
			}
		}
		c.Hub.mutex.Unlock()

		c.Hub.logger.WithField("match_id", matchID).Debug("Client unsubscribed from match")

	case "ping":
		response := &AnalysisMessage{
			Type:      "pong",
			Data:      map[string]interface{}{"timestamp": time.Now().Unix()},
			Timestamp: time.Now(),
		}
		// Dropped when the buffer is full; the stale sweep handles it.
		c.Hub.sendToClient(c, response)
	}
}
