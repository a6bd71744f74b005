package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openalpha/dusd/metrics"
)

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by channel
	clients  map[*Client]bool
	channels map[string]map[*Client]bool // channel -> clients

	// Inbound messages from clients
	broadcast chan []byte

	// Register/unregister requests
	register   chan *Client
	unregister chan *Client

	// Channel subscription requests
	subscribe   chan *SubscriptionRequest
	unsubscribe chan *SubscriptionRequest

	// Buffered state, flushed on an interval
	priceBuffer  map[string]*PriceMessage  // feed -> latest price
	healthBuffer map[string]*HealthMessage // account -> latest health

	mu sync.RWMutex

	config *HubConfig
}

// HubConfig contains hub configuration
type HubConfig struct {
	// Update intervals
	PriceInterval  time.Duration // Default: 500ms
	HealthInterval time.Duration // Default: 1s

	// Connection limits
	MaxClientsPerIP  int
	MaxSubscriptions int

	// Rate limiting
	MessageRateLimit int // Messages per second per client
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() *HubConfig {
	return &HubConfig{
		PriceInterval:    500 * time.Millisecond,
		HealthInterval:   time.Second,
		MaxClientsPerIP:  10,
		MaxSubscriptions: 50,
		MessageRateLimit: 100,
	}
}

// SubscriptionRequest represents a subscription request
type SubscriptionRequest struct {
	Client  *Client
	Channel string
	Action  string // "subscribe" or "unsubscribe"
}

// NewHub creates a new Hub
func NewHub(config *HubConfig) *Hub {
	if config == nil {
		config = DefaultHubConfig()
	}

	return &Hub{
		clients:      make(map[*Client]bool),
		channels:     make(map[string]map[*Client]bool),
		broadcast:    make(chan []byte, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		subscribe:    make(chan *SubscriptionRequest, 256),
		unsubscribe:  make(chan *SubscriptionRequest, 256),
		priceBuffer:  make(map[string]*PriceMessage),
		healthBuffer: make(map[string]*HealthMessage),
		config:       config,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	priceTicker := time.NewTicker(h.config.PriceInterval)
	healthTicker := time.NewTicker(h.config.HealthInterval)

	defer priceTicker.Stop()
	defer healthTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case req := <-h.subscribe:
			h.handleSubscription(req)

		case req := <-h.unsubscribe:
			h.handleUnsubscription(req)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-priceTicker.C:
			h.broadcastPrices()

		case <-healthTicker.C:
			h.broadcastHealths()
		}
	}
}

// registerClient adds a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	metrics.GetCollector().RecordWSConnection(1)
}

// unregisterClient removes a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)

		// Remove from all channels
		for channel, clients := range h.channels {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.channels, channel)
			}
		}

		close(client.send)
		metrics.GetCollector().RecordWSConnection(-1)
	}
}

// handleSubscription handles a subscription request
func (h *Hub) handleSubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true

	// Send subscription confirmation
	confirmation := &WSMessage{
		Type:    "subscribed",
		Channel: channel,
		Data:    nil,
	}
	data, _ := json.Marshal(confirmation)
	client.send <- data
}

// handleUnsubscription handles an unsubscription request
func (h *Hub) handleUnsubscription(req *SubscriptionRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel := req.Channel
	client := req.Client

	if clients, ok := h.channels[channel]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.channels, channel)
		}
	}

	// Send unsubscription confirmation
	confirmation := &WSMessage{
		Type:    "unsubscribed",
		Channel: channel,
		Data:    nil,
	}
	data, _ := json.Marshal(confirmation)
	client.send <- data
}

// broadcastMessage sends a message to all connected clients
func (h *Hub) broadcastMessage(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Client buffer is full, skip
		}
	}
}

// BroadcastToChannel sends a message to all clients subscribed to a channel
func (h *Hub) BroadcastToChannel(channel string, message interface{}) {
	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client set so the lock is not held during sends
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	for _, client := range clientList {
		select {
		case client.send <- data:
			metrics.GetCollector().RecordWSMessage(channel)
		default:
			// Client buffer is full, skip
		}
	}
}

// ============ Channel-specific broadcasts ============

// UpdatePrice updates the price buffer for a feed
func (h *Hub) UpdatePrice(feedID string, price *PriceMessage) {
	h.mu.Lock()
	h.priceBuffer[feedID] = price
	h.mu.Unlock()
}

// UpdateHealth updates the health buffer for an account
func (h *Hub) UpdateHealth(account string, health *HealthMessage) {
	h.mu.Lock()
	h.healthBuffer[account] = health
	h.mu.Unlock()
}

// broadcastPrices broadcasts all buffered price updates
func (h *Hub) broadcastPrices() {
	h.mu.RLock()
	prices := make(map[string]*PriceMessage)
	for k, v := range h.priceBuffer {
		prices[k] = v
	}
	h.mu.RUnlock()

	for feedID, price := range prices {
		channel := "prices:" + feedID
		msg := &WSMessage{
			Type:    "price",
			Channel: channel,
			Data:    price,
		}
		h.BroadcastToChannel(channel, msg)
	}
}

// broadcastHealths broadcasts all buffered health updates
func (h *Hub) broadcastHealths() {
	h.mu.RLock()
	healths := make(map[string]*HealthMessage)
	for k, v := range h.healthBuffer {
		healths[k] = v
	}
	h.mu.RUnlock()

	for account, health := range healths {
		channel := "health:" + account
		msg := &WSMessage{
			Type:    "health",
			Channel: channel,
			Data:    health,
		}
		h.BroadcastToChannel(channel, msg)

		// Unsafe accounts also go out on the shared watch channel
		if health.Unsafe {
			h.BroadcastToChannel("unsafe", &WSMessage{
				Type:    "health",
				Channel: "unsafe",
				Data:    health,
			})
		}
	}
}

// BroadcastLiquidation broadcasts a liquidation event to subscribers
func (h *Hub) BroadcastLiquidation(liq *LiquidationMessage) {
	msg := &WSMessage{
		Type:    "liquidation",
		Channel: "liquidations",
		Data:    liq,
	}
	h.BroadcastToChannel("liquidations", msg)
}

// BroadcastBacking broadcasts a solvency report to subscribers
func (h *Hub) BroadcastBacking(report *BackingMessage) {
	msg := &WSMessage{
		Type:    "backing",
		Channel: "backing",
		Data:    report,
	}
	h.BroadcastToChannel("backing", msg)
}

// ============ Message Types ============

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel"`
	Data    interface{} `json:"data,omitempty"`
}

// PriceMessage represents an oracle price update
type PriceMessage struct {
	FeedID    string `json:"feed_id"`
	Price     string `json:"price"`
	Decimals  uint8  `json:"decimals"`
	Timestamp int64  `json:"timestamp"`
}

// HealthMessage represents an account health update
type HealthMessage struct {
	Account            string `json:"account"`
	HealthFactor       string `json:"health_factor"`
	CollateralValueUsd string `json:"collateral_value_usd"`
	DebtDusd           string `json:"debt_dusd"`
	Unsafe             bool   `json:"unsafe"`
	Timestamp          int64  `json:"timestamp"`
}

// LiquidationMessage represents an executed liquidation
type LiquidationMessage struct {
	ID          string `json:"id"`
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Denom       string `json:"denom"`
	DebtCovered string `json:"debt_covered"`
	TotalSeized string `json:"total_seized"`
	Timestamp   int64  `json:"timestamp"`
}

// BackingMessage represents a system-wide solvency report
type BackingMessage struct {
	DusdSupply         string `json:"dusd_supply"`
	CollateralValueUsd string `json:"collateral_value_usd"`
	Backed             bool   `json:"backed"`
	Timestamp          int64  `json:"timestamp"`
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetChannelCount returns the number of active channels
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// GetChannelClientCount returns the number of clients in a channel
func (h *Hub) GetChannelClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.channels[channel]; ok {
		return len(clients)
	}
	return 0
}

// ServeWS handles WebSocket upgrade requests
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = generateID()
	}

	ip := getClientIPFromRequest(r)

	client := NewClient(h, conn, clientID, ip)

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Helper function to get client IP
func getClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}

// Generate a simple ID
func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
