package liquidator

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apiws "github.com/openalpha/dusd/api/websocket"
)

// EventType represents the type of a feed event
type EventType int

const (
	EventHealthUpdate EventType = iota
	EventLiquidationExecuted
)

// String returns a string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventHealthUpdate:
		return "HealthUpdate"
	case EventLiquidationExecuted:
		return "LiquidationExecuted"
	default:
		return "Unknown"
	}
}

// Event is a single update delivered by the feed
type Event struct {
	Type        EventType
	Health      *apiws.HealthMessage
	Liquidation *apiws.LiquidationMessage
}

// feedSubscription is the subscribe message sent to the engine
type feedSubscription struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// feedEnvelope is the broadcast envelope received from the engine
type feedEnvelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Feed maintains a websocket subscription to the engine's health
// stream and delivers events on a channel. Lost connections are
// redialed with a fixed delay.
type Feed struct {
	url            string
	channels       []string
	eventCh        chan<- *Event
	reconnectDelay time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFeed creates a feed subscribed to the given channels
func NewFeed(url string, channels []string, eventCh chan<- *Event) *Feed {
	return &Feed{
		url:            url,
		channels:       channels,
		eventCh:        eventCh,
		reconnectDelay: 3 * time.Second,
		stopCh:         make(chan struct{}),
	}
}

// Start launches the feed's dial loop
func (f *Feed) Start(ctx context.Context) {
	f.wg.Add(1)
	go f.dialLoop(ctx)
}

// Stop closes the feed and waits for the dial loop to exit
func (f *Feed) Stop() {
	close(f.stopCh)

	f.mu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.Unlock()

	f.wg.Wait()
}

// Connected reports whether the feed currently has a live connection
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// dialLoop connects, reads until failure, and redials
func (f *Feed) dialLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			log.Printf("Feed connection failed: %v", err)
		} else {
			f.readUntilClosed()
		}

		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectDelay):
		}
	}
}

// connect dials the engine and subscribes to all channels
func (f *Feed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}

	for _, channel := range f.channels {
		sub := feedSubscription{Action: "subscribe", Channel: channel}
		if err := conn.WriteJSON(sub); err != nil {
			conn.Close()
			return err
		}
	}

	f.mu.Lock()
	f.conn = conn
	f.connected = true
	f.mu.Unlock()

	log.Printf("Feed connected to %s (%d channels)", f.url, len(f.channels))
	return nil
}

// readUntilClosed consumes messages until the connection drops
func (f *Feed) readUntilClosed() {
	defer func() {
		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
			f.conn = nil
		}
		f.connected = false
		f.mu.Unlock()
	}()

	for {
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.stopCh:
			default:
				log.Printf("Feed read error: %v", err)
			}
			return
		}

		f.handleMessage(data)
	}
}

// handleMessage decodes an envelope and dispatches it as an event
func (f *Feed) handleMessage(data []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Printf("Feed received malformed message: %v", err)
		return
	}

	switch envelope.Type {
	case "health":
		var health apiws.HealthMessage
		if err := json.Unmarshal(envelope.Data, &health); err != nil {
			log.Printf("Feed received malformed health update: %v", err)
			return
		}
		f.deliver(&Event{Type: EventHealthUpdate, Health: &health})

	case "liquidation":
		var liq apiws.LiquidationMessage
		if err := json.Unmarshal(envelope.Data, &liq); err != nil {
			log.Printf("Feed received malformed liquidation: %v", err)
			return
		}
		f.deliver(&Event{Type: EventLiquidationExecuted, Liquidation: &liq})

	case "subscribed", "unsubscribed", "pong":
		// acknowledgements carry no position data
	}
}

// deliver pushes an event without blocking the read loop
func (f *Feed) deliver(event *Event) {
	select {
	case f.eventCh <- event:
	default:
		log.Printf("Feed event channel full, dropping %s event", event.Type)
	}
}
