package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tabengine/tab"
)

// debugBridge fans every engine event out to connected WebSocket clients
// as JSON, for a devtools-style live view of zone/tab activity. It is
// optional scaffolding around the engine, not something the engine core
// depends on.
type debugBridge struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]chan wireEvent
}

type wireEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Zone      string    `json:"zone"`
	Tab       string    `json:"tab,omitempty"`
	URL       string    `json:"url,omitempty"`
	Status    int       `json:"status,omitempty"`
	Message   string    `json:"message,omitempty"`
	FrameID   uint64    `json:"frame_id,omitempty"`
}

func newDebugBridge() *debugBridge {
	return &debugBridge{
		conns: make(map[*websocket.Conn]chan wireEvent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (b *debugBridge) register(conn *websocket.Conn) chan wireEvent {
	ch := make(chan wireEvent, 256)
	b.mu.Lock()
	b.conns[conn] = ch
	b.mu.Unlock()
	return ch
}

func (b *debugBridge) unregister(conn *websocket.Conn) {
	b.mu.Lock()
	if ch, ok := b.conns[conn]; ok {
		close(ch)
		delete(b.conns, conn)
	}
	b.mu.Unlock()
}

func (b *debugBridge) broadcast(ev wireEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.conns {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ServeHTTP upgrades the request and streams events to it until the
// client disconnects.
func (b *debugBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ch := b.register(conn)
	defer b.unregister(conn)
	defer conn.Close()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// pump translates engine events into wireEvents and broadcasts them
// until events closes.
func (b *debugBridge) pump(events <-chan tab.Event) {
	for ev := range events {
		b.broadcast(toWireEvent(ev))
	}
}

func toWireEvent(ev tab.Event) wireEvent {
	w := wireEvent{
		Timestamp: time.Now(),
		Type:      ev.Kind.String(),
		Zone:      ev.Zone.String(),
		Tab:       ev.Tab.String(),
		URL:       ev.URL,
		Status:    ev.Status,
		Message:   ev.Message,
		FrameID:   ev.FrameID,
	}
	return w
}

var _ = json.Marshal // keep encoding/json imported for wireEvent's json tags' documentation value
