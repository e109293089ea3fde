// Package stream pushes speed changes and session transitions to websocket
// clients.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/neekaru/opcua-gateway/internal/client"
	"github.com/neekaru/opcua-gateway/internal/monitor"
)

const sendBuffer = 64

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	s := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go s.writePump()
	return s
}

func (s *subscriber) writePump() {
	defer s.conn.Close()
	for msg := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// Broadcaster fans messages out to every connected websocket client.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]bool
	status      func() client.Status
	upgrader    websocket.Upgrader
	logger      *log.Logger
}

// NewBroadcaster creates a broadcaster. status supplies the session state
// sent to each new client.
func NewBroadcaster(status func() client.Status, logger *log.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[*subscriber]bool),
		status:      status,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handler upgrades the request and streams messages until the client leaves.
func (b *Broadcaster) Handler(c *gin.Context) {
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		b.logger.Printf("ws upgrade error: %v", err)
		return
	}

	b.logger.Printf("WebSocket client connected: %s", c.Request.RemoteAddr)
	s := b.add(conn)

	go func() {
		defer func() {
			b.remove(s)
			b.logger.Printf("WebSocket client disconnected: %s", c.Request.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *Broadcaster) add(conn *websocket.Conn) *subscriber {
	s := newSubscriber(conn)

	b.mu.Lock()
	b.subscribers[s] = true
	b.mu.Unlock()

	data, _ := json.Marshal(Message{Type: MsgHello, Payload: HelloPayload{Session: b.status().String()}})
	select {
	case s.send <- data:
	default:
	}
	return s
}

func (b *Broadcaster) remove(s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subscribers[s]; ok {
		delete(b.subscribers, s)
		close(s.send)
	}
	b.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// OnChange implements monitor.Notifier.
func (b *Broadcaster) OnChange(_ context.Context, c monitor.Change) {
	b.broadcast(Message{Type: MsgSpeedChange, Payload: c})
}

// OnEvent implements client.Observer.
func (b *Broadcaster) OnEvent(event client.Event) {
	e, ok := event.(*client.StatusEvent)
	if !ok {
		return
	}
	payload := SessionStatusPayload{
		Endpoint: e.Endpoint,
		Previous: e.Previous.String(),
		Status:   e.Status.String(),
		At:       time.Now(),
	}
	if e.Err != nil {
		payload.Error = e.Err.Error()
	}
	b.broadcast(Message{Type: MsgSessionStatus, Payload: payload})
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subscribers {
		delete(b.subscribers, s)
		close(s.send)
	}
}

func (b *Broadcaster) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Printf("broadcast marshal error: %v", err)
		return
	}

	// sends never block, so they can happen under the read lock
	var slow []*subscriber
	b.mu.RLock()
	for s := range b.subscribers {
		select {
		case s.send <- data:
		default:
			slow = append(slow, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range slow {
		b.logger.Printf("ws client too slow, disconnecting")
		b.remove(s)
	}
}
