package kds

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/mesas-live/services"
	"github.com/yeremiapane/mesas-live/utils"
)

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Subscriber adalah satu viewer yang terhubung
type Subscriber struct {
	ID   string
	conn Conn

	// mu serializes writes to conn and guards state
	mu    sync.Mutex
	state State
}

func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// send writes only while open. Returns false when skipped.
func (s *Subscriber) send(data []byte, timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return false, nil
	}
	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return true, s.conn.WriteMessage(websocket.TextMessage, data)
}

// close moves the subscriber to Closed. Reports whether this call did it.
func (s *Subscriber) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	_ = s.conn.Close()
	return true
}

// Hub -> registry semua viewer yang sedang terhubung
type Hub struct {
	WriteTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*Subscriber
}

func NewHub(writeTimeout time.Duration) *Hub {
	return &Hub{
		WriteTimeout: writeTimeout,
		clients:      make(map[string]*Subscriber),
	}
}

// Admit registers a freshly upgraded connection and opens it.
func (h *Hub) Admit(conn Conn) *Subscriber {
	sub := &Subscriber{
		ID:    uuid.NewString(),
		conn:  conn,
		state: StateConnecting,
	}

	h.mu.Lock()
	h.clients[sub.ID] = sub
	sub.mu.Lock()
	sub.state = StateOpen
	sub.mu.Unlock()
	n := len(h.clients)
	h.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{"subscriber": sub.ID, "clients": n}).Info("subscriber admitted")
	return sub
}

// Evict removes the subscriber and closes its connection. Evicting a
// subscriber that is already gone is a no-op.
func (h *Hub) Evict(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, present := h.clients[sub.ID]
	delete(h.clients, sub.ID)
	n := len(h.clients)
	h.mu.Unlock()

	closed := sub.close()
	if present || closed {
		utils.InfoLogger.WithFields(logrus.Fields{"subscriber": sub.ID, "clients": n}).Info("subscriber evicted")
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers data to every subscriber admitted when the call starts.
// Subscribers closed by then are skipped, not evicted; eviction belongs to the
// connection's own read loop. Returns the number of successful deliveries.
func (h *Hub) Broadcast(data []byte) int {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.clients))
	for _, sub := range h.clients {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		sent, err := sub.send(data, h.WriteTimeout)
		if err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"subscriber": sub.ID}).WithError(err).Warn("error sending message to subscriber")
			continue
		}
		if sent {
			delivered++
		}
	}

	utils.InfoLogger.WithFields(logrus.Fields{"delivered": delivered, "clients": len(targets)}).Debug("broadcast finished")
	return delivered
}

// Publish -> kirim envelope ke semua viewer
func (h *Hub) Publish(_ context.Context, env services.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// CloseAll evicts every subscriber, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.clients))
	for id, sub := range h.clients {
		subs = append(subs, sub)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
