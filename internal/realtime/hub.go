// Package realtime fans seat status changes out to the viewers of a
// showtime.  Each showtime is a topic; connections subscribe and
// unsubscribe explicitly.  Delivery is best effort: a subscriber that does
// not keep up loses events and is expected to reload the seat map.
package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-box-office/internal/model"
	"github.com/iliyamo/cinema-box-office/internal/pkg/logger"
	"github.com/iliyamo/cinema-box-office/internal/pkg/metrics"
)

// EventSeatStatusChanged is the only event type pushed to clients.
const EventSeatStatusChanged = "seatStatusChanged"

const defaultBuffer = 64

// Event is a seat status change as sent to clients.
type Event struct {
	Type       string           `json:"type"`
	ShowtimeID uint64           `json:"showtime_id"`
	SeatIDs    []uint64         `json:"seat_ids"`
	Status     model.SeatStatus `json:"status"`
	At         time.Time        `json:"at"`

	// origin is the session that caused the change; its own subscriptions
	// do not receive the event.
	origin string
}

// Subscriber is one connection's view of the hub.  Events for every topic
// it joined arrive on a single channel, closed by Hub.Remove.
type Subscriber struct {
	sessionID string
	ch        chan Event
	topics    map[uint64]struct{} // guarded by Hub.mu
	closed    bool
}

// Events returns the subscriber's delivery channel.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// SessionID returns the session the subscriber belongs to.
func (s *Subscriber) SessionID() string { return s.sessionID }

// Hub is an in-process publish/subscribe broker keyed by showtime id.
type Hub struct {
	mu      sync.RWMutex
	topics  map[uint64]map[*Subscriber]struct{}
	buffer  int
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Hub)

// WithBuffer sets the per-subscriber channel size.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		if m != nil {
			h.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		topics:  make(map[uint64]map[*Subscriber]struct{}),
		buffer:  defaultBuffer,
		metrics: metrics.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewSubscriber registers a connection for sessionID.  It receives nothing
// until it subscribes to a topic.
func (h *Hub) NewSubscriber(sessionID string) *Subscriber {
	return &Subscriber{
		sessionID: sessionID,
		ch:        make(chan Event, h.buffer),
		topics:    make(map[uint64]struct{}),
	}
}

// Subscribe adds s to the showtime's topic.  Subscribing twice is a no-op.
func (h *Hub) Subscribe(s *Subscriber, showtimeID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.topics[showtimeID]; ok {
		return
	}
	subs, ok := h.topics[showtimeID]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.topics[showtimeID] = subs
	}
	subs[s] = struct{}{}
	s.topics[showtimeID] = struct{}{}
	h.metrics.RealtimeSubscribers.Inc()
}

// Unsubscribe removes s from the showtime's topic.
func (h *Hub) Unsubscribe(s *Subscriber, showtimeID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(s, showtimeID)
}

func (h *Hub) unsubscribeLocked(s *Subscriber, showtimeID uint64) {
	if _, ok := s.topics[showtimeID]; !ok {
		return
	}
	delete(s.topics, showtimeID)
	if subs, ok := h.topics[showtimeID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, showtimeID)
		}
	}
	h.metrics.RealtimeSubscribers.Dec()
}

// Remove unsubscribes s from every topic and closes its channel.
func (h *Hub) Remove(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	for id := range s.topics {
		h.unsubscribeLocked(s, id)
	}
	s.closed = true
	close(s.ch)
}

// Subscribers returns the number of subscriptions on a showtime.
func (h *Hub) Subscribers(showtimeID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[showtimeID])
}

// Publish delivers ev to every subscriber of its showtime except those of
// the originating session.  It never blocks: a full subscriber buffer drops
// the event for that subscriber.
//
// A session is whatever token the socket was opened with.  Clients that
// pass their per-tab token as ?session_token= on /v1/ws see their sibling
// tabs' changes; sockets that fall back to the shared cookie do not.
func (h *Hub) Publish(ev Event) {
	if ev.Type == "" {
		ev.Type = EventSeatStatusChanged
	}
	if ev.At.IsZero() {
		ev.At = h.now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.topics[ev.ShowtimeID] {
		if ev.origin != "" && s.sessionID == ev.origin {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.metrics.RealtimeDropped.Inc()
			logger.Warn("realtime subscriber buffer full, event dropped",
				zap.Uint64("showtime_id", ev.ShowtimeID),
				zap.String("session_id", s.sessionID),
			)
		}
	}
}

// SeatStatusChanged publishes a status change caused by originSession.
func (h *Hub) SeatStatusChanged(showtimeID uint64, seatIDs []uint64, status model.SeatStatus, originSession string) {
	h.Publish(Event{
		ShowtimeID: showtimeID,
		SeatIDs:    append([]uint64(nil), seatIDs...),
		Status:     status,
		origin:     originSession,
	})
}
