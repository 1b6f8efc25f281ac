package liveevents

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

const (
	DefaultBufferSize       = 20
	DefaultSubscriberBuffer = 8
)

// JobUpdate is pushed to a session's subscribers when its job reaches a
// terminal state. Result carries the job's normalized payload on success;
// Error carries the failure message otherwise.
type JobUpdate struct {
	JobID  string          `json:"job_id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Hub fans terminal job updates out to per-session subscribers. The core has
// no opinion on transport; the host bridges a Subscription onto whatever live
// channel it has. Delivery is best effort: slow subscribers drop updates.
type Hub struct {
	mu               sync.RWMutex
	streams          map[string]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []JobUpdate
	subs   map[uint64]chan JobUpdate
	nextID uint64
}

type Subscription struct {
	hub       *Hub
	sessionID string
	id        uint64
	ch        chan JobUpdate
	once      sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[string]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Notify implements the processor's completion hook.
func (h *Hub) Notify(sessionID string, update JobUpdate) {
	if h == nil {
		return
	}
	session := strings.TrimSpace(sessionID)
	if session == "" {
		return
	}
	h.mu.RLock()
	stream := h.streams[session]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, update)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan JobUpdate, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
		}
	}
}

// Subscribe registers for a session's updates and returns any buffered ones,
// so a subscriber arriving after completion still sees the result.
func (h *Hub) Subscribe(sessionID string) (*Subscription, []JobUpdate, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	session := strings.TrimSpace(sessionID)
	if session == "" {
		return nil, nil, errors.New("invalid_session_id")
	}

	stream := h.ensureStream(session)
	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan JobUpdate)
	}
	id := stream.nextID
	stream.nextID++
	ch := make(chan JobUpdate, h.subscriberBuffer)
	stream.subs[id] = ch
	buffer := append([]JobUpdate(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:       h,
		sessionID: session,
		id:        id,
		ch:        ch,
	}, buffer, nil
}

func (h *Hub) ensureStream(sessionID string) *stream {
	h.mu.RLock()
	current := h.streams[sessionID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[sessionID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan JobUpdate)}
		h.streams[sessionID] = current
	}
	return current
}

func (h *Hub) unsubscribe(sessionID string, id uint64) {
	if h == nil {
		return
	}
	h.mu.RLock()
	stream := h.streams[sessionID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[sessionID]
	if current == stream {
		stream.mu.Lock()
		if len(stream.subs) == 0 {
			delete(h.streams, sessionID)
		}
		stream.mu.Unlock()
	}
	h.mu.Unlock()
}

func (s *Subscription) Updates() <-chan JobUpdate {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.sessionID, s.id)
	})
}
