package stream

import (
	"sync"

	"go.uber.org/zap"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
)

const (
	// pendingLimit caps the per-session replay buffer that bridges the gap
	// between the upload response and the client opening its event stream.
	pendingLimit = 200

	subscriberSlack = 64
)

type subscriber struct {
	ch     chan domain.Event
	closed bool
}

// Hub routes events to the single receiver registered per session. Events
// published before a receiver connects are buffered (bounded) and replayed
// on the first Subscribe; after Close anything undelivered is dropped.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]*subscriber
	pending map[string][]domain.Event
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:    make(map[string]*subscriber),
		pending: make(map[string][]domain.Event),
		logger:  logger,
	}
}

// Subscribe registers the calling connection as the receiver for sessionID,
// replacing any previous receiver, and replays buffered events in order.
// The returned cancel func must be called when the connection closes.
func (h *Hub) Subscribe(sessionID string) (<-chan domain.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.subs[sessionID]; ok {
		h.closeLocked(prev)
	}

	backlog := h.pending[sessionID]
	delete(h.pending, sessionID)

	sub := &subscriber{ch: make(chan domain.Event, len(backlog)+subscriberSlack)}
	for _, ev := range backlog {
		sub.ch <- ev
	}
	h.subs[sessionID] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.subs[sessionID] == sub {
			delete(h.subs, sessionID)
		}
		h.closeLocked(sub)
	}
	return sub.ch, cancel
}

// Publish delivers ev to the session's receiver if one is connected.
// It reports whether a live receiver took the event; buffered-for-later
// counts as not delivered. It never blocks and never fails the caller.
func (h *Hub) Publish(sessionID string, ev domain.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[sessionID]
	if !ok || sub.closed {
		buf := append(h.pending[sessionID], ev)
		if len(buf) > pendingLimit {
			buf = buf[len(buf)-pendingLimit:]
		}
		h.pending[sessionID] = buf
		h.logger.Warn("no receiver for progress event, buffering",
			zap.String("sessionId", sessionID),
			zap.String("type", string(ev.Type)))
		return false
	}

	select {
	case sub.ch <- ev:
		return true
	default:
		h.logger.Warn("receiver too slow, dropping progress event",
			zap.String("sessionId", sessionID),
			zap.String("type", string(ev.Type)))
		return false
	}
}

// Close tears down the session's registration and replay buffer. Closing
// the channel lets a connected receiver drain what was already delivered
// and then end its stream.
func (h *Hub) Close(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.pending, sessionID)
	if sub, ok := h.subs[sessionID]; ok {
		delete(h.subs, sessionID)
		h.closeLocked(sub)
	}
}

func (h *Hub) closeLocked(sub *subscriber) {
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}
