package chathub

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sachirademein17/mindcareapp-sub000/internal/metrics"
	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
	"github.com/sachirademein17/mindcareapp-sub000/internal/storage"
)

// DispatchRequest asks the hub to deliver one message. A non-zero
// PersistedID means the REST path already wrote it and the hub must only
// relay; otherwise the hub performs the durable write itself before
// pushing.
type DispatchRequest struct {
	SenderID   uint
	ReceiverID uint
	Body       string
	ClientRef  string

	PersistedID uint
	PersistedAt time.Time
}

// Options tune the hub's dual-write behavior.
type Options struct {
	// StoreTimeout bounds the durable write; exceeding it counts as a
	// store failure.
	StoreTimeout time.Duration
	// PushOnStoreFailure delivers the message live even when the durable
	// write failed. The receiver sees it in real time but it will not
	// survive a reload.
	PushOnStoreFailure bool
}

// Manager owns the room registry and routes messages and typing signals to
// live connections. The rooms map is touched only inside Run, so the REST
// call stack and every connection goroutine funnel their work through
// channels instead of sharing a lock.
type Manager struct {
	rooms map[uint]map[Client]bool

	register   chan Client
	unregister chan Client
	dispatch   chan DispatchRequest
	typing     chan models.TypingEvent
	stop       chan struct{}

	store storage.Storage
	opts  Options
}

func NewManager(store storage.Storage, opts Options) *Manager {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	return &Manager{
		rooms:      make(map[uint]map[Client]bool),
		register:   make(chan Client),
		unregister: make(chan Client),
		dispatch:   make(chan DispatchRequest, 64),
		typing:     make(chan models.TypingEvent, 64),
		stop:       make(chan struct{}),
		store:      store,
		opts:       opts,
	}
}

// Join registers a connection under its user's room. Idempotent.
func (m *Manager) Join(c Client) { m.register <- c }

// Leave removes a connection from its room. Called unconditionally on
// disconnect, whether or not the connection ever joined.
func (m *Manager) Leave(c Client) { m.unregister <- c }

// Dispatch hands a message to the delivery loop. The durable write (when
// needed) happens inside the loop; callers are never blocked on it beyond
// the channel handoff.
func (m *Manager) Dispatch(req DispatchRequest) {
	select {
	case m.dispatch <- req:
	case <-m.stop:
	}
}

// Typing forwards a typing signal to the receiver's room. Fire and forget.
func (m *Manager) Typing(evt models.TypingEvent) {
	select {
	case m.typing <- evt:
	default:
		// Presence signals are disposable under pressure.
	}
}

// Stop shuts the loop down and closes every live connection.
func (m *Manager) Stop() { close(m.stop) }

// RefreshPresence renews the user's online flag. Called from the socket
// pong path; goes straight to the store, not through the loop.
func (m *Manager) RefreshPresence(userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.store.SetOnline(ctx, userID); err != nil {
		log.Warn().Err(err).Uint("user", userID).Msg("presence refresh failed")
	}
}

// Run is the hub's single mutation goroutine.
func (m *Manager) Run() {
	for {
		select {
		case c := <-m.register:
			m.handleJoin(c)
		case c := <-m.unregister:
			m.handleLeave(c)
		case req := <-m.dispatch:
			m.handleDispatch(req)
		case evt := <-m.typing:
			m.handleTyping(evt)
		case <-m.stop:
			for _, room := range m.rooms {
				for c := range room {
					c.Close()
				}
			}
			m.rooms = make(map[uint]map[Client]bool)
			return
		}
	}
}

func (m *Manager) handleJoin(c Client) {
	userID := c.UserID()
	room := m.rooms[userID]
	if room == nil {
		room = make(map[Client]bool)
		m.rooms[userID] = room
	}
	if room[c] {
		return
	}
	room[c] = true
	metrics.WsConnections.Inc()

	if len(room) == 1 {
		m.setPresence(userID, true)
	}
	log.Debug().Uint("user", userID).Int("connections", len(room)).Msg("client joined room")
}

func (m *Manager) handleLeave(c Client) {
	userID := c.UserID()
	if room, ok := m.rooms[userID]; ok && room[c] {
		m.removeFromRoom(userID, c)
	}
	// Close is idempotent; a connection that never joined still needs its
	// write pump released.
	c.Close()
}

// removeFromRoom must only run inside the loop.
func (m *Manager) removeFromRoom(userID uint, c Client) {
	room := m.rooms[userID]
	delete(room, c)
	c.Close()
	metrics.WsConnections.Dec()
	if len(room) == 0 {
		delete(m.rooms, userID)
		m.setPresence(userID, false)
	}
}

func (m *Manager) handleDispatch(req DispatchRequest) {
	msg := models.ChatMessage{
		ID:         req.PersistedID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Body:       req.Body,
		CreatedAt:  req.PersistedAt,
		ClientRef:  req.ClientRef,
	}

	if req.PersistedID != 0 {
		// Relay of an already-persisted message. The WS path does not
		// carry the stored timestamp, so stamp the relay copy here; the
		// receiver's dedup window absorbs the drift.
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.StoreTimeout)
		saved, err := m.store.SendMessage(ctx, req.SenderID, req.ReceiverID, req.Body)
		cancel()
		switch {
		case err == nil:
			msg = *saved
			msg.ClientRef = req.ClientRef
			metrics.MessagesPersisted.Inc()
		case !m.opts.PushOnStoreFailure:
			log.Error().Err(err).Uint("sender", req.SenderID).Uint("receiver", req.ReceiverID).
				Msg("message lost: store write failed and fallback push is disabled")
			return
		default:
			// Availability over consistency: the receiver still gets the
			// message live, but it will not be in history after a reload.
			log.Warn().Err(err).Uint("sender", req.SenderID).Uint("receiver", req.ReceiverID).
				Msg("store write failed, delivering live only")
			msg.CreatedAt = time.Now()
			metrics.MessagesFallback.Inc()
		}
	}

	// The sender already renders its own copy; only the receiver's room
	// gets the push.
	m.pushToRoom(req.ReceiverID, models.MessageEvent(msg))
}

func (m *Manager) handleTyping(evt models.TypingEvent) {
	m.pushToRoom(evt.ReceiverID, models.TypingNotice(evt.UserID, evt.Typing))
}

// pushToRoom delivers an event to every connection in the user's room. An
// empty room is a no-op. Iteration works on a snapshot so removing slow
// clients mid-push cannot race the range.
func (m *Manager) pushToRoom(userID uint, evt models.WireEvent) {
	room := m.rooms[userID]
	if len(room) == 0 {
		return
	}

	conns := make([]Client, 0, len(room))
	for c := range room {
		conns = append(conns, c)
	}

	delivered := false
	for _, c := range conns {
		select {
		case c.Send() <- evt:
			delivered = true
		default:
			log.Warn().Uint("user", userID).Msg("dropping connection that cannot keep up")
			m.removeFromRoom(userID, c)
			metrics.ClientsDropped.Inc()
		}
	}
	if delivered && evt.Event == models.EventReceiveMessage {
		metrics.MessagesDelivered.Inc()
	}
}

func (m *Manager) setPresence(userID uint, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var err error
	if online {
		err = m.store.SetOnline(ctx, userID)
	} else {
		err = m.store.SetOffline(ctx, userID)
	}
	if err != nil {
		log.Warn().Err(err).Uint("user", userID).Bool("online", online).Msg("presence update failed")
	}
}
