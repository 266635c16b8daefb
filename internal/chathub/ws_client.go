package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var newline = []byte{'\n'}

// WebSocketClient implements Client over a gorilla/websocket connection.
// The user identity comes from the authenticated upgrade, never from the
// wire.
type WebSocketClient struct {
	userID uint
	conn   *websocket.Conn
	hub    *Manager
	send   chan models.WireEvent

	closeOnce sync.Once
}

func NewWebSocketClient(userID uint, conn *websocket.Conn, hub *Manager) *WebSocketClient {
	return &WebSocketClient{
		userID: userID,
		conn:   conn,
		hub:    hub,
		send:   make(chan models.WireEvent, 256),
	}
}

func (c *WebSocketClient) UserID() uint { return c.userID }

func (c *WebSocketClient) Send() chan<- models.WireEvent { return c.send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close releases the write pump. Safe to call from the hub and from the
// read pump's shutdown path.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump drives the per-connection state machine: a fresh connection
// handles nothing but join; a joined one feeds sendMessage and typing into
// the hub; disconnect always ends in Leave.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.RefreshPresence(c.userID)
		return nil
	})

	joined := false
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Uint("user", c.userID).Msg("websocket read ended")
			}
			return
		}

		var evt models.WireEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			log.Warn().Err(err).Uint("user", c.userID).Msg("dropping undecodable frame")
			continue
		}

		switch evt.Event {
		case models.EventJoin:
			var p models.JoinPayload
			if err := json.Unmarshal(evt.Data, &p); err == nil && p.UserID != 0 && p.UserID != c.userID {
				log.Warn().Uint("claimed", p.UserID).Uint("actual", c.userID).Msg("join payload ignored, identity comes from the token")
			}
			if !joined {
				c.hub.Join(c)
				joined = true
			}

		case models.EventSendMessage:
			if !joined {
				continue
			}
			var p models.SendMessagePayload
			if err := json.Unmarshal(evt.Data, &p); err != nil {
				log.Warn().Err(err).Uint("user", c.userID).Msg("dropping malformed sendMessage")
				continue
			}
			c.hub.Dispatch(DispatchRequest{
				SenderID:    c.userID,
				ReceiverID:  p.ReceiverID,
				Body:        p.Message,
				ClientRef:   p.ClientRef,
				PersistedID: p.ID,
			})

		case models.EventTyping:
			if !joined {
				continue
			}
			var p models.TypingEvent
			if err := json.Unmarshal(evt.Data, &p); err != nil {
				continue
			}
			p.UserID = c.userID
			c.hub.Typing(p)
		}
	}
}

// writePump serializes queued events onto the socket and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				log.Error().Err(err).Uint("user", c.userID).Msg("failed to encode event")
				w.Close()
				continue
			}
			w.Write(data)

			// Flush anything else already queued into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				next := <-c.send
				if extra, err := json.Marshal(next); err == nil {
					w.Write(newline)
					w.Write(extra)
				}
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
