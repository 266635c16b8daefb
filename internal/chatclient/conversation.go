// Package chatclient models the consumer side of the chat pipeline: the
// visible message list of one open conversation, with optimistic rendering,
// reconciliation against the durable write, and deduplication of messages
// arriving redundantly through history fetch and live push.
package chatclient

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sachirademein17/mindcareapp-sub000/internal/models"
)

// Status tracks an entry's reconciliation state.
type Status int

const (
	// StatusPending is an optimistic local copy awaiting confirmation.
	StatusPending Status = iota
	// StatusConfirmed carries durable server-assigned fields.
	StatusConfirmed
	// StatusFailed means the durable write failed; resending is up to the
	// user.
	StatusFailed
)

// Entry is one visible message: the message fields plus local-only
// reconciliation state.
type Entry struct {
	models.ChatMessage
	LocalID string
	Status  Status
}

// Options tune the reconciliation heuristics.
type Options struct {
	// DedupWindow is the timestamp tolerance under which two copies with
	// identical sender, receiver and body count as the same logical
	// message. The copies carry independently-generated timestamps, so
	// exact equality cannot be assumed.
	DedupWindow time.Duration
	// TypingDecay clears the peer-typing flag when no renewed signal
	// arrives.
	TypingDecay time.Duration
}

const (
	defaultDedupWindow = 2 * time.Second
	defaultTypingDecay = time.Second
)

// Conversation is the reconciled view of one peer pair. Safe for use from
// the send path and the live-push callback concurrently.
type Conversation struct {
	selfID uint
	peerID uint
	opts   Options

	mu          sync.Mutex
	entries     []Entry
	peerTyping  bool
	typingTimer *time.Timer
}

func NewConversation(selfID, peerID uint, opts Options) *Conversation {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = defaultDedupWindow
	}
	if opts.TypingDecay <= 0 {
		opts.TypingDecay = defaultTypingDecay
	}
	return &Conversation{selfID: selfID, peerID: peerID, opts: opts}
}

// AppendOptimistic renders the just-sent message immediately, before any
// server confirmation, and returns the placeholder entry.
func (c *Conversation) AppendOptimistic(body string) Entry {
	entry := Entry{
		ChatMessage: models.ChatMessage{
			SenderID:   c.selfID,
			ReceiverID: c.peerID,
			Body:       body,
			CreatedAt:  time.Now(),
			ClientRef:  uuid.NewString(),
		},
		LocalID: "temp_" + uuid.NewString(),
		Status:  StatusPending,
	}

	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
	return entry
}

// ConfirmSend replaces the optimistic placeholder with the durable copy.
// Reports whether the placeholder was still present.
func (c *Conversation) ConfirmSend(localID string, confirmed models.ChatMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].LocalID == localID {
			ref := c.entries[i].ClientRef
			c.entries[i].ChatMessage = confirmed
			if c.entries[i].ClientRef == "" {
				c.entries[i].ClientRef = ref
			}
			c.entries[i].Status = StatusConfirmed
			return true
		}
	}
	return false
}

// FailSend marks the placeholder failed. The entry stays visible so the
// user can see what did not go through and resend.
func (c *Conversation) FailSend(localID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].LocalID == localID {
			c.entries[i].Status = StatusFailed
			return true
		}
	}
	return false
}

// Receive handles a live-pushed message. Messages outside the open pair
// are dropped; duplicates of an already-visible copy are absorbed (and may
// upgrade a pending entry with durable fields). Reports whether a new
// entry was appended.
func (c *Conversation) Receive(msg models.ChatMessage) bool {
	if !c.belongsHere(msg) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.matchIndex(msg); i >= 0 {
		if c.entries[i].Status == StatusPending && msg.ID != 0 {
			ref := c.entries[i].ClientRef
			c.entries[i].ChatMessage = msg
			if c.entries[i].ClientRef == "" {
				c.entries[i].ClientRef = ref
			}
			c.entries[i].Status = StatusConfirmed
		}
		return false
	}

	c.entries = append(c.entries, Entry{
		ChatMessage: msg,
		LocalID:     "live_" + uuid.NewString(),
		Status:      StatusConfirmed,
	})
	return true
}

// MergeHistory reconciles a history fetch into the visible list: fetched
// rows are authoritative, pending and failed local entries that the fetch
// does not cover stay visible, duplicates collapse.
func (c *Conversation) MergeHistory(msgs []models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		merged = append(merged, Entry{
			ChatMessage: m,
			LocalID:     "hist_" + uuid.NewString(),
			Status:      StatusConfirmed,
		})
	}

	for _, e := range c.entries {
		if e.Status == StatusConfirmed {
			continue
		}
		covered := false
		for _, m := range msgs {
			if sameLogicalMessage(e.ChatMessage, m, c.opts.DedupWindow) {
				covered = true
				break
			}
		}
		if !covered {
			merged = append(merged, e)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	c.entries = merged
}

// Messages returns a snapshot of the visible list.
func (c *Conversation) Messages() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// HandleTyping updates the peer-typing flag. Signals from anyone but the
// open peer are ignored; a true flag decays on its own if not renewed.
func (c *Conversation) HandleTyping(evt models.TypingEvent) {
	if evt.UserID != c.peerID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.typingTimer != nil {
		c.typingTimer.Stop()
		c.typingTimer = nil
	}
	c.peerTyping = evt.Typing
	if evt.Typing {
		c.typingTimer = time.AfterFunc(c.opts.TypingDecay, func() {
			c.mu.Lock()
			c.peerTyping = false
			c.mu.Unlock()
		})
	}
}

// PeerTyping reports whether the open peer is currently typing.
func (c *Conversation) PeerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerTyping
}

func (c *Conversation) belongsHere(msg models.ChatMessage) bool {
	return (msg.SenderID == c.selfID && msg.ReceiverID == c.peerID) ||
		(msg.SenderID == c.peerID && msg.ReceiverID == c.selfID)
}

// matchIndex finds an existing copy of msg, preferring the exact client
// correlation ID and falling back to the timestamp-window heuristic. Must
// hold c.mu.
func (c *Conversation) matchIndex(msg models.ChatMessage) int {
	if msg.ClientRef != "" {
		for i := range c.entries {
			if c.entries[i].ClientRef == msg.ClientRef {
				return i
			}
		}
	}
	for i := range c.entries {
		if sameLogicalMessage(c.entries[i].ChatMessage, msg, c.opts.DedupWindow) {
			return i
		}
	}
	return -1
}

// sameLogicalMessage is the dedup heuristic: the optimistic copy, the
// durable response and the live push of one send carry timestamps generated
// independently, so identity is sender + receiver + body within a small
// time window. A shared non-empty ClientRef short-circuits the guesswork.
func sameLogicalMessage(a, b models.ChatMessage, window time.Duration) bool {
	if a.ClientRef != "" && a.ClientRef == b.ClientRef {
		return true
	}
	if a.ID != 0 && a.ID == b.ID {
		return true
	}
	if a.SenderID != b.SenderID || a.ReceiverID != b.ReceiverID || a.Body != b.Body {
		return false
	}
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d < window
}
