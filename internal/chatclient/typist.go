package chatclient

import (
	"sync"
	"time"
)

// TypingNotifier is the sender side of the typing indicator: the first
// keystroke emits typing=true, further keystrokes extend the window, and a
// trailing typing=false goes out after the idle interval so the receiver's
// flag decays even if the sender just walks away.
type TypingNotifier struct {
	idle time.Duration
	emit func(typing bool)

	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

const defaultTypingIdle = 2 * time.Second

func NewTypingNotifier(idle time.Duration, emit func(typing bool)) *TypingNotifier {
	if idle <= 0 {
		idle = defaultTypingIdle
	}
	return &TypingNotifier{idle: idle, emit: emit}
}

// Keystroke records typing activity.
func (n *TypingNotifier) Keystroke() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.active {
		n.active = true
		n.emit(true)
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.idle, n.idleExpired)
}

// Stop ends the typing state immediately, e.g. when the message is sent.
func (n *TypingNotifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.active {
		n.active = false
		n.emit(false)
	}
}

func (n *TypingNotifier) idleExpired() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.active {
		return
	}
	n.active = false
	n.timer = nil
	n.emit(false)
}
