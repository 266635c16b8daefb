package storage

import "errors"

// Store-layer errors. Handlers map these to HTTP statuses with errors.Is;
// the hub uses ErrStoreUnavailable to decide the fallback push.
var (
	ErrEmptyMessage     = errors.New("message body is empty")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrStoreUnavailable = errors.New("message store unavailable")
)
