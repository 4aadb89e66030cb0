package services

import "errors"

// Sentinel errors for the caller-facing failure modes. Handlers map
// these onto HTTP statuses; everything else surfaces as internal.
var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrChatEnded      = errors.New("chat has ended")
	ErrNotParticipant = errors.New("user is not a participant of this chat")
	ErrEmptyMessage   = errors.New("message text is empty")
)
