package wt

import (
	"sync"
	"time"
)

// MessageKind distinguishes success notices from errors.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message is a transient notification shown to one session.
type Message struct {
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// MessageBoard holds transient messages per session. Messages disappear on
// their own once their time-to-live has passed. Safe for concurrent use.
type MessageBoard struct {
	clock    Clock
	mu       sync.Mutex
	messages map[string][]Message
}

// NewMessageBoard creates an empty MessageBoard.
func NewMessageBoard(clock Clock) *MessageBoard {
	return &MessageBoard{
		clock:    clock,
		messages: make(map[string][]Message),
	}
}

// Post replaces the session's messages with a single new one. Sessions whose
// messages have all expired are dropped on the way.
func (b *MessageBoard) Post(session string, kind MessageKind, text string, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	for id, msgs := range b.messages {
		if !anyLive(msgs, now) {
			delete(b.messages, id)
		}
	}

	b.messages[session] = []Message{{
		Kind:      kind,
		Text:      text,
		ExpiresAt: now.Add(ttl),
	}}
}

func anyLive(msgs []Message, now time.Time) bool {
	for _, m := range msgs {
		if now.Before(m.ExpiresAt) {
			return true
		}
	}
	return false
}

// Len returns the number of sessions holding messages.
func (b *MessageBoard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

// Clear removes every message for the session.
func (b *MessageBoard) Clear(session string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.messages, session)
}

// Current returns the session's unexpired messages, pruning expired ones.
func (b *MessageBoard) Current(session string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	var live []Message
	for _, m := range b.messages[session] {
		if now.Before(m.ExpiresAt) {
			live = append(live, m)
		}
	}

	if len(live) == 0 {
		delete(b.messages, session)
		return nil
	}
	b.messages[session] = live
	return append([]Message(nil), live...)
}
