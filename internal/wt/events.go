package wt

import (
	"context"
	"time"
)

// Event types published after successful storage operations.
const (
	EventEntrySaved   = "entry.saved"
	EventEntryDeleted = "entry.deleted"
)

// Event describes a change to the stored entries.
type Event struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Entry *MeasurementEntry `json:"entry,omitempty"`
	At    time.Time         `json:"at"`
}

// Publisher delivers events to interested parties. Publishing is best effort:
// screens log failures and never surface them to the user.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
