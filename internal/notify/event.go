// Package notify publishes document lifecycle events for downstream
// front ends (bots, mailers) to consume.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	DocumentImported   EventType = "document.imported"
	DocumentSuperseded EventType = "document.superseded"
	ReviewPending      EventType = "review.pending"
	ReviewConfirmed    EventType = "review.confirmed"
	ReviewDismissed    EventType = "review.dismissed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	DocumentID int64     `json:"document_id"`
	// RelatedID is the other document of a version pair.
	RelatedID  *int64   `json:"related_id,omitempty"`
	ReviewID   *int64   `json:"review_id,omitempty"`
	Identifier string   `json:"identifier,omitempty"`
	Title      string   `json:"title,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
}

func NewEvent(typ EventType, documentID int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		DocumentID: documentID,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() {}
