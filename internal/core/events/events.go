// Package events defines ledger events and the publisher contract.
// Events are written to the transactional outbox inside the mutating transaction.
package events

import "context"

// Event is a fact emitted by a ledger mutation.
type Event struct {
	// AggregateType groups events, e.g. "stock", "grocery_batch", "machine_batch".
	AggregateType string
	// AggregateID identifies the aggregate (scope key or batch token).
	AggregateID string
	// Type is the event name, e.g. "stock.added".
	Type    string
	Payload any
}

// Publisher writes events. Implementations must join the transaction carried by ctx.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, events ...Event) error {
	r.Events = append(r.Events, events...)
	return nil
}

// Types returns the event types in publish order.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
