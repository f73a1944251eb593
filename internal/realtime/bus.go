// Package realtime keeps the ledger working set consistent with a
// persistence store that other clients mutate concurrently. It consumes
// row-level change events from a notification bus and reconciles them
// into the ledger, tolerating redelivery and local-write echoes.
package realtime

import (
	"context"

	"github.com/tallyhq/tally/internal/record"
)

// Op is the operation carried by a change event.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is one row-level change pushed by the bus. Payload is the raw
// record as the store saw it; for deletes it may carry nothing but the
// id. Delivery order is guaranteed per collection only.
type Event struct {
	Collection record.Collection
	Op         Op
	Payload    record.Raw
}

// Bus is the change-notification source. A subscription's channel
// delivers events in order per collection and is closed when the
// connection drops; the subscriber must resubscribe. Events missed while
// disconnected are gone; consistency after an extended outage requires
// a full reload from the store.
type Bus interface {
	Subscribe(ctx context.Context, collections []record.Collection) (<-chan Event, error)
}
