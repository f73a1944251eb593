package realtime

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tallyhq/tally/internal/ledger"
	"github.com/tallyhq/tally/internal/metrics"
	"github.com/tallyhq/tally/internal/record"
)

// State is the coordinator's connection state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// reconnectDelay is the fixed pause before re-subscribing after a
// subscribe failure or a dropped feed.
const reconnectDelay = 5 * time.Second

// Coordinator subscribes to the change-notification bus and reconciles
// inbound events into the ledger working set. One Run goroutine owns the
// apply loop; the ledger's own mutex serializes it against direct-call
// mutators.
type Coordinator struct {
	bus         Bus
	ledger      *ledger.Ledger
	collections []record.Collection
	state       atomic.Int32
}

// NewCoordinator builds a coordinator watching all four collections.
func NewCoordinator(bus Bus, l *ledger.Ledger) *Coordinator {
	return &Coordinator{
		bus:    bus,
		ledger: l,
		collections: []record.Collection{
			record.Users, record.Groups, record.Expenses, record.Settlements,
		},
	}
}

// State returns the current connection state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run drives the subscribe/apply loop until ctx is canceled. On a
// dropped feed it re-subscribes after a fixed delay; events missed while
// disconnected are not recovered; callers trigger ledger.Reload when
// the outage was long enough to matter.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.state.Store(int32(Disconnected))

	for {
		c.state.Store(int32(Connecting))
		metrics.Reconnects.Inc()

		events, err := c.bus.Subscribe(ctx, c.collections)
		if err != nil {
			c.state.Store(int32(Disconnected))
			slog.Warn("bus subscribe failed", "error", err, "retry_in", reconnectDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
				continue
			}
		}

		c.state.Store(int32(Connected))
		slog.Info("change feed connected", "collections", len(c.collections))

		if err := c.drain(ctx, events); err != nil {
			return err
		}

		c.state.Store(int32(Disconnected))
		slog.Warn("change feed dropped", "retry_in", reconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// drain applies events until the feed closes or ctx is canceled.
func (c *Coordinator) drain(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Apply(ev)
		}
	}
}

// Apply reconciles one event into the ledger:
//
//   - insert: append unless a record with the payload's id already
//     exists, in which case treat it as an update (redelivery and
//     local-write echoes must not duplicate records)
//   - update: merge the fields present in the payload into the cached
//     record; an unmatched id is logged and ignored
//   - delete: remove by id; an unmatched id is a no-op
func (c *Coordinator) Apply(ev Event) {
	var applied bool
	switch ev.Collection {
	case record.Users:
		applied = c.applyUser(ev)
	case record.Groups:
		applied = c.applyGroup(ev)
	case record.Expenses:
		applied = c.applyExpense(ev)
	case record.Settlements:
		applied = c.applySettlement(ev)
	default:
		slog.Warn("event for unknown collection", "collection", ev.Collection, "op", ev.Op)
		return
	}

	if applied {
		metrics.EventsApplied.WithLabelValues(string(ev.Collection), string(ev.Op)).Inc()
	} else {
		metrics.EventsIgnored.WithLabelValues(string(ev.Collection), string(ev.Op)).Inc()
		slog.Debug("event ignored, no matching record",
			"collection", ev.Collection,
			"op", ev.Op,
			"id", payloadID(ev.Collection, ev.Payload),
		)
	}
}

func payloadID(c record.Collection, raw record.Raw) string {
	return record.Normalize(c, raw)["id"].(string)
}

func (c *Coordinator) applyUser(ev Event) bool {
	id := payloadID(record.Users, ev.Payload)
	if ev.Op == OpDelete {
		return c.ledger.RemoveUser(id)
	}
	if existing, ok := c.ledger.UserByID(id); ok {
		merged := record.Merge(record.Users, record.EncodeMember(existing), ev.Payload)
		c.ledger.UpsertUser(record.DecodeMember(merged))
		return true
	}
	if ev.Op == OpInsert {
		c.ledger.UpsertUser(record.DecodeMember(ev.Payload))
		return true
	}
	return false
}

func (c *Coordinator) applyGroup(ev Event) bool {
	id := payloadID(record.Groups, ev.Payload)
	if ev.Op == OpDelete {
		return c.ledger.RemoveGroup(id)
	}
	if existing, ok := c.ledger.GroupByID(id); ok {
		merged := record.Merge(record.Groups, record.EncodeGroup(existing), ev.Payload)
		c.ledger.UpsertGroup(record.DecodeGroup(merged))
		return true
	}
	if ev.Op == OpInsert {
		c.ledger.UpsertGroup(record.DecodeGroup(ev.Payload))
		return true
	}
	return false
}

func (c *Coordinator) applyExpense(ev Event) bool {
	id := payloadID(record.Expenses, ev.Payload)
	if ev.Op == OpDelete {
		return c.ledger.RemoveExpense(id)
	}
	if existing, ok := c.ledger.ExpenseByID(id); ok {
		merged := record.Merge(record.Expenses, record.EncodeExpense(existing), ev.Payload)
		c.ledger.UpsertExpense(record.DecodeExpense(merged))
		return true
	}
	if ev.Op == OpInsert {
		c.ledger.UpsertExpense(record.DecodeExpense(ev.Payload))
		return true
	}
	return false
}

func (c *Coordinator) applySettlement(ev Event) bool {
	id := payloadID(record.Settlements, ev.Payload)
	if ev.Op == OpDelete {
		return c.ledger.RemoveSettlement(id)
	}
	if existing, ok := c.ledger.SettlementByID(id); ok {
		merged := record.Merge(record.Settlements, record.EncodeSettlement(existing), ev.Payload)
		c.ledger.UpsertSettlement(record.DecodeSettlement(merged))
		return true
	}
	if ev.Op == OpInsert {
		c.ledger.UpsertSettlement(record.DecodeSettlement(ev.Payload))
		return true
	}
	return false
}
