// Package memory provides an in-memory implementation of the
// storage.Store interface that doubles as a change-notification bus:
// every mutation is published to subscribers as a row-level event.
// Used in tests and as the backend for single-node deployments.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/realtime"
	"github.com/tallyhq/tally/internal/record"
	"github.com/tallyhq/tally/internal/storage"
)

var (
	_ storage.Store = (*Store)(nil)
	_ realtime.Bus  = (*Store)(nil)
)

// eventBuffer bounds each subscriber's channel; a subscriber that falls
// this far behind starts losing events and must reload.
const eventBuffer = 64

// Store keeps every collection as an insertion-ordered slice of raw
// records guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	records     map[record.Collection][]record.Raw
	subscribers []*subscriber
	closed      bool
}

type subscriber struct {
	collections map[record.Collection]bool
	ch          chan realtime.Event
}

// New returns an empty store with no subscribers.
func New() *Store {
	return &Store{
		records: map[record.Collection][]record.Raw{
			record.Users:       {},
			record.Groups:      {},
			record.Expenses:    {},
			record.Settlements: {},
		},
	}
}

// Close drops all records and closes every subscription channel.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subscribers {
		close(sub.ch)
	}
	s.subscribers = nil
	return nil
}

// Subscribe registers a change feed for the named collections. The
// channel closes when the store is closed or ctx is canceled.
func (s *Store) Subscribe(ctx context.Context, collections []record.Collection) (<-chan realtime.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("memory store closed")
	}

	sub := &subscriber{
		collections: make(map[record.Collection]bool, len(collections)),
		ch:          make(chan realtime.Event, eventBuffer),
	}
	for _, c := range collections {
		sub.collections[c] = true
	}
	s.subscribers = append(s.subscribers, sub)

	go func() {
		<-ctx.Done()
		s.unsubscribe(sub)
	}()

	return sub.ch, nil
}

func (s *Store) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.subscribers {
		if candidate == sub {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// publish fans the event out to interested subscribers without blocking;
// a full subscriber buffer drops the event.
// Callers hold s.mu.
func (s *Store) publish(ev realtime.Event) {
	for _, sub := range s.subscribers {
		if !sub.collections[ev.Collection] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			slog.Warn("subscriber buffer full, dropping event",
				"collection", ev.Collection, "op", ev.Op)
		}
	}
}

func recordID(c record.Collection, raw record.Raw) string {
	return record.Normalize(c, raw)["id"].(string)
}

// List returns the collection's records in insertion order, optionally
// filtered by group id.
func (s *Store) List(_ context.Context, c record.Collection, filter storage.Filter) ([]record.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groupID := ""
	if filter != nil {
		if v, ok := filter["groupId"].(string); ok {
			groupID = v
		}
	}

	var out []record.Raw
	for _, r := range s.records[c] {
		if groupID != "" && record.Normalize(c, r)["groupId"] != groupID {
			continue
		}
		out = append(out, maps.Clone(r))
	}
	return out, nil
}

// Get retrieves a single record by id.
func (s *Store) Get(_ context.Context, c record.Collection, id string) (record.Raw, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records[c] {
		if recordID(c, r) == id {
			return maps.Clone(r), nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", c, id, storage.ErrNotFound)
}

// Insert stores the canonical form of the record, assigning an id when
// absent, and publishes an insert event. Normalize fills missing
// timestamps with the current time.
func (s *Store) Insert(_ context.Context, c record.Collection, raw record.Raw) (record.Raw, error) {
	canonical := record.Normalize(c, raw)
	if canonical["id"] == "" {
		canonical["id"] = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[c] = append(s.records[c], canonical)
	s.publish(realtime.Event{Collection: c, Op: realtime.OpInsert, Payload: maps.Clone(canonical)})
	return maps.Clone(canonical), nil
}

// Update merges the fields present in partial into the stored record,
// publishes an update event, and returns the result.
func (s *Store) Update(_ context.Context, c record.Collection, id string, partial record.Raw) (record.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records[c] {
		if recordID(c, r) != id {
			continue
		}
		merged := record.Merge(c, r, partial)
		merged["id"] = id
		s.records[c][i] = merged
		s.publish(realtime.Event{Collection: c, Op: realtime.OpUpdate, Payload: maps.Clone(merged)})
		return maps.Clone(merged), nil
	}
	return nil, fmt.Errorf("%s %s: %w", c, id, storage.ErrNotFound)
}

// Delete removes a record by id and publishes a delete event.
func (s *Store) Delete(_ context.Context, c record.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.records[c] {
		if recordID(c, r) != id {
			continue
		}
		s.records[c] = append(s.records[c][:i], s.records[c][i+1:]...)
		s.publish(realtime.Event{Collection: c, Op: realtime.OpDelete, Payload: record.Raw{"id": id}})
		return nil
	}
	return fmt.Errorf("%s %s: %w", c, id, storage.ErrNotFound)
}
