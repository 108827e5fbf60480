// Package memory provides an in-memory mirror transport used in tests and
// as a stand-in endpoint for local development.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Event records one delivered snapshot.
type Event struct {
	Collection string
	Data       json.RawMessage
}

type Store struct {
	mu     sync.Mutex
	events []Event
	latest map[string]json.RawMessage
	// FailWith, when set, makes every delivery return this error.
	FailWith error
}

func New() *Store {
	return &Store{latest: make(map[string]json.RawMessage)}
}

// Sync records the snapshot as the collection's latest contents.
func (s *Store) Sync(_ context.Context, collection string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.events = append(s.events, Event{Collection: collection, Data: raw})
	s.latest[collection] = raw
	return nil
}

// Fetch returns the latest recorded snapshot for the collection.
func (s *Store) Fetch(_ context.Context, collection string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.latest[collection]
	if !ok {
		return nil, errors.New("collection not found: " + collection)
	}
	return raw, nil
}

// Events returns a copy of everything delivered so far.
func (s *Store) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
