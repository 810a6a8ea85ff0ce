// Package session keeps live campaign controllers in memory, keyed by campaign id
// for the HTTP API and by chat for the Telegram bot. Nothing is persisted.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"align-bot/internal/pipeline"
)

type Campaign struct {
	ID           uuid.UUID
	Controller   *pipeline.Controller
	CreatedAt    time.Time
	LastActivity time.Time
}

type Store struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*Campaign
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		campaigns: make(map[uuid.UUID]*Campaign),
		now:       time.Now,
	}
}

// Add registers a controller under a fresh id.
func (s *Store) Add(c *pipeline.Controller) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	now := s.now()
	s.campaigns[id] = &Campaign{ID: id, Controller: c, CreatedAt: now, LastActivity: now}
	return id
}

// Get returns the controller and marks the campaign as active.
func (s *Store) Get(id uuid.UUID) (*pipeline.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	camp, ok := s.campaigns[id]
	if !ok {
		return nil, false
	}
	camp.LastActivity = s.now()
	return camp.Controller, true
}

// Delete removes the campaign and closes its controller, cancelling any stage
// call in flight.
func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	camp, ok := s.campaigns[id]
	delete(s.campaigns, id)
	s.mu.Unlock()

	if ok {
		camp.Controller.Close()
	}
	return ok
}

// Sweep closes and forgets campaigns idle for longer than ttl. Campaigns with a
// stage in flight are kept.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var stale []*pipeline.Controller
	for id, camp := range s.campaigns {
		if camp.LastActivity.After(cutoff) || camp.Controller.Snapshot().State.Busy() {
			continue
		}
		stale = append(stale, camp.Controller)
		delete(s.campaigns, id)
	}
	s.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.campaigns)
}

// CloseAll closes every controller. The store is empty afterwards.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.campaigns
	s.campaigns = make(map[uuid.UUID]*Campaign)
	s.mu.Unlock()

	for _, camp := range all {
		camp.Controller.Close()
	}
}
