package pipeline

import "sync"

// Store is a concurrent map of ticket ID to TriagedTicket. A single
// reader-writer lock serializes all access: reads may overlap, writes exclude
// everything else. Expected concurrent cardinality is in-flight submissions,
// not bulk storage, so there is no per-ticket locking.
//
// Callers only ever see snapshot copies; the stored value is mutated solely
// through Update.
type Store struct {
	mu      sync.RWMutex
	tickets map[string]TriagedTicket
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{tickets: make(map[string]TriagedTicket)}
}

// Add inserts a ticket, silently overwriting any existing entry with the
// same ID. Uniqueness of IDs is the caller's responsibility.
func (s *Store) Add(ticket TriagedTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.Ticket.ID] = ticket
}

// Get returns a snapshot copy of the ticket with the given ID.
// The second return value is false if the ID is unknown.
func (s *Store) Get(id string) (TriagedTicket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	return ticket, ok
}

// Update atomically applies updater to the stored ticket under exclusive
// access and returns the updated snapshot. It is the only write path besides
// Add and Remove. Returns false if the ID is unknown; updater is not called.
func (s *Store) Update(id string, updater func(*TriagedTicket)) (TriagedTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return TriagedTicket{}, false
	}
	updater(&ticket)
	s.tickets[id] = ticket
	return ticket, true
}

// Remove deletes the ticket with the given ID. Removing an unknown ID is
// a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, id)
}

// Len returns the number of tickets currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
