package state

import (
	"slices"
	"sync"

	"github.com/adanyl0v/manageq/internal/aggregation"
	"github.com/adanyl0v/manageq/internal/models"
)

// Listener is called with the new snapshot after every dispatch.
type Listener func(State)

// Store owns the current snapshot. It is safe for concurrent use;
// dispatches are applied one at a time in arrival order.
type Store struct {
	mu            sync.Mutex
	state         State
	subscriptions []*subscription
}

type subscription struct {
	listener Listener
}

func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Dispatch applies a and notifies listeners synchronously. Listeners run
// outside the lock and may dispatch again.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	subscriptions := slices.Clone(s.subscriptions)
	s.mu.Unlock()

	for _, sub := range subscriptions {
		sub.listener(next)
	}
	return next
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats summarizes the tasks of the current snapshot.
func (s *Store) Stats() models.TaskStats {
	return aggregation.ComputeStats(s.State().Tasks)
}

// Subscribe registers l and returns a function that unregisters it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	sub := &subscription{listener: l}

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.subscriptions = slices.DeleteFunc(s.subscriptions, func(other *subscription) bool {
			return other == sub
		})
	}
}
