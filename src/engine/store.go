package engine

import (
	"errors"
	"sync"

	logger "github.com/sirupsen/logrus"

	"orderexecutor/src/model"
)

// ErrUnknownOrder is returned for operations on client order IDs the store
// has never seen.
var ErrUnknownOrder = errors.New("unknown order")

// orderActor owns one order. All mutation goes through its mailbox, so
// transitions for one order are applied strictly in arrival order while
// different orders proceed in parallel.
type orderActor struct {
	order   *model.Order
	mailbox chan func(*model.Order)
	done    chan struct{}
}

func newOrderActor(order *model.Order) *orderActor {
	a := &orderActor{
		order:   order,
		mailbox: make(chan func(*model.Order), 64),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *orderActor) run() {
	for fn := range a.mailbox {
		fn(a.order)
	}
	close(a.done)
}

// Store is the authoritative in-memory holder of live order state. It owns
// each Order and its fills/status updates for the order's lifetime and
// enforces the single-writer discipline per order.
type Store struct {
	mu      sync.RWMutex
	actors  map[string]*orderActor // keyed by clientOrderID
	byVenue map[string]string      // venueOrderID -> clientOrderID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		actors:  make(map[string]*orderActor),
		byVenue: make(map[string]string),
	}
}

// Create registers a new order. Returns the already-registered order and
// false when the client order ID is known — the caller must treat that as a
// duplicate submission, never create a second venue order.
func (s *Store) Create(order *model.Order) (*model.Order, bool) {
	s.mu.Lock()
	existing, ok := s.actors[order.ClientOrderID]
	if !ok {
		s.actors[order.ClientOrderID] = newOrderActor(order)
		s.mu.Unlock()
		return order, true
	}
	s.mu.Unlock()

	logger.WithField("client_order_id", order.ClientOrderID).
		Info("duplicate client order id, returning existing order")

	var snap *model.Order
	s.do(existing, func(o *model.Order) {
		c := *o
		snap = &c
	})
	return snap, false
}

// Get returns a copy of the order's current state.
func (s *Store) Get(clientOrderID string) (*model.Order, bool) {
	s.mu.RLock()
	actor, ok := s.actors[clientOrderID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	var snap *model.Order
	s.do(actor, func(o *model.Order) {
		c := *o
		snap = &c
	})
	return snap, true
}

// ResolveVenueOrder maps a venue-assigned order ID back to the client order.
func (s *Store) ResolveVenueOrder(venueOrderID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clientOrderID, ok := s.byVenue[venueOrderID]
	return clientOrderID, ok
}

// BindVenueOrder records the venue-assigned ID. Set exactly once; a second
// bind for the same order is refused.
func (s *Store) BindVenueOrder(clientOrderID, venueOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actors[clientOrderID]; !ok {
		return ErrUnknownOrder
	}
	if owner, ok := s.byVenue[venueOrderID]; ok && owner != clientOrderID {
		return errors.New("venue order id already bound to another order")
	}

	s.byVenue[venueOrderID] = clientOrderID
	return nil
}

// Do runs fn inside the order's single-writer path and waits for it to
// complete. fn receives the live order and may mutate it.
func (s *Store) Do(clientOrderID string, fn func(*model.Order) error) error {
	s.mu.RLock()
	actor, ok := s.actors[clientOrderID]
	s.mu.RUnlock()
	if !ok {
		return ErrUnknownOrder
	}

	var err error
	s.do(actor, func(o *model.Order) {
		err = fn(o)
	})
	return err
}

func (s *Store) do(actor *orderActor, fn func(*model.Order)) {
	doneCh := make(chan struct{})
	actor.mailbox <- func(o *model.Order) {
		defer close(doneCh)
		fn(o)
	}
	<-doneCh
}

// Close drains every actor. Used on shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	actors := make([]*orderActor, 0, len(s.actors))
	for _, a := range s.actors {
		actors = append(actors, a)
	}
	s.mu.Unlock()

	for _, a := range actors {
		close(a.mailbox)
		<-a.done
	}
}
