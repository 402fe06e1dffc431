package pipeline

import "sync"

// CompletionEvent announces that a ticket's set of completed fields changed.
// Events are ephemeral: they exist only in flight on the Bus and are never
// persisted.
type CompletionEvent struct {
	TicketID  string    // Ticket the event refers to
	Completed FieldMask // Fields that are terminal as of this event
}

// DefaultBusCapacity is the per-subscriber buffer size used when no explicit
// capacity is configured.
const DefaultBusCapacity = 16

// Bus is a bounded multi-producer, multi-subscriber broadcast channel for
// CompletionEvents. Every subscriber receives every published event, in
// publish order, up to its buffer capacity.
//
// The lag policy is deliberate: a subscriber that falls behind has its oldest
// undelivered event dropped to make room for the newest one and is then
// disconnected (its event channel is closed and Err reports
// ErrSlowSubscriber). A disconnected subscriber must resubscribe or treat the
// condition as fatal; it is never silently fed stale data.
type Bus struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription]struct{}
	closed   bool
}

// NewBus creates a Bus whose subscribers buffer up to capacity undelivered
// events each. A capacity below one falls back to DefaultBusCapacity.
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = DefaultBusCapacity
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its Subscription.
// The caller must call Close when done. Subscribing to a closed bus returns
// an already-disconnected subscription whose Err is ErrBusClosed.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription{
		bus: b,
		ch:  make(chan CompletionEvent, b.capacity),
	}
	if b.closed {
		s.setErr(ErrBusClosed)
		s.closeOnce.Do(func() { close(s.ch) })
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish delivers the event to every current subscriber. Publishing never
// blocks on a slow subscriber: it disconnects them instead. Publishing to a
// closed bus is a no-op.
func (b *Bus) Publish(event CompletionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	for s := range b.subs {
		select {
		case s.ch <- event:
		default:
			// Subscriber lagged: drop its oldest undelivered event, deliver
			// the newest, then disconnect it.
			select {
			case <-s.ch:
			default:
			}
			s.ch <- event
			s.setErr(ErrSlowSubscriber)
			delete(b.subs, s)
			s.closeOnce.Do(func() { close(s.ch) })
		}
	}
}

// Close shuts the bus down. Every current subscription is disconnected with
// ErrBusClosed and future publishes are dropped. Safe to call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.setErr(ErrBusClosed)
		delete(b.subs, s)
		s.closeOnce.Do(func() { close(s.ch) })
	}
}

// unsubscribe detaches a subscription without recording an error.
func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Subscription is one subscriber's view of the Bus. Events are consumed from
// Events(); once that channel is closed, Err explains why: nil after a local
// Close, ErrSlowSubscriber after a lag disconnect, ErrBusClosed after a bus
// shutdown.
type Subscription struct {
	bus       *Bus
	ch        chan CompletionEvent
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Events returns the channel of completion events. The channel is closed when
// the subscription ends for any reason.
func (s *Subscription) Events() <-chan CompletionEvent {
	return s.ch
}

// Err returns the reason the subscription ended, or nil if it is still live
// or was closed locally.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close detaches the subscription from the bus and closes its event channel.
// Implements io.Closer. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.bus.unsubscribe(s)
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

func (s *Subscription) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
