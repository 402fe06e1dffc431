package pipeline

import (
	"context"
	"fmt"
	"log"
)

// Pipeline wires a set of enrichers to a shared ticket store and completion
// event bus. Construction accumulates enrichers; Run starts one reactive
// goroutine per enricher; ProcessTicket submits a ticket and blocks until it
// has converged.
//
// Enricher order affects only start-up sequencing, never correctness: the
// scheduler is stateless between events, and every valid (ticket, enricher)
// transition is eventually signalled by some delivered event.
type Pipeline struct {
	enrichers []Enricher
	store     *Store
	bus       *Bus
}

// NewPipeline creates a pipeline with an empty store and an event bus of the
// given per-subscriber capacity. A capacity below one falls back to
// DefaultBusCapacity.
func NewPipeline(busCapacity int) *Pipeline {
	return &Pipeline{
		store: NewStore(),
		bus:   NewBus(busCapacity),
	}
}

// WithEnricher appends an enricher and returns the pipeline for chaining.
// Must be called before Run.
func (p *Pipeline) WithEnricher(e Enricher) *Pipeline {
	p.enrichers = append(p.enrichers, e)
	return p
}

// Store returns the pipeline's ticket store. Useful for sinks and tests;
// mutations must still go through the store's atomic update path.
func (p *Pipeline) Store() *Store {
	return p.store
}

// Subscribe attaches a new subscription to the pipeline's event bus. Sinks
// (such as an archive) use this to observe convergence independently of any
// waiting caller.
func (p *Pipeline) Subscribe() *Subscription {
	return p.bus.Subscribe()
}

// Run starts one long-lived goroutine per configured enricher. The goroutines
// live until ctx is cancelled or their subscription is disconnected.
// Running with zero enrichers is a fatal configuration error: ErrNoEnrichers
// is returned and no goroutines are started.
func (p *Pipeline) Run(ctx context.Context) error {
	if len(p.enrichers) == 0 {
		return ErrNoEnrichers
	}
	for _, e := range p.enrichers {
		go p.runEnricher(ctx, e)
	}
	log.Printf("[Pipeline] Started %d enricher tasks", len(p.enrichers))
	return nil
}

// runEnricher is the reactive loop for a single enricher. It wakes on every
// completion event, evaluates the gating predicate against the ticket's
// current mask, and processes the ticket at most once per output field.
func (p *Pipeline) runEnricher(ctx context.Context, e Enricher) {
	sub := p.bus.Subscribe()
	defer sub.Close()

	required := e.RequiredFields()
	output := e.OutputFields()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Pipeline] %s: shutting down", e.Name())
			return

		case event, ok := <-sub.Events():
			if !ok {
				// Lagged or bus closed. A unit task cannot safely resume from
				// a gap in the event stream, so this is fatal for the task.
				log.Printf("[Pipeline] %s: subscription ended: %v", e.Name(), sub.Err())
				return
			}

			ticket, found := p.store.Get(event.TicketID)
			if !found {
				continue
			}

			current := ticket.CompletedFields()
			dependenciesMet := current.Contains(required)
			notYetDone := !current.Intersects(output)
			if !dependenciesMet || !notYetDone {
				continue
			}

			log.Printf("[Pipeline] %s: processing ticket %s (completed: %s, required: %s, produces: %s)",
				e.Name(), event.TicketID, current, required, output)

			result := e.Process(ctx, ticket)

			updated, present := p.store.Update(event.TicketID, func(t *TriagedTicket) {
				t.MergeFrom(result)
			})
			if !present {
				// Ticket was removed while the enricher ran; nothing to announce.
				continue
			}

			log.Printf("[Pipeline] %s: finished ticket %s (completed: %s)",
				e.Name(), event.TicketID, updated.CompletedFields())

			p.bus.Publish(CompletionEvent{
				TicketID:  event.TicketID,
				Completed: updated.CompletedFields(),
			})
		}
	}
}

// ProcessTicket submits a ticket and blocks until every enrichment field has
// reached a terminal result, then returns the final snapshot. The returned
// ticket can mix Success and Error fields; only orchestration-level failures
// (cancellation, a disconnected subscription, the ticket vanishing from the
// store) surface as errors.
//
// There is no built-in timeout: a stalled enricher blocks the caller until
// ctx is cancelled.
func (p *Pipeline) ProcessTicket(ctx context.Context, ticket SupportTicket) (TriagedTicket, error) {
	log.Printf("[Pipeline] Submitting ticket %s", ticket.ID)

	// Subscribe before the seed event so no completion can slip past us.
	sub := p.bus.Subscribe()
	defer sub.Close()

	p.store.Add(NewTriagedTicket(ticket))
	p.bus.Publish(CompletionEvent{TicketID: ticket.ID, Completed: NoFields})

	for {
		select {
		case <-ctx.Done():
			return TriagedTicket{}, fmt.Errorf("pipeline: waiting for ticket %s: %w", ticket.ID, ctx.Err())

		case event, ok := <-sub.Events():
			if !ok {
				err := sub.Err()
				if err == nil {
					err = ErrBusClosed
				}
				return TriagedTicket{}, fmt.Errorf("pipeline: waiting for ticket %s: %w", ticket.ID, err)
			}
			if event.TicketID != ticket.ID || event.Completed != AllFields {
				continue
			}

			final, found := p.store.Get(ticket.ID)
			if !found {
				return TriagedTicket{}, fmt.Errorf("pipeline: ticket %s converged but vanished: %w", ticket.ID, ErrTicketNotFound)
			}
			log.Printf("[Pipeline] Ticket %s converged", ticket.ID)
			return final, nil
		}
	}
}

// Close shuts down the event bus, disconnecting every subscriber. Enricher
// goroutines observe the disconnect and exit.
func (p *Pipeline) Close() {
	p.bus.Close()
}
