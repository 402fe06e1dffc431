// Package pipeline implements the reactive enrichment engine for support
// tickets. A ticket is annotated by a set of independent enrichers, each of
// which declares the fields it needs and the fields it produces.
//
// # Overview
//
// The pipeline is built around three pieces of shared state:
//
// The Store holds one TriagedTicket per submitted ticket. Every mutation goes
// through its atomic Update path, so concurrent enrichers writing disjoint
// fields compose safely.
//
// The Bus broadcasts CompletionEvents to every subscriber. An event carries a
// ticket ID and the FieldMask of fields that have reached a terminal result.
// The bus is bounded: a subscriber that falls behind is disconnected rather
// than fed stale data.
//
// Each configured Enricher gets one long-lived goroutine that reacts to
// events: when an event shows that the enricher's required fields are complete
// and its own output fields are not, it processes a snapshot of the ticket,
// merges the result back into the store, and publishes a fresh event. A field
// is produced at most once per ticket; repeated events are no-ops once the
// output fields are terminal.
//
// # Usage Example
//
//	p := pipeline.NewPipeline().
//		WithEnricher(language).
//		WithEnricher(sentiment).
//		WithEnricher(classification).
//		WithEnricher(priority)
//
//	if err := p.Run(ctx); err != nil {
//		return err
//	}
//
//	triaged, err := p.ProcessTicket(ctx, ticket)
//
// ProcessTicket blocks until every field of the ticket is terminal (Success or
// Error). A failed field never poisons its siblings: the returned ticket can
// carry a mix of successes and per-field errors.
package pipeline
