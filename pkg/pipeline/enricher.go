package pipeline

import "context"

// Enricher is the capability contract an enrichment unit exposes to the
// pipeline. Implementations may be pure functions or clients of remote
// services; the engine treats them opaquely.
//
// Process is handed a snapshot of the ticket and returns a ticket whose
// output fields carry a terminal result (Success or Error) and whose other
// fields are Pending; pending fields are ignored by the merge. An enricher
// must never report an output field as terminal before its work has actually
// finished.
//
// Process must be safe to invoke concurrently for different tickets. The
// scheduler, not the enricher, guarantees at most one concurrent invocation
// per (ticket, enricher) pair. Internal failures are captured into the
// ticket's fields, never returned to the orchestrator.
type Enricher interface {
	// Name identifies the enricher in log output.
	Name() string

	// RequiredFields returns the fields that must already be terminal before
	// this enricher may run.
	RequiredFields() FieldMask

	// OutputFields returns the field(s) this enricher is solely responsible
	// for producing. Output masks are disjoint across enrichers by contract.
	OutputFields() FieldMask

	// Process computes this enricher's output fields for the given snapshot.
	// It may perform arbitrary external I/O and may block; the engine places
	// no bound on that suspension beyond context cancellation.
	Process(ctx context.Context, ticket TriagedTicket) TriagedTicket
}
