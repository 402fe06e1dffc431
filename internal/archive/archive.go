// Package archive persists converged tickets to Redis. It is a sink on the
// pipeline's event bus: it never participates in enrichment and the pipeline
// never depends on it. With eviction enabled, a ticket leaves the live store
// once it is durably archived, so the store holds only in-flight work.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/triage/pkg/pipeline"
)

// Archiver writes converged tickets to Redis hashes under
// triage:archive:{ticket_id}.
type Archiver struct {
	rdb   *redis.Client
	evict bool
}

// NewArchiver creates an archiver for the given Redis connection options.
// With evict set, every archived ticket is removed from the live store.
func NewArchiver(redisOpts *redis.Options, evict bool) *Archiver {
	return &Archiver{
		rdb:   redis.NewClient(redisOpts),
		evict: evict,
	}
}

// Close closes the Redis connection. Implements io.Closer.
func (a *Archiver) Close() error {
	return a.rdb.Close()
}

// Ping verifies Redis connectivity. Useful before starting the run loop.
func (a *Archiver) Ping(ctx context.Context) error {
	return a.rdb.Ping(ctx).Err()
}

// ArchiveKey returns the Redis key for an archived ticket.
func ArchiveKey(ticketID string) string {
	return fmt.Sprintf("triage:archive:%s", ticketID)
}

// Run consumes completion events from sub until ctx is cancelled or the
// subscription ends, archiving every ticket whose event shows full
// convergence. Archiving the same ticket twice is safe: the write is
// idempotent.
func (a *Archiver) Run(ctx context.Context, sub *pipeline.Subscription, store *pipeline.Store) {
	defer sub.Close()
	log.Printf("[Archive] Watching for converged tickets")

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Archive] Shutting down")
			return

		case event, ok := <-sub.Events():
			if !ok {
				log.Printf("[Archive] Subscription ended: %v", sub.Err())
				return
			}
			if event.Completed != pipeline.AllFields {
				continue
			}

			ticket, found := store.Get(event.TicketID)
			if !found {
				continue
			}

			if err := a.Archive(ctx, ticket); err != nil {
				log.Printf("[Archive] Failed to archive ticket %s: %v", event.TicketID, err)
				continue
			}
			log.Printf("[Archive] Archived ticket %s", event.TicketID)

			if a.evict {
				store.Remove(event.TicketID)
			}
		}
	}
}

// Archive writes a single ticket to its Redis hash.
func (a *Archiver) Archive(ctx context.Context, ticket pipeline.TriagedTicket) error {
	hash, err := ticketToHash(ticket)
	if err != nil {
		return fmt.Errorf("failed to serialize ticket: %w", err)
	}
	if err := a.rdb.HSet(ctx, ArchiveKey(ticket.Ticket.ID), hash).Err(); err != nil {
		return fmt.Errorf("failed to write ticket to Redis: %w", err)
	}
	return nil
}

// GetTicket reads an archived ticket back. Returns (zero, redis.Nil) when the
// ticket is not archived; use IsNotFound to check.
func (a *Archiver) GetTicket(ctx context.Context, ticketID string) (pipeline.TriagedTicket, error) {
	hash, err := a.rdb.HGetAll(ctx, ArchiveKey(ticketID)).Result()
	if err != nil {
		return pipeline.TriagedTicket{}, fmt.Errorf("failed to read ticket from Redis: %w", err)
	}
	// HGetAll returns an empty map for missing keys.
	if len(hash) == 0 {
		return pipeline.TriagedTicket{}, redis.Nil
	}
	return hashToTicket(hash)
}

// IsNotFound returns true if the error means "ticket not archived".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// ticketToHash flattens a ticket into a Redis hash. The scalar source fields
// stay queryable on their own; each tri-state result is JSON-encoded into a
// single hash field.
func ticketToHash(t pipeline.TriagedTicket) (map[string]interface{}, error) {
	hash := map[string]interface{}{
		"id":           t.Ticket.ID,
		"content":      t.Ticket.Content,
		"timestamp_ms": t.Ticket.Timestamp.UnixMilli(),
		"customer_id":  t.Ticket.CustomerID,
	}

	results := map[string]any{
		"language":  t.Language,
		"sentiment": t.Sentiment,
		"category":  t.Category,
		"priority":  t.Priority,
	}
	for field, result := range results {
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", field, err)
		}
		hash[field] = string(encoded)
	}

	return hash, nil
}

// hashToTicket rebuilds a ticket from its Redis hash.
func hashToTicket(hash map[string]string) (pipeline.TriagedTicket, error) {
	timestampMs, err := strconv.ParseInt(hash["timestamp_ms"], 10, 64)
	if err != nil {
		return pipeline.TriagedTicket{}, fmt.Errorf("invalid timestamp_ms field: %w", err)
	}

	ticket := pipeline.TriagedTicket{
		Ticket: pipeline.SupportTicket{
			ID:         hash["id"],
			Content:    hash["content"],
			Timestamp:  time.UnixMilli(timestampMs).UTC(),
			CustomerID: hash["customer_id"],
		},
	}

	if err := json.Unmarshal([]byte(hash["language"]), &ticket.Language); err != nil {
		return pipeline.TriagedTicket{}, fmt.Errorf("failed to unmarshal language: %w", err)
	}
	if err := json.Unmarshal([]byte(hash["sentiment"]), &ticket.Sentiment); err != nil {
		return pipeline.TriagedTicket{}, fmt.Errorf("failed to unmarshal sentiment: %w", err)
	}
	if err := json.Unmarshal([]byte(hash["category"]), &ticket.Category); err != nil {
		return pipeline.TriagedTicket{}, fmt.Errorf("failed to unmarshal category: %w", err)
	}
	if err := json.Unmarshal([]byte(hash["priority"]), &ticket.Priority); err != nil {
		return pipeline.TriagedTicket{}, fmt.Errorf("failed to unmarshal priority: %w", err)
	}

	return ticket, nil
}
