package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-field enrichment failure.
type ErrorKind string

const (
	// KindOrchestration covers failures of the engine itself: no enrichers
	// configured, a closed event bus, or a ticket vanishing from the store.
	KindOrchestration ErrorKind = "orchestration"

	// KindInvalidInput marks ticket data an enricher could not work with.
	KindInvalidInput ErrorKind = "invalid_input"

	// KindTransport marks a network-level failure reaching a remote collaborator.
	KindTransport ErrorKind = "transport"

	// KindLanguageDetection marks a failed language detection.
	KindLanguageDetection ErrorKind = "language_detection"

	// KindSentimentAnalysis marks a failed or malformed sentiment inference.
	KindSentimentAnalysis ErrorKind = "sentiment_analysis"

	// KindClassification marks a failed or malformed category classification.
	KindClassification ErrorKind = "classification"

	// KindPriorityCalculation marks a priority derivation that could not run.
	KindPriorityCalculation ErrorKind = "priority_calculation"

	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown"
)

// Validate checks if the ErrorKind is a known value.
func (k ErrorKind) Validate() error {
	switch k {
	case KindOrchestration, KindInvalidInput, KindTransport, KindLanguageDetection,
		KindSentimentAnalysis, KindClassification, KindPriorityCalculation, KindUnknown:
		return nil
	default:
		return fmt.Errorf("unknown error kind: %q", k)
	}
}

// FieldError is the terminal error outcome of a single enrichment field.
// It lives inside the ticket rather than propagating to the orchestrator:
// a failure in one field never aborts processing of its siblings.
type FieldError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewFieldError builds a FieldError with a formatted message.
func NewFieldError(kind ErrorKind, format string, a ...any) *FieldError {
	return &FieldError{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Orchestration-level sentinel errors. These are the only failures that
// surface from ProcessTicket; everything else is captured inside the ticket.
var (
	// ErrNoEnrichers is returned by Run when the pipeline has no enrichers
	// configured. This is a fatal configuration error: no tasks are started.
	ErrNoEnrichers = errors.New("pipeline: no enrichers configured")

	// ErrBusClosed is returned when an event subscription ends because the
	// bus was shut down.
	ErrBusClosed = errors.New("pipeline: event bus closed")

	// ErrSlowSubscriber is reported by a subscription that fell behind the
	// bus and was disconnected. The holder must resubscribe or treat the
	// condition as fatal.
	ErrSlowSubscriber = errors.New("pipeline: subscriber lagged behind event bus")

	// ErrTicketNotFound is returned when a ticket disappeared from the store
	// before its final snapshot could be fetched.
	ErrTicketNotFound = errors.New("pipeline: ticket not found in store")
)
