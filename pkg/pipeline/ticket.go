package pipeline

import (
	"fmt"
	"time"
)

// SupportTicket is the immutable source record submitted to the pipeline.
// It is created once by the caller and never mutated.
type SupportTicket struct {
	ID         string    `json:"id"`          // Caller-supplied unique identifier
	Content    string    `json:"content"`     // Raw ticket text
	Timestamp  time.Time `json:"timestamp"`   // When the ticket was raised
	CustomerID string    `json:"customer_id"` // Originating customer
}

// ResultState is the tri-state outcome of a single enrichment field.
type ResultState string

const (
	// StatePending means the field has not produced a terminal result yet.
	StatePending ResultState = "pending"

	// StateSuccess means the field carries a value.
	StateSuccess ResultState = "success"

	// StateError means the field carries a terminal FieldError.
	StateError ResultState = "error"
)

// FieldResult is the tri-state result of one enrichment field. Only Success
// and Error count as completed; Pending is a genuine distinct case, not a
// nullable value.
//
// The zero value behaves as Pending.
type FieldResult[T any] struct {
	State ResultState `json:"state"`
	Value T           `json:"value,omitempty"`
	Err   *FieldError `json:"error,omitempty"`
}

// Pending returns a FieldResult in the pending state.
func Pending[T any]() FieldResult[T] {
	return FieldResult[T]{State: StatePending}
}

// Success returns a terminal FieldResult carrying a value.
func Success[T any](value T) FieldResult[T] {
	return FieldResult[T]{State: StateSuccess, Value: value}
}

// Failure returns a terminal FieldResult carrying a FieldError.
func Failure[T any](err *FieldError) FieldResult[T] {
	return FieldResult[T]{State: StateError, Err: err}
}

// Terminal reports whether the result is completed (Success or Error).
func (r FieldResult[T]) Terminal() bool {
	return r.State == StateSuccess || r.State == StateError
}

// IsSuccess reports whether the result carries a value.
func (r FieldResult[T]) IsSuccess() bool {
	return r.State == StateSuccess
}

// Language is a detected natural-language tag, e.g. "English".
type Language string

// SentimentLabel is the discrete label of a sentiment inference.
type SentimentLabel string

const (
	SentimentVeryPositive SentimentLabel = "Very Positive"
	SentimentPositive     SentimentLabel = "Positive"
	SentimentNeutral      SentimentLabel = "Neutral"
	SentimentNegative     SentimentLabel = "Negative"
	SentimentVeryNegative SentimentLabel = "Very Negative"
)

// ParseSentimentLabel maps a raw label string from the inference endpoint to
// a SentimentLabel. Unknown labels default to Neutral.
func ParseSentimentLabel(raw string) SentimentLabel {
	switch raw {
	case "Very Positive":
		return SentimentVeryPositive
	case "Positive":
		return SentimentPositive
	case "Neutral":
		return SentimentNeutral
	case "Negative":
		return SentimentNegative
	case "Very Negative":
		return SentimentVeryNegative
	default:
		return SentimentNeutral
	}
}

// SentimentScore is a single top-ranked sentiment inference result.
type SentimentScore struct {
	Label      SentimentLabel `json:"label"`
	Confidence float32        `json:"confidence"` // In [0, 1]
}

// Category is the support category a ticket is classified into.
type Category string

const (
	CategoryBilling   Category = "Billing"
	CategoryAccount   Category = "Account"
	CategoryGeneral   Category = "General"
	CategoryTechnical Category = "Technical"
	CategorySales     Category = "Sales"
	CategoryFeedback  Category = "Feedback"
	CategoryOther     Category = "Other"
)

// Categories lists every valid Category, in the order presented to the
// classification model.
func Categories() []Category {
	return []Category{
		CategoryBilling, CategoryAccount, CategoryGeneral, CategoryTechnical,
		CategorySales, CategoryFeedback, CategoryOther,
	}
}

// Validate checks if the Category is a valid enum value.
func (c Category) Validate() error {
	switch c {
	case CategoryBilling, CategoryAccount, CategoryGeneral, CategoryTechnical,
		CategorySales, CategoryFeedback, CategoryOther:
		return nil
	default:
		return fmt.Errorf("unknown category: %q", c)
	}
}

// Priority is the derived urgency rank of a ticket.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// TriagedTicket is the mutable unit of work: the source ticket plus one
// tri-state result per enrichment field. It is created at submission with
// every field Pending and mutated in place (by ID, through the Store) as
// enrichers complete their outputs.
type TriagedTicket struct {
	Ticket    SupportTicket               `json:"ticket"`
	Language  FieldResult[Language]       `json:"language"`
	Sentiment FieldResult[SentimentScore] `json:"sentiment"`
	Category  FieldResult[Category]       `json:"category"`
	Priority  FieldResult[Priority]       `json:"priority"`
}

// NewTriagedTicket wraps a source ticket with all four fields Pending.
func NewTriagedTicket(ticket SupportTicket) TriagedTicket {
	return TriagedTicket{
		Ticket:    ticket,
		Language:  Pending[Language](),
		Sentiment: Pending[SentimentScore](),
		Category:  Pending[Category](),
		Priority:  Pending[Priority](),
	}
}

// MergeFrom folds another ticket's results into t. A field is overwritten
// only when the incoming result is terminal; Pending incoming fields leave
// the current value untouched. This lets two enrichers' partial updates
// compose without clobbering each other, and makes the merge idempotent.
func (t *TriagedTicket) MergeFrom(other TriagedTicket) {
	if other.Language.Terminal() {
		t.Language = other.Language
	}
	if other.Sentiment.Terminal() {
		t.Sentiment = other.Sentiment
	}
	if other.Category.Terminal() {
		t.Category = other.Category
	}
	if other.Priority.Terminal() {
		t.Priority = other.Priority
	}
}

// CompletedFields returns the mask of fields whose result is terminal.
// The invariant is exact: a bit is set if and only if that field is
// not Pending.
func (t *TriagedTicket) CompletedFields() FieldMask {
	mask := NoFields
	if t.Language.Terminal() {
		mask |= FieldLanguage
	}
	if t.Sentiment.Terminal() {
		mask |= FieldSentiment
	}
	if t.Category.Terminal() {
		mask |= FieldCategory
	}
	if t.Priority.Terminal() {
		mask |= FieldPriority
	}
	return mask
}

// Converged reports whether every field has reached a terminal result.
func (t *TriagedTicket) Converged() bool {
	return t.CompletedFields() == AllFields
}
