package enrichers

import (
	"context"

	"github.com/dyluth/triage/pkg/pipeline"
)

// PriorityEnricher derives a ticket's priority from its completed sentiment
// and category results. It is pure and I/O-free, and it runs only once both
// dependencies are terminal. If either dependency resolved to an error the
// priority becomes a terminal error too, so it never blocks convergence.
type PriorityEnricher struct{}

// NewPriorityEnricher creates the priority derivation unit.
func NewPriorityEnricher() *PriorityEnricher { return &PriorityEnricher{} }

// Name implements pipeline.Enricher.
func (e *PriorityEnricher) Name() string { return "priority" }

// RequiredFields implements pipeline.Enricher. Priority depends on sentiment
// and category having reached a terminal result.
func (e *PriorityEnricher) RequiredFields() pipeline.FieldMask {
	return pipeline.FieldSentiment | pipeline.FieldCategory
}

// OutputFields implements pipeline.Enricher.
func (e *PriorityEnricher) OutputFields() pipeline.FieldMask { return pipeline.FieldPriority }

// Process implements pipeline.Enricher.
func (e *PriorityEnricher) Process(_ context.Context, ticket pipeline.TriagedTicket) pipeline.TriagedTicket {
	update := pipeline.NewTriagedTicket(ticket.Ticket)

	if !ticket.Sentiment.IsSuccess() || !ticket.Category.IsSuccess() {
		update.Priority = pipeline.Failure[pipeline.Priority](
			pipeline.NewFieldError(pipeline.KindPriorityCalculation,
				"insufficient data to calculate priority - both sentiment and category are required"))
		return update
	}

	update.Priority = pipeline.Success(
		DerivePriority(ticket.Sentiment.Value, ticket.Category.Value))
	return update
}

// CategoryWeight returns the base priority score for a category on a 0-10
// scale. Higher scores indicate higher priority.
func CategoryWeight(category pipeline.Category) float32 {
	switch category {
	case pipeline.CategoryTechnical:
		return 8 // system issues
	case pipeline.CategoryBilling:
		return 7 // affects customer money
	case pipeline.CategoryAccount:
		return 6 // affects customer access
	case pipeline.CategorySales:
		return 4 // business opportunity
	case pipeline.CategoryFeedback:
		return 2 // nice to have
	default:
		// General, Other and anything unexpected
		return 3
	}
}

// SentimentMultiplier returns the priority multiplier for a sentiment label.
// More negative sentiment increases priority.
func SentimentMultiplier(label pipeline.SentimentLabel) float32 {
	switch label {
	case pipeline.SentimentVeryNegative:
		return 1.5
	case pipeline.SentimentNegative:
		return 1.3
	case pipeline.SentimentPositive:
		return 0.8
	case pipeline.SentimentVeryPositive:
		return 0.6
	default:
		return 1.0
	}
}

// DerivePriority maps a sentiment score and a category to a priority rank.
// High-confidence negative sentiment (confidence above 0.8) gets an extra
// 1.2x boost before the score is bucketed.
func DerivePriority(sentiment pipeline.SentimentScore, category pipeline.Category) pipeline.Priority {
	score := CategoryWeight(category) * SentimentMultiplier(sentiment.Label)

	negative := sentiment.Label == pipeline.SentimentNegative ||
		sentiment.Label == pipeline.SentimentVeryNegative
	if negative && sentiment.Confidence > 0.8 {
		score *= 1.2
	}

	switch {
	case score >= 10.0:
		return pipeline.PriorityCritical
	case score >= 7.0:
		return pipeline.PriorityHigh
	case score >= 4.0:
		return pipeline.PriorityMedium
	default:
		return pipeline.PriorityLow
	}
}
